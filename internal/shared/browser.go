package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// openers maps a GOOS to the command that hands a URL to the desktop.
var openers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// OpenBrowser opens the default system browser to the specified URL.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	// reap the launcher; it exits as soon as the browser takes over
	go cmd.Wait()
	return nil
}

func browserCommand(url string) (*exec.Cmd, error) {
	rt := getRuntime()
	argv, ok := openers[rt]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
	args := append(append([]string{}, argv[1:]...), url)
	return exec.Command(argv[0], args...), nil
}
