package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/desertthunder/ytmix/internal/auth"
	"github.com/desertthunder/ytmix/internal/formatter"
	"github.com/desertthunder/ytmix/internal/shared"
	"github.com/desertthunder/ytmix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// runFunc starts one generation run on the engine.
type runFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)

// GenerateSubscriptions builds a playlist from the latest uploads of subscribed channels.
func (r *Runner) GenerateSubscriptions(ctx context.Context, cmd *cli.Command) error {
	title := cmd.String("title")
	return r.generate(ctx, cmd, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error) {
		return r.engine.GenerateFromSubscriptions(ctx, title, progress)
	})
}

// GenerateLinks builds a playlist from links given as arguments and/or read from --file.
func (r *Runner) GenerateLinks(ctx context.Context, cmd *cli.Command) error {
	links := cmd.Args().Slice()

	if path := cmd.String("file"); path != "" {
		fromFile, err := r.readLinks(path)
		if err != nil {
			return err
		}
		links = append(links, fromFile...)
	}

	if len(links) == 0 {
		return fmt.Errorf("%w: pass links as arguments or with --file", shared.ErrMissingArgument)
	}

	title := cmd.String("title")
	return r.generate(ctx, cmd, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error) {
		return r.engine.GenerateFromLinks(ctx, links, title, progress)
	})
}

func (r *Runner) readLinks(path string) ([]string, error) {
	var src io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open links file: %w", err)
		}
		defer f.Close()
		src = f
	}

	var links []string
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		links = append(links, tasks.SplitLinks(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	return links, nil
}

// generate authenticates, runs the engine with Ctrl-C wired to cancellation,
// prints progress and writes the result.
func (r *Runner) generate(ctx context.Context, cmd *cli.Command, run runFunc) error {
	format, err := r.outputFormat(cmd)
	if err != nil {
		return err
	}
	if err := r.session(); err != nil {
		return err
	}

	if r.manager.Bootstrap(ctx, nil) != auth.Authenticated {
		return fmt.Errorf("%w: run 'ytmix auth login' first", shared.ErrAuthRequired)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go r.manager.Watch(watchCtx)

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	stopCancel := context.AfterFunc(sigCtx, func() {
		r.writeStatus("\n→ Cancelling...\n")
		r.engine.Cancel()
	})
	defer stopCancel()

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.printProgress(update)
		}
	}()

	result, err := run(sigCtx, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		if shared.IsCancelled(err) {
			r.writeStatus("%s\n", r.palette.Warn("✗ Cancelled"))
			return nil
		}
		return err
	}

	if path := cmd.String("output"); path != "" {
		exportFormat, err := r.exportFormat(cmd, path)
		if err != nil {
			return err
		}
		if err := formatter.WriteExport(result, exportFormat, path); err != nil {
			return err
		}
		r.logger.Info("run result saved", "file", path, "format", exportFormat)
	}

	return r.writeResult(result, format)
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	if update.Total > 0 {
		r.writeStatus("[%3d%%] %s (%d/%d)\n", update.Percent, update.Message, update.Step, update.Total)
		return
	}
	r.writeStatus("[%3d%%] %s\n", update.Percent, update.Message)
}

// outputFormat resolves --json and --csv; the styled report is the default.
func (r *Runner) outputFormat(cmd *cli.Command) (formatter.Format, error) {
	useJSON, useCSV := cmd.Bool("json"), cmd.Bool("csv")
	switch {
	case useJSON && useCSV:
		return "", fmt.Errorf("%w: cannot specify both --json and --csv", shared.ErrInvalidArgument)
	case useJSON:
		return formatter.FormatJSON, nil
	case useCSV:
		return formatter.FormatCSV, nil
	}
	return formatter.FormatText, nil
}

func (r *Runner) exportFormat(cmd *cli.Command, path string) (formatter.Format, error) {
	if name := cmd.String("format"); name != "" {
		return formatter.ParseFormat(name)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	format, err := formatter.ParseFormat(ext)
	if errors.Is(err, shared.ErrInvalidArgument) {
		return formatter.FormatText, nil
	}
	return format, err
}

func (r *Runner) writeResult(result *tasks.RunResult, format formatter.Format) error {
	switch format {
	case formatter.FormatJSON:
		return r.writeJSON(result, true)
	case formatter.FormatCSV:
		data, err := formatter.ExportToCSV(result)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	return formatter.WriteReport(r.output, result, r.palette)
}
