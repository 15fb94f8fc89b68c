package server

import (
	"fmt"
	"html"
	"net/http"
	"sync"

	"github.com/desertthunder/ytmix/internal/auth"
)

// CallbackHandler captures the authorization redirect so the token manager can
// bootstrap from it. Implements the [Handler] interface for registration with a Router.
type CallbackHandler struct {
	path        string
	resultChan  chan auth.Callback
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler served at path, usually the path of the
// configured redirect URI. An empty path defaults to /callback.
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		path:       path,
		resultChan: make(chan auth.Callback, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP records the code, error and state query parameters of the redirect.
//
// Only the first redirect carrying a code or an error is accepted.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cb := auth.CallbackFromQuery(r.URL.Query())
	if cb.Empty() {
		http.Error(w, "Missing code or error parameter", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	h.Send(cb)

	w.Header().Set("Content-Type", "text/html")
	if cb.Error != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, callbackPage, "Authorization Failed", "#d93025", "✗ Authorization Failed",
			html.EscapeString(describe(cb)))
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, callbackPage, "Authorization Received", "#1a73e8", "✓ Authorization Received",
		"You can close this window and return to the terminal.")
}

func describe(cb auth.Callback) string {
	if cb.ErrorDescription != "" {
		return fmt.Sprintf("%s: %s", cb.Error, cb.ErrorDescription)
	}
	return cb.Error
}

// Send delivers the callback through the channel (only once).
func (h *CallbackHandler) Send(cb auth.Callback) {
	h.once.Do(func() {
		h.resultChan <- cb
		close(h.resultChan)
	})
}

// Result returns the channel receiving the captured redirect.
//
// Channel will receive exactly one callback and then be closed.
func (h *CallbackHandler) Result() <-chan auth.Callback {
	return h.resultChan
}

const callbackPage = `
<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: %s; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`
