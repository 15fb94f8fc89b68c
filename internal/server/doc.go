// Package server runs the local listener that receives the provider's
// authorization redirect during `ytmix auth login`.
//
// # Router Infrastructure
//
// [BasicRouter] implements [Router] over [http.ServeMux] with method patterns.
// [Middleware] is applied in registration order, the first added being the outermost.
// [Logging] and [Recover] are the stock middleware.
//
// # Redirect Capture
//
// [CallbackHandler] reads the code, error and state query parameters of the
// redirect into an [auth.Callback] and hands it over through a channel. It
// accepts exactly one redirect. It performs no token exchange and no state check:
// both belong to [auth.Manager.Bootstrap].
//
// [RedirectServer] wires the handler to a listener, waits with a timeout and
// shuts down once the callback has been received.
package server
