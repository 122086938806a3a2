// Package server provides HTTP routing, middleware and server lifecycle for the local web panel.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses gorilla/mux internally with method filtering and {name} path variables,
// read back with [Vars].
//
// # Middleware
//
//   - [RequestLogger] : structured request logging through charmbracelet/log
//   - [Recoverer] : converts handler panics into 500 responses
//   - [NoStore] : disables caching of session and QR responses
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// The websocket endpoint of the web panel is registered this way.
//
// # Lifecycle
//
// [New] builds the [http.Server]; [ListenAndServe] runs it until the context is cancelled and then shuts it down.
package server
