// Package middleware provides observability wrappers for reactive
// scopes: Prometheus metrics and OpenTelemetry tracing around flush
// passes and effect runs.
//
// Middleware is attached at scope creation and sees the raw outcome of
// every unit of scheduler work, including silent stops; the surfacing
// policy stays with the scope.
//
//	scope := reactive.NewScope(
//	    reactive.WithName("session-42"),
//	    reactive.WithMiddleware(
//	        middleware.Prometheus(),
//	        middleware.OpenTelemetry(),
//	    ),
//	)
package middleware
