// Package middleware provides cross-cutting concerns for evaluator backends:
// resilience and pacing decorators, tracing and metrics around backend
// calls, and a Prometheus implementation of ports.MetricsCollector.
//
// Middleware composes with Chain:
//
//	backend := middleware.Chain(moderation,
//	    middleware.TracingMiddleware(),
//	    middleware.MetricsMiddleware(collector),
//	    middleware.RetryMiddleware(2, 200*time.Millisecond, 2*time.Second),
//	    middleware.CircuitBreakerMiddleware(5, 30*time.Second, collector),
//	    middleware.RateLimitMiddleware(20, 40),
//	    middleware.TimeoutMiddleware(10*time.Second),
//	)
package middleware

import "github.com/ahrav/go-gavel-catalog/internal/ports"

// Chain wraps backend with middleware. The first middleware is the
// outermost, so it sees every call first and every result last.
// Nil entries are skipped.
func Chain(backend ports.EvaluatorBackend, middleware ...ports.BackendMiddleware) ports.EvaluatorBackend {
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] == nil {
			continue
		}
		backend = middleware[i](backend)
	}
	return backend
}
