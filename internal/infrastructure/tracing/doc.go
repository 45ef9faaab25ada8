/*
Package tracing provides lightweight request tracing.

Each HTTP request gets a span; handlers open child spans around runner
operations with Tracer.Trace. Finished spans are logged by a background
collector.

# Usage

	tracer := tracing.New("evalmachine", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	err := tracer.Trace(ctx, "runner.run", func(ctx context.Context, span *tracing.Span) error {
		span.SetTag("mode", "new")
		return run()
	})

# Trace Format

Traces use HTTP headers for propagation:
  - X-Trace-ID: identifier for the entire request flow
  - X-Span-ID: identifier for the current operation

IDs are prefixed ULIDs from the id package.

# Performance

Spans are buffered (1000) and processed asynchronously; a full buffer drops
spans rather than blocking the request.
*/
package tracing
