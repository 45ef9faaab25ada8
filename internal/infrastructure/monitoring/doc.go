/*
Package monitoring provides Prometheus metrics for the evaluation service.

# Overview

Metrics are registered with a caller-supplied prometheus.Registerer so tests
and embedders can keep their own registry. The collector tracks HTTP
traffic, execution environment lifecycle, evaluations by target and status,
and the contexts and scripts the runner holds.

# Features

- HTTP request metrics (latency, throughput, size)
- Environment lifecycle (live, created, disposed, stack depth)
- Evaluations by target (this, new, context) and outcome
- Runner operation timings
- WebSocket REPL connection metrics

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	machine := evalmachine.New(
		evalmachine.WithObserver(metrics.Observer()),
		evalmachine.WithRecorder(metrics),
	)

	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "create_context")
	// ... perform operation ...
	timer.Stop("ok")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
