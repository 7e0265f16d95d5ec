// Package metrics owns the Prometheus registry and the HTTP-level metrics.
//
// Domain metrics live next to the code that records them (see
// limits.NewMetrics and the stats reporter); they are registered on the
// collector's registry so a single endpoint exposes everything:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	evaluatorMetrics := limits.NewMetrics(collector.Registerer())
//	mux.Handle("POST /api/loads", collector.HTTP().Instrument("/api/loads", loads))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
