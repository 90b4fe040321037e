// Package metrics provides build observability for the content pipeline.
//
// # Architecture
//
// The metrics system has three components:
//
//  1. Recorder interface - Defines all metrics operations
//  2. NoopRecorder - Default implementation that does nothing
//  3. PrometheusRecorder - Registers collectors on a Prometheus registry
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder when none is configured:
//
//	b, err := build.New(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(nil)))
//
// The CLI has no HTTP surface, so Prometheus metrics are exported with
// PrometheusRecorder.WriteTextfile for the node_exporter textfile collector.
package metrics
