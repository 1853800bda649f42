package metricsrv

import (
	"context"
	"fastlog/internal/metrics"
	"time"
)

// Query function into the central metric registry
type DataSearcher func(name string, namespacePrefix []string, start, end time.Time) []metrics.Metric

// Discovery function listing known metric kinds
type Discoverer func(name string, namespacePrefix []string, metricType metrics.MetricType) []metrics.Metric

// JSON error response body
type Jerror struct {
	Msg string `json:"error"`
}

type httpLogWriter struct {
	ctx context.Context
}
