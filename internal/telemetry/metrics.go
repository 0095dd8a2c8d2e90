package telemetry

import "go.opentelemetry.io/otel/metric"

// SyncMetrics are the counters recorded by the sync service.
type SyncMetrics struct {
	Uploads      metric.Int64Counter
	TasksWritten metric.Int64Counter
	Downloads    metric.Int64Counter
}

func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	m := &SyncMetrics{}
	var err error

	m.Uploads, err = meter.Int64Counter("taskmate.sync.uploads",
		metric.WithDescription("Snapshot uploads by outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.TasksWritten, err = meter.Int64Counter("taskmate.sync.tasks_written",
		metric.WithDescription("Tasks written by committed uploads"),
	)
	if err != nil {
		return nil, err
	}

	m.Downloads, err = meter.Int64Counter("taskmate.sync.downloads",
		metric.WithDescription("Snapshot downloads served"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
