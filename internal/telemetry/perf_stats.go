package telemetry

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentPerfStats registers process gauges that are sampled whenever the
// global meter provider collects.
func InstrumentPerfStats() error {
	meter := otel.Meter("alertlogic-events/perf")

	cpuGauge, err := meter.Float64ObservableGauge("cpu_usage_percent")
	if err != nil {
		return err
	}
	heapGauge, err := meter.Int64ObservableGauge("heap_alloc_mb")
	if err != nil {
		return err
	}
	goroutineGauge, err := meter.Int64ObservableGauge("goroutine_count")
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		o.ObserveInt64(heapGauge, int64(memStats.HeapAlloc/1_000_000))
		o.ObserveInt64(goroutineGauge, int64(runtime.NumGoroutine()))

		// an interval of 0 compares against the previous sample
		usage, err := cpu.PercentWithContext(ctx, 0, false)
		if err == nil && len(usage) > 0 {
			o.ObserveFloat64(cpuGauge, usage[0])
		}
		return nil
	}, cpuGauge, heapGauge, goroutineGauge)
	return err
}
