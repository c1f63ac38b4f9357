package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"                              //cloudwatch
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types" //cloudwatch
)

type counterStat struct {
	count int64
}

var (
	warnCounts  sync.Map // map[string]*counterStat, keyed by component
	errorCounts sync.Map // map[string]*counterStat, keyed by component

	subsAcquired int64
	subsReleased int64
	timeouts     int64

	requestsSent sync.Map // map[string]*counterStat, keyed by message name
	eventsSeen   sync.Map // map[string]*counterStat, keyed by event kind
)

func recordWarn(component string) {
	bump(&warnCounts, component)
}

func recordError(component string) {
	bump(&errorCounts, component)
}

// IncrementSubscriptionAcquired counts one subscription handle handed
// out by the bus.
func IncrementSubscriptionAcquired() {
	atomic.AddInt64(&subsAcquired, 1)
}

// IncrementSubscriptionReleased counts one subscription handle
// released. The report flags any drift between the two counters; a
// difference beyond the number of in-flight requests means a leaked
// subscription.
func IncrementSubscriptionReleased() {
	atomic.AddInt64(&subsReleased, 1)
}

// IncrementTimeout counts a correlated request that elapsed without a
// terminating event.
func IncrementTimeout(message string) {
	atomic.AddInt64(&timeouts, 1)
	bump(&requestsSent, message+"_timeout")
}

// IncrementRequestSent counts an outgoing request by message name.
func IncrementRequestSent(message string) {
	bump(&requestsSent, message)
}

// IncrementEventDispatched counts an inbound event by kind.
func IncrementEventDispatched(kind string) {
	bump(&eventsSeen, kind)
}

func bump(m *sync.Map, key string) {
	v, _ := m.LoadOrStore(key, &counterStat{})
	atomic.AddInt64(&v.(*counterStat).count, 1)
}

func snapshotCounts(m *sync.Map) map[string]int64 {
	out := map[string]int64{}
	m.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(&v.(*counterStat).count)
		return true
	})
	return out
}

// StartReport begins periodic logging of system and request/response
// statistics until the context is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	acquired := atomic.LoadInt64(&subsAcquired)
	released := atomic.LoadInt64(&subsReleased)

	fields := Fields{
		"goroutines":            runtime.NumGoroutine(),
		"subscriptions_open":    acquired - released,
		"subscriptions_total":   acquired,
		"timeouts":              atomic.LoadInt64(&timeouts),
		"requests":              snapshotCounts(&requestsSent),
		"events":                snapshotCounts(&eventsSeen),
		"warnings_by_component": snapshotCounts(&warnCounts),
		"errors_by_component":   snapshotCounts(&errorCounts),
	}
	if len(cpuPercent) > 0 {
		fields["cpu_percent"] = cpuPercent[0]
	}
	if memStats != nil {
		fields["mem_used_percent"] = memStats.UsedPercent
	}

	log.WithComponent("report").WithFields(fields).Info("periodic report")

	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String("SubscriptionsOpen"),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(float64(acquired - released)),
		},
		{
			MetricName: aws.String("RequestTimeouts"),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(float64(atomic.LoadInt64(&timeouts))),
		},
	}
	publishMetrics(ctx, data)
}

// SubscriptionCounts exposes the acquire/release counters, used by
// tests asserting the release-on-every-path invariant.
func SubscriptionCounts() (acquired, released int64) {
	return atomic.LoadInt64(&subsAcquired), atomic.LoadInt64(&subsReleased)
}
