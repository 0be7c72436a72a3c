package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics 核心引擎指标集合：提醒、升级、令牌认领、放行
type EngineMetrics struct {
	RemindersSentTotal    metric.Int64Counter
	ContactsNotifiedTotal metric.Int64Counter
	TokensIssuedTotal     metric.Int64Counter
	TokensClaimedTotal    metric.Int64Counter
	MessagesReleasedTotal metric.Int64Counter
	SweepDuration         metric.Float64Histogram
	SweepErrorsTotal      metric.Int64Counter
}

var (
	engineMetrics *EngineMetrics
	metricsOnce   sync.Once
	meter         = otel.Meter("stillhere")
)

// Init 初始化引擎指标，重复调用无副作用
func Init() error {
	var initErr error

	metricsOnce.Do(func() {
		m := &EngineMetrics{}

		m.RemindersSentTotal, initErr = meter.Int64Counter(
			"checkin.reminders.sent.total",
			metric.WithDescription("Check-in reminders dispatched to users"),
			metric.WithUnit("{reminder}"),
		)
		if initErr != nil {
			return
		}

		m.ContactsNotifiedTotal, initErr = meter.Int64Counter(
			"checkin.contacts.notified.total",
			metric.WithDescription("Trusted contacts notified at escalation"),
			metric.WithUnit("{contact}"),
		)
		if initErr != nil {
			return
		}

		m.TokensIssuedTotal, initErr = meter.Int64Counter(
			"verify.tokens.issued.total",
			metric.WithDescription("Verification tokens issued"),
			metric.WithUnit("{token}"),
		)
		if initErr != nil {
			return
		}

		m.TokensClaimedTotal, initErr = meter.Int64Counter(
			"verify.tokens.claimed.total",
			metric.WithDescription("Verification tokens claimed, by reason"),
			metric.WithUnit("{token}"),
		)
		if initErr != nil {
			return
		}

		m.MessagesReleasedTotal, initErr = meter.Int64Counter(
			"release.messages.sent.total",
			metric.WithDescription("Messages released and delivered"),
			metric.WithUnit("{message}"),
		)
		if initErr != nil {
			return
		}

		m.SweepDuration, initErr = meter.Float64Histogram(
			"sweep.duration",
			metric.WithDescription("Batch sweep duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
		)
		if initErr != nil {
			return
		}

		m.SweepErrorsTotal, initErr = meter.Int64Counter(
			"sweep.errors.total",
			metric.WithDescription("Per-item errors collected during sweeps"),
			metric.WithUnit("{error}"),
		)
		if initErr != nil {
			return
		}

		engineMetrics = m
	})

	return initErr
}

// Get 返回指标集合，未初始化时返回 nil（调用侧需判空）
func Get() *EngineMetrics {
	return engineMetrics
}

// RecordSweep 统一记录一次 sweep 的耗时和错误数
func RecordSweep(ctx context.Context, job string, start time.Time, errCount int) {
	m := Get()
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("job", job))
	m.SweepDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if errCount > 0 {
		m.SweepErrorsTotal.Add(ctx, int64(errCount), attrs)
	}
}

// AddTokensClaimed 记录令牌认领（reason: decision / expired_auto）
func AddTokensClaimed(ctx context.Context, reason string, n int64) {
	m := Get()
	if m == nil {
		return
	}
	m.TokensClaimedTotal.Add(ctx, n, metric.WithAttributes(attribute.String("reason", reason)))
}
