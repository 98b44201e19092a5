// Instrumented scheduler for reactive
// 用OpenTelemetry指标包装任意调度器：动作计数与执行时延
package reactive

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// instrumentedScheduler 带指标采集的调度器包装器
type instrumentedScheduler struct {
	inner     Scheduler
	scheduled metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewInstrumentedScheduler 用给定meter包装调度器
func NewInstrumentedScheduler(inner Scheduler, meter metric.Meter) (Scheduler, error) {
	scheduled, err := meter.Int64Counter("reactive.scheduler.actions.scheduled",
		metric.WithDescription("Actions handed to the scheduler"))
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter("reactive.scheduler.actions.completed",
		metric.WithDescription("Actions that ran to completion"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("reactive.scheduler.actions.failed",
		metric.WithDescription("Actions that panicked"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("reactive.scheduler.action.duration",
		metric.WithDescription("Action execution time"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &instrumentedScheduler{
		inner:     inner,
		scheduled: scheduled,
		completed: completed,
		failed:    failed,
		latency:   latency,
	}, nil
}

// NewDefaultInstrumentedScheduler 使用全局MeterProvider包装调度器
func NewDefaultInstrumentedScheduler(inner Scheduler) (Scheduler, error) {
	meter := otel.GetMeterProvider().Meter("github.com/xinjiayu/reactive")
	return NewInstrumentedScheduler(inner, meter)
}

// wrap 包装动作：记录执行时延，统计完成与panic
func (s *instrumentedScheduler) wrap(action func()) func() {
	return func() {
		ctx := context.Background()
		start := time.Now()
		defer func() {
			s.latency.Record(ctx, time.Since(start).Seconds())
			if r := recover(); r != nil {
				s.failed.Add(ctx, 1)
				panic(r)
			}
			s.completed.Add(ctx, 1)
		}()
		action()
	}
}

// Now 委托给内部调度器
func (s *instrumentedScheduler) Now() time.Time {
	return s.inner.Now()
}

// Schedule 计数后委托执行
func (s *instrumentedScheduler) Schedule(action func()) Subscription {
	s.scheduled.Add(context.Background(), 1)
	return s.inner.Schedule(s.wrap(action))
}

// ScheduleAt 计数后委托执行
func (s *instrumentedScheduler) ScheduleAt(due time.Time, action func()) Subscription {
	s.scheduled.Add(context.Background(), 1)
	return s.inner.ScheduleAt(due, s.wrap(action))
}

// ScheduleWithDelay 计数后委托执行
func (s *instrumentedScheduler) ScheduleWithDelay(delay time.Duration, action func()) Subscription {
	s.scheduled.Add(context.Background(), 1)
	return s.inner.ScheduleWithDelay(delay, s.wrap(action))
}

// ScheduleRecursive 每一步的执行都计入指标
func (s *instrumentedScheduler) ScheduleRecursive(body func(reschedule func())) Subscription {
	return s.inner.ScheduleRecursive(func(reschedule func()) {
		s.scheduled.Add(context.Background(), 1)
		s.wrap(func() { body(reschedule) })()
	})
}

// ScheduleRecursiveWithDelay 每一步的执行都计入指标
func (s *instrumentedScheduler) ScheduleRecursiveWithDelay(initial time.Duration, body func(reschedule func(delay time.Duration))) Subscription {
	return s.inner.ScheduleRecursiveWithDelay(initial, func(reschedule func(delay time.Duration)) {
		s.scheduled.Add(context.Background(), 1)
		s.wrap(func() { body(reschedule) })()
	})
}
