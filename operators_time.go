// Time-based operators for reactive
// 时间操作符：Timeout, TimeoutWith, Delay
package reactive

import (
	"time"
)

// timeoutMarker 区分按时到达的值与超时信号
type timeoutMarker struct {
	value    interface{}
	timedOut bool
}

// ============================================================================
// 超时
// ============================================================================

// Timeout 截止时间前没有任何通知则以ErrTimeout终止
// scheduler为nil时使用线程池调度器
func (o *observableImpl) Timeout(duration time.Duration, scheduler Scheduler) Observable {
	return o.TimeoutWith(duration, nil, scheduler)
}

// TimeoutWith 截止时间前没有任何通知则切换到fallback
// 实现为源与定时器的竞争再展平：源先产生通知时fallback永远不会被订阅
func (o *observableImpl) TimeoutWith(duration time.Duration, fallback Observable, scheduler Scheduler) Observable {
	if scheduler == nil {
		scheduler = ThreadPoolScheduler
	}

	source := o.Map(func(value interface{}) (interface{}, error) {
		return timeoutMarker{value: value}, nil
	})
	deadline := Timer(duration, scheduler).Map(func(interface{}) (interface{}, error) {
		return timeoutMarker{timedOut: true}, nil
	})

	return source.Amb(deadline).FlatMap(func(value interface{}) Observable {
		marker := value.(timeoutMarker)
		if !marker.timedOut {
			return Value(marker.value)
		}
		if fallback != nil {
			return fallback
		}
		return Error(ErrTimeout)
	})
}

// ============================================================================
// 延迟
// ============================================================================

// Delay 把每个值与完成信号整体向后平移duration；错误立即传播
func (o *observableImpl) Delay(duration time.Duration, scheduler Scheduler) Observable {
	if scheduler == nil {
		scheduler = ThreadPoolScheduler
	}
	return NewObservable(func(observer Observer) Subscription {
		group := NewCompositeSubscription()
		group.Add(o.Subscribe(NewObserver(
			func(value interface{}) {
				group.Add(scheduler.ScheduleWithDelay(duration, func() {
					observer.OnNext(value)
				}))
			},
			observer.OnError,
			func() {
				group.Add(scheduler.ScheduleWithDelay(duration, observer.OnCompleted))
			},
		)))
		return group
	})
}
