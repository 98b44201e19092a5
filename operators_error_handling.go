// Error handling operators for reactive
// 错误处理与重订阅操作符：Catch, OnErrorResumeNext, Retry, RetryWithBackoff, Repeat
package reactive

import (
	"github.com/cenkalti/backoff/v4"
)

// ============================================================================
// 错误恢复
// ============================================================================

// Catch 发生错误时切换到handler产生的恢复序列
// 错误之前的值原样流过；完成信号不触发handler
func (o *observableImpl) Catch(handler func(err error) Observable) Observable {
	return NewObservable(func(observer Observer) Subscription {
		serial := NewSerialSubscription()
		serial.Set(o.Subscribe(NewObserver(
			observer.OnNext,
			func(err error) {
				serial.ClearAndSet(func() Subscription {
					return handler(err).Subscribe(observer)
				})
			},
			observer.OnCompleted,
		)))
		return serial
	})
}

// OnErrorResumeNext 发生错误时切换到固定的后备序列
func (o *observableImpl) OnErrorResumeNext(fallback Observable) Observable {
	return o.Catch(func(error) Observable {
		return fallback
	})
}

// ============================================================================
// 重试
// ============================================================================

// Retry 发生错误时重新订阅，最多尝试count次；次数用尽后传播最后的错误
func (o *observableImpl) Retry(count int) Observable {
	return NewObservable(func(observer Observer) Subscription {
		serial := NewSerialSubscription()
		attempts := 0
		var inner Observer
		var subscribe func()
		subscribe = func() {
			// 每次订阅先占一个新槽位，同步失败引发的嵌套重订阅不会被外层的安装覆盖
			slot := NewSerialSubscription()
			serial.Set(slot)
			slot.Set(o.Subscribe(inner))
		}
		inner = NewObserver(
			observer.OnNext,
			func(err error) {
				attempts++
				if attempts >= count {
					observer.OnError(err)
					return
				}
				subscribe()
			},
			observer.OnCompleted,
		)
		subscribe()
		return serial
	})
}

// RetryWithBackoff 发生错误时按退避策略延迟后重新订阅
// 策略返回backoff.Stop时停止重试并传播错误；scheduler为nil时使用线程池调度器
func (o *observableImpl) RetryWithBackoff(policy backoff.BackOff, scheduler Scheduler) Observable {
	if scheduler == nil {
		scheduler = ThreadPoolScheduler
	}
	return NewObservable(func(observer Observer) Subscription {
		policy.Reset()
		serial := NewSerialSubscription()
		var inner Observer
		inner = NewObserver(
			observer.OnNext,
			func(err error) {
				delay := policy.NextBackOff()
				if delay == backoff.Stop {
					observer.OnError(err)
					return
				}
				serial.ClearAndSet(func() Subscription {
					return scheduler.ScheduleWithDelay(delay, func() {
						serial.Set(o.Subscribe(inner))
					})
				})
			},
			observer.OnCompleted,
		)
		serial.Set(o.Subscribe(inner))
		return serial
	})
}

// ============================================================================
// 重复
// ============================================================================

// Repeat 完成后无限次重新订阅；错误不被捕获
func (o *observableImpl) Repeat() Observable {
	return o.repeatWhile(func(int) bool { return true })
}

// RepeatN 完成count轮后向下游发出完成
func (o *observableImpl) RepeatN(count int) Observable {
	return o.repeatWhile(func(finished int) bool { return finished < count })
}

// repeatWhile 完成后若more(已完成轮数)为真则通过可替换槽位重新订阅
func (o *observableImpl) repeatWhile(more func(finished int) bool) Observable {
	return NewObservable(func(observer Observer) Subscription {
		if !more(0) {
			observer.OnCompleted()
			return NewSubscription()
		}
		serial := NewSerialSubscription()
		finished := 0
		var inner Observer
		inner = NewObserver(
			observer.OnNext,
			observer.OnError,
			func() {
				finished++
				if !more(finished) {
					observer.OnCompleted()
					return
				}
				serial.ClearAndSet(func() Subscription {
					return o.Subscribe(inner)
				})
			},
		)
		serial.Set(o.Subscribe(inner))
		return serial
	})
}
