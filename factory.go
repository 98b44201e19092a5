// Factory functions for reactive
// 工厂函数：从值、切片、channel与时间创建Observable
package reactive

import (
	"time"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// Just 从给定的值创建Observable，经由蹦床调度器逐个发射
func Just(values ...interface{}) Observable {
	return JustOn(CurrentThreadScheduler, values...)
}

// JustOn 在指定调度器上逐个发射给定的值
func JustOn(scheduler Scheduler, values ...interface{}) Observable {
	return FromSlice(values, scheduler)
}

// Value 发射单个值后完成，同步发生在Subscribe内部
func Value(value interface{}) Observable {
	return ValueOn(ImmediateScheduler, value)
}

// ValueOn 在指定调度器上发射单个值后完成
func ValueOn(scheduler Scheduler, value interface{}) Observable {
	return FromSlice([]interface{}{value}, scheduler)
}

// Empty 创建一个立即完成的Observable
func Empty() Observable {
	return EmptyOn(ImmediateScheduler)
}

// EmptyOn 在指定调度器上发出完成信号
func EmptyOn(scheduler Scheduler) Observable {
	return NewObservable(func(observer Observer) Subscription {
		return scheduler.Schedule(observer.OnCompleted)
	})
}

// Never 创建一个永不发射任何通知的Observable
func Never() Observable {
	return NewObservable(func(observer Observer) Subscription {
		return NewSubscription()
	})
}

// Error 创建一个立即发射错误的Observable
func Error(err error) Observable {
	return ErrorOn(ImmediateScheduler, err)
}

// ErrorOn 在指定调度器上发射错误
func ErrorOn(scheduler Scheduler, err error) Observable {
	return NewObservable(func(observer Observer) Subscription {
		return scheduler.Schedule(func() {
			observer.OnError(err)
		})
	})
}

// Range 发射[start, start+count)区间的整数
func Range(start, count int) Observable {
	return RangeOn(CurrentThreadScheduler, start, count)
}

// RangeOn 在指定调度器上发射整数区间
func RangeOn(scheduler Scheduler, start, count int) Observable {
	return NewObservable(func(observer Observer) Subscription {
		emitted := 0
		return scheduler.ScheduleRecursive(func(reschedule func()) {
			if emitted < count {
				value := start + emitted
				emitted++
				observer.OnNext(value)
				reschedule()
			} else {
				observer.OnCompleted()
			}
		})
	})
}

// ============================================================================
// 从数据源创建
// ============================================================================

// FromSlice 从切片创建Observable
// 递归调度每一步只发射一个元素；两步之间退订会取消剩余发射
func FromSlice(values []interface{}, scheduler Scheduler) Observable {
	return NewObservable(func(observer Observer) Subscription {
		index := 0
		return scheduler.ScheduleRecursive(func(reschedule func()) {
			if index < len(values) {
				value := values[index]
				index++
				observer.OnNext(value)
				reschedule()
			} else {
				observer.OnCompleted()
			}
		})
	})
}

// FromChannel 从Go channel创建Observable，channel关闭即完成
func FromChannel(ch <-chan interface{}) Observable {
	return NewObservable(func(observer Observer) Subscription {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case value, ok := <-ch:
					if !ok {
						observer.OnCompleted()
						return
					}
					observer.OnNext(value)
				}
			}
		}()
		return NewActionSubscription(func() {
			close(done)
		})
	})
}

// Defer 每次订阅时才调用factory创建实际的Observable
func Defer(factory func() Observable) Observable {
	return NewObservable(func(observer Observer) Subscription {
		return factory().Subscribe(observer)
	})
}

// ============================================================================
// 时间相关工厂函数
// ============================================================================

// Interval 以固定周期发射0,1,2,…
// scheduler为nil时使用线程池调度器
func Interval(period time.Duration, scheduler Scheduler) Observable {
	if scheduler == nil {
		scheduler = ThreadPoolScheduler
	}
	return NewObservable(func(observer Observer) Subscription {
		count := 0
		return scheduler.ScheduleRecursiveWithDelay(period, func(reschedule func(time.Duration)) {
			value := count
			count++
			observer.OnNext(value)
			reschedule(period)
		})
	})
}

// Timer 在dueTime发射0然后完成
// scheduler为nil时使用线程池调度器
func Timer(dueTime time.Duration, scheduler Scheduler) Observable {
	if scheduler == nil {
		scheduler = ThreadPoolScheduler
	}
	return NewObservable(func(observer Observer) Subscription {
		return scheduler.ScheduleWithDelay(dueTime, func() {
			observer.OnNext(0)
			observer.OnCompleted()
		})
	})
}
