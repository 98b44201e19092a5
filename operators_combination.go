// Combination operators for reactive
// 组合操作符：Concat, Amb, MergeAll/Merge/FlatMap, TakeUntil
package reactive

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ============================================================================
// 顺序连接
// ============================================================================

// Concat 先发射自身的全部值，完成后切换到other
// 自身的错误直接传播，不会订阅other；退订关闭当前活跃的内部订阅
func (o *observableImpl) Concat(other Observable) Observable {
	return NewObservable(func(observer Observer) Subscription {
		serial := NewSerialSubscription()
		serial.Set(o.Subscribe(NewObserver(
			observer.OnNext,
			observer.OnError,
			func() {
				serial.ClearAndSet(func() Subscription {
					return other.Subscribe(observer)
				})
			},
		)))
		return serial
	})
}

// ============================================================================
// 竞争选择
// ============================================================================

const (
	ambUnknown int32 = iota
	ambLeft
	ambRight
)

// Amb 同时订阅两边，第一个产生任何通知的一边胜出
// 胜负由三态原子选择器在通知到达时一次CAS决定，败者的订阅立即被关闭
func (o *observableImpl) Amb(other Observable) Observable {
	return NewObservable(func(observer Observer) Subscription {
		group := NewCompositeSubscription()
		sync := NewSynchronizedObserver(observer)
		choice := ambUnknown

		leftSub := NewSerialSubscription()
		rightSub := NewSerialSubscription()
		group.Add(leftSub)
		group.Add(rightSub)

		side := func(me int32, loser *SerialSubscription) Observer {
			wins := func() bool {
				if atomic.LoadInt32(&choice) == me {
					return true
				}
				if atomic.CompareAndSwapInt32(&choice, ambUnknown, me) {
					group.Remove(loser)
					return true
				}
				return atomic.LoadInt32(&choice) == me
			}
			return NewObserver(
				func(value interface{}) {
					if wins() {
						sync.OnNext(value)
					}
				},
				func(err error) {
					if wins() {
						sync.OnError(err)
					}
				},
				func() {
					if wins() {
						sync.OnCompleted()
					}
				},
			)
		}

		leftSub.Set(o.Subscribe(side(ambLeft, rightSub)))
		rightSub.Set(other.Subscribe(side(ambRight, leftSub)))
		return group
	})
}

// ============================================================================
// 合并
// ============================================================================

// MergeAll 把嵌套的Observable序列展平为一个序列
// activeCount从1起（外层生成器算一个），每个活跃内层加一；
// 下游观察者串行化，内层之间以及与生成器互斥；
// 降到0时向下游发出完成
func (o *observableImpl) MergeAll() Observable {
	return NewObservable(func(observer Observer) Subscription {
		group := NewCompositeSubscription()
		sync := NewSynchronizedObserver(observer)
		active := int32(1)

		finish := func(slot Subscription) {
			group.Remove(slot)
			if atomic.AddInt32(&active, -1) == 0 {
				sync.OnCompleted()
			}
		}

		generator := NewSerialSubscription()
		group.Add(generator)
		generator.Set(o.Subscribe(NewObserver(
			func(value interface{}) {
				inner, ok := value.(Observable)
				if !ok {
					sync.OnError(errors.Errorf("merge: %T is not an Observable", value))
					return
				}
				atomic.AddInt32(&active, 1)
				slot := NewSerialSubscription()
				group.Add(slot)
				slot.Set(inner.Subscribe(NewObserver(
					sync.OnNext,
					sync.OnError,
					func() { finish(slot) },
				)))
			},
			sync.OnError,
			func() { finish(generator) },
		)))
		return group
	})
}

// Merge 合并自身与other的发射，实时序交错
func (o *observableImpl) Merge(other Observable) Observable {
	return JustOn(ImmediateScheduler, o, other).MergeAll()
}

// FlatMap 把每个值映射为Observable再展平
func (o *observableImpl) FlatMap(selector func(value interface{}) Observable) Observable {
	return o.Map(func(value interface{}) (interface{}, error) {
		return selector(value), nil
	}).MergeAll()
}

// ============================================================================
// 截断
// ============================================================================

// TakeUntil 发射自身的值直到other产生第一个值，此时完成并关闭两边
// other不发值就完成时只移除other的订阅，自身继续；other的错误照常传播
func (o *observableImpl) TakeUntil(other Observable) Observable {
	return NewObservable(func(observer Observer) Subscription {
		group := NewCompositeSubscription()
		sync := NewSynchronizedObserver(observer)

		otherSub := NewSerialSubscription()
		group.Add(otherSub)
		otherSub.Set(other.Subscribe(NewObserver(
			func(interface{}) { sync.OnCompleted() },
			sync.OnError,
			func() { group.Remove(otherSub) },
		)))

		group.Add(o.Subscribe(NewObserver(
			sync.OnNext,
			sync.OnError,
			sync.OnCompleted,
		)))
		return group
	})
}
