// Observable implementation for reactive
// Observable核心实现：订阅管线与协议保护
package reactive

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// Observable 核心实现
// ============================================================================

// observableImpl Observable的核心实现
type observableImpl struct {
	onSubscribe func(observer Observer) Subscription
	config      *Config
}

// NewObservable 创建新的Observable，这是所有操作符使用的规范工厂
// 订阅在蹦床调度器的RunImmediate里执行，保证同步产生的下游工作
// 在Subscribe返回前排空；交给onSubscribe的观察者带有协议保护：
// 最多一个终止通知，终止后丢弃，并在首个终止通知时关闭返回的订阅
func NewObservable(onSubscribe func(observer Observer) Subscription, options ...Option) Observable {
	config := DefaultConfig()
	for _, opt := range options {
		opt.Apply(config)
	}

	return &observableImpl{
		onSubscribe: onSubscribe,
		config:      config,
	}
}

// Create 从带清理函数的委托创建Observable
// 委托返回的清理函数被包装成动作订阅，退订时恰好执行一次
func Create(onSubscribe func(observer Observer) func()) Observable {
	return NewObservable(func(observer Observer) Subscription {
		teardown := onSubscribe(observer)
		if teardown == nil {
			return NewSubscription()
		}
		return NewActionSubscription(teardown)
	})
}

// Subscribe 订阅观察者
func (o *observableImpl) Subscribe(observer Observer) Subscription {
	sink := newSafeObserver(observer)
	return CurrentThreadScheduler.RunImmediate(func() Subscription {
		sink.set(o.onSubscribe(sink))
		return sink.upstream
	})
}

// SubscribeWithCallbacks 使用回调函数订阅
func (o *observableImpl) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Subscription {
	return o.Subscribe(NewObserver(onNext, onError, onComplete))
}

// SubscribeOn 在指定调度器上执行订阅动作
// 退订同样调度到该调度器上，绝不内联执行，
// 保证订阅动作先于退订动作完成
func (o *observableImpl) SubscribeOn(scheduler Scheduler) Observable {
	return NewObservable(func(observer Observer) Subscription {
		serial := NewSerialSubscription()
		serial.Set(scheduler.Schedule(func() {
			serial.Set(o.Subscribe(observer))
		}))
		return NewScheduledSubscription(scheduler, serial)
	})
}

// ObserveOn 把每个通知转投到指定调度器上
// 生产者写入无界FIFO；计数器从0变1时调度一次消费动作，
// 消费动作转发一个通知后若队列非空则重新调度自己
func (o *observableImpl) ObserveOn(scheduler Scheduler) Observable {
	return NewObservable(func(observer Observer) Subscription {
		group := NewCompositeSubscription()
		consumer := NewSerialSubscription()
		group.Add(consumer)

		queue := &notificationQueue{}
		var drainOne func()
		drainOne = func() {
			n := queue.dequeue()
			if n.HasValue() {
				n.Accept(observer)
			} else {
				// 终止通知先关闭上游再投递
				group.Unsubscribe()
				n.Accept(observer)
			}
			if queue.depthDown() > 0 {
				consumer.Set(scheduler.Schedule(drainOne))
			}
		}
		pump := func(n Notification) {
			queue.enqueue(n)
			if queue.depthUp() == 1 {
				consumer.Set(scheduler.Schedule(drainOne))
			}
		}

		group.Add(o.Subscribe(NewObserver(
			func(value interface{}) { pump(Next(value)) },
			func(err error) { pump(ErrorNotification(err)) },
			func() { pump(Completed()) },
		)))
		return group
	})
}

// Synchronize 串行化下游观察者
func (o *observableImpl) Synchronize() Observable {
	return NewObservable(func(observer Observer) Subscription {
		return o.Subscribe(NewSynchronizedObserver(observer))
	})
}

// Let 把自身交给f求值一次
func (o *observableImpl) Let(f func(Observable) Observable) Observable {
	return f(o)
}

// ============================================================================
// ObserveOn 的通知队列
// ============================================================================

// notificationQueue 无界FIFO加一个深度计数器
// 深度的0到1跃迁是调度消费动作的信号
type notificationQueue struct {
	mu    sync.Mutex
	items []Notification
	depth int32
}

func (q *notificationQueue) enqueue(n Notification) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

func (q *notificationQueue) dequeue() Notification {
	q.mu.Lock()
	n := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()
	return n
}

func (q *notificationQueue) depthUp() int32 {
	return atomic.AddInt32(&q.depth, 1)
}

func (q *notificationQueue) depthDown() int32 {
	return atomic.AddInt32(&q.depth, -1)
}
