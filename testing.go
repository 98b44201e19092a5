// Virtual time test driver for reactive
// 基于虚拟调度器的测试工具：热/冷源、记录观察者、100/200/1000约定
package reactive

import (
	"math"
	"sync"
)

// ============================================================================
// 测试约定
// ============================================================================

const (
	// CreatedTick 被测Observable的工厂在这个刻度求值
	CreatedTick int64 = 100
	// SubscribedTick 在这个刻度订阅
	SubscribedTick int64 = 200
	// DisposedTick 在这个刻度退订
	DisposedTick int64 = 1000

	// SubscriptionInfinite 表示订阅从未结束
	SubscriptionInfinite int64 = math.MaxInt64
)

// ============================================================================
// 记录类型
// ============================================================================

// Recorded 带虚拟时间戳的通知
type Recorded struct {
	Time  int64
	Value Notification
}

// OnNextRecord 在时刻t发射值的记录
func OnNextRecord(t int64, value interface{}) Recorded {
	return Recorded{Time: t, Value: Next(value)}
}

// OnCompletedRecord 在时刻t完成的记录
func OnCompletedRecord(t int64) Recorded {
	return Recorded{Time: t, Value: Completed()}
}

// OnErrorRecord 在时刻t出错的记录
func OnErrorRecord(t int64, err error) Recorded {
	return Recorded{Time: t, Value: ErrorNotification(err)}
}

// SubscriptionRecord 一次订阅的起止刻度
type SubscriptionRecord struct {
	Subscribe   int64
	Unsubscribe int64
}

// Subscribed 构造订阅区间记录
func Subscribed(subscribe, unsubscribe int64) SubscriptionRecord {
	return SubscriptionRecord{Subscribe: subscribe, Unsubscribe: unsubscribe}
}

// ============================================================================
// 测试调度器
// ============================================================================

// TestScheduler 面向测试的虚拟时间调度器
type TestScheduler struct {
	*VirtualTimeScheduler
}

// NewTestScheduler 创建测试调度器
func NewTestScheduler() *TestScheduler {
	return &TestScheduler{VirtualTimeScheduler: NewVirtualTimeScheduler()}
}

// Start 按给定刻度求值、订阅、退订被测Observable，驱动虚拟时间直到队列排空
func (s *TestScheduler) Start(create func() Observable, created, subscribed, disposed int64) *TestObserver {
	observer := NewTestObserver(s)
	var source Observable
	var subscription Subscription

	s.ScheduleAbsolute(created, func() {
		source = create()
	})
	s.ScheduleAbsolute(subscribed, func() {
		subscription = source.Subscribe(observer)
	})
	s.ScheduleAbsolute(disposed, func() {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	})

	s.Run()
	return observer
}

// StartWithDefaults 使用100/200/1000约定驱动被测Observable
func (s *TestScheduler) StartWithDefaults(create func() Observable) *TestObserver {
	return s.Start(create, CreatedTick, SubscribedTick, DisposedTick)
}

// ============================================================================
// 记录观察者
// ============================================================================

// TestObserver 记录每个通知以及投递时的虚拟时间戳
type TestObserver struct {
	scheduler *TestScheduler
	mu        sync.Mutex
	messages  []Recorded
}

// NewTestObserver 创建记录观察者
func NewTestObserver(scheduler *TestScheduler) *TestObserver {
	return &TestObserver{scheduler: scheduler}
}

// OnNext 记录值通知
func (o *TestObserver) OnNext(value interface{}) {
	o.record(Next(value))
}

// OnError 记录错误通知
func (o *TestObserver) OnError(err error) {
	o.record(ErrorNotification(err))
}

// OnCompleted 记录完成通知
func (o *TestObserver) OnCompleted() {
	o.record(Completed())
}

// Messages 返回到目前为止记录的通知
func (o *TestObserver) Messages() []Recorded {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Recorded, len(o.messages))
	copy(out, o.messages)
	return out
}

func (o *TestObserver) record(n Notification) {
	t := o.scheduler.Clock()
	o.mu.Lock()
	o.messages = append(o.messages, Recorded{Time: t, Value: n})
	o.mu.Unlock()
}

// ============================================================================
// 热Observable
// ============================================================================

// HotObservable 按绝对刻度发射的多播测试源
// 事件与订阅者无关地发生，不在场的订阅者会错过事件
type HotObservable struct {
	Observable
	scheduler     *TestScheduler
	mu            sync.Mutex
	observers     []Observer
	subscriptions []SubscriptionRecord
}

// CreateHotObservable 创建热Observable，事件在创建时就挂到调度器的绝对刻度上
func (s *TestScheduler) CreateHotObservable(messages ...Recorded) *HotObservable {
	h := &HotObservable{scheduler: s}
	for _, msg := range messages {
		msg := msg
		s.ScheduleAbsolute(msg.Time, func() {
			for _, observer := range h.snapshot() {
				msg.Value.Accept(observer)
			}
		})
	}
	h.Observable = NewObservable(h.subscribeCore)
	return h
}

// Subscriptions 返回观察到的订阅区间
func (h *HotObservable) Subscriptions() []SubscriptionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SubscriptionRecord, len(h.subscriptions))
	copy(out, h.subscriptions)
	return out
}

func (h *HotObservable) snapshot() []Observer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Observer, len(h.observers))
	copy(out, h.observers)
	return out
}

func (h *HotObservable) subscribeCore(observer Observer) Subscription {
	h.mu.Lock()
	h.observers = append(h.observers, observer)
	index := len(h.subscriptions)
	h.subscriptions = append(h.subscriptions, SubscriptionRecord{
		Subscribe:   h.scheduler.Clock(),
		Unsubscribe: SubscriptionInfinite,
	})
	h.mu.Unlock()

	return NewActionSubscription(func() {
		h.mu.Lock()
		h.subscriptions[index].Unsubscribe = h.scheduler.Clock()
		for i, o := range h.observers {
			if o == observer {
				h.observers = append(h.observers[:i], h.observers[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
	})
}

// ============================================================================
// 冷Observable
// ============================================================================

// ColdObservable 按相对刻度发射的测试源，每个订阅者看到自己的一轮发射
type ColdObservable struct {
	Observable
	scheduler     *TestScheduler
	messages      []Recorded
	mu            sync.Mutex
	subscriptions []SubscriptionRecord
}

// CreateColdObservable 创建冷Observable，刻度相对于订阅时刻
func (s *TestScheduler) CreateColdObservable(messages ...Recorded) *ColdObservable {
	c := &ColdObservable{scheduler: s, messages: messages}
	c.Observable = NewObservable(c.subscribeCore)
	return c
}

// Subscriptions 返回观察到的订阅区间
func (c *ColdObservable) Subscriptions() []SubscriptionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SubscriptionRecord, len(c.subscriptions))
	copy(out, c.subscriptions)
	return out
}

func (c *ColdObservable) subscribeCore(observer Observer) Subscription {
	start := c.scheduler.Clock()

	c.mu.Lock()
	index := len(c.subscriptions)
	c.subscriptions = append(c.subscriptions, SubscriptionRecord{
		Subscribe:   start,
		Unsubscribe: SubscriptionInfinite,
	})
	c.mu.Unlock()

	group := NewCompositeSubscription()
	for _, msg := range c.messages {
		msg := msg
		group.Add(c.scheduler.ScheduleAbsolute(start+msg.Time, func() {
			msg.Value.Accept(observer)
		}))
	}
	group.Add(NewActionSubscription(func() {
		c.mu.Lock()
		c.subscriptions[index].Unsubscribe = c.scheduler.Clock()
		c.mu.Unlock()
	}))
	return group
}
