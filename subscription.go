// Subscription implementations for reactive
// 取消令牌的各种实现：布尔、动作、可替换槽位、组合容器
package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ============================================================================
// 空订阅
// ============================================================================

// emptySubscription 什么都不做的订阅
type emptySubscription struct{}

// EmptySubscription 空订阅的共享实例
var EmptySubscription Subscription = emptySubscription{}

// Unsubscribe 空操作
func (emptySubscription) Unsubscribe() {}

// IsUnsubscribed 空订阅视为已关闭
func (emptySubscription) IsUnsubscribed() bool { return true }

// ============================================================================
// 布尔订阅
// ============================================================================

// BooleanSubscription 只暴露一个关闭标记的订阅
type BooleanSubscription struct {
	unsubscribed int32
}

// NewSubscription 创建布尔订阅
func NewSubscription() *BooleanSubscription {
	return &BooleanSubscription{}
}

// Unsubscribe 标记为已关闭
func (s *BooleanSubscription) Unsubscribe() {
	atomic.StoreInt32(&s.unsubscribed, 1)
}

// IsUnsubscribed 检查是否已关闭
func (s *BooleanSubscription) IsUnsubscribed() bool {
	return atomic.LoadInt32(&s.unsubscribed) == 1
}

// ============================================================================
// 动作订阅
// ============================================================================

// actionSubscription 首次关闭时恰好执行一次动作的订阅
type actionSubscription struct {
	unsubscribed int32
	action       func()
}

// NewActionSubscription 创建动作订阅
func NewActionSubscription(action func()) Subscription {
	return &actionSubscription{action: action}
}

// Unsubscribe 首次调用执行动作，之后为空操作
func (s *actionSubscription) Unsubscribe() {
	if atomic.CompareAndSwapInt32(&s.unsubscribed, 0, 1) {
		if s.action != nil {
			s.action()
		}
	}
}

// IsUnsubscribed 检查是否已关闭
func (s *actionSubscription) IsUnsubscribed() bool {
	return atomic.LoadInt32(&s.unsubscribed) == 1
}

// ============================================================================
// 可替换订阅
// ============================================================================

// SerialSubscription 最多持有一个内部订阅的可替换槽位
// 替换会关闭之前的内部订阅；容器关闭后再放入的订阅立即被关闭
type SerialSubscription struct {
	mu           sync.Mutex
	current      Subscription
	unsubscribed bool
}

// NewSerialSubscription 创建可替换订阅
func NewSerialSubscription() *SerialSubscription {
	return &SerialSubscription{}
}

// Set 替换内部订阅，关闭被替换者
func (s *SerialSubscription) Set(sub Subscription) {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
		return
	}
	prev := s.current
	s.current = sub
	s.mu.Unlock()
	if prev != nil {
		prev.Unsubscribe()
	}
}

// ClearAndSet 先丢弃并关闭当前内部订阅，再安装factory产生的新订阅
// factory在锁外执行，重入关闭同一容器不会死锁
func (s *SerialSubscription) ClearAndSet(factory func() Subscription) {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		return
	}
	prev := s.current
	s.current = nil
	s.mu.Unlock()
	if prev != nil {
		prev.Unsubscribe()
	}
	s.Set(factory())
}

// Unsubscribe 关闭容器以及当前内部订阅
func (s *SerialSubscription) Unsubscribe() {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		return
	}
	s.unsubscribed = true
	current := s.current
	s.current = nil
	s.mu.Unlock()
	if current != nil {
		current.Unsubscribe()
	}
}

// IsUnsubscribed 检查容器是否已关闭
func (s *SerialSubscription) IsUnsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

// ============================================================================
// 组合订阅
// ============================================================================

// CompositeSubscription 并发子订阅的集合
type CompositeSubscription struct {
	mu           sync.Mutex
	unsubscribed bool
	children     map[Subscription]struct{}
}

// NewCompositeSubscription 创建组合订阅
func NewCompositeSubscription() *CompositeSubscription {
	return &CompositeSubscription{
		children: make(map[Subscription]struct{}),
	}
}

// Add 加入子订阅；容器已关闭时立即关闭参数
func (s *CompositeSubscription) Add(sub Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	s.children[sub] = struct{}{}
	s.mu.Unlock()
}

// Remove 移除并关闭子订阅
func (s *CompositeSubscription) Remove(sub Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	_, present := s.children[sub]
	if present {
		delete(s.children, sub)
	}
	s.mu.Unlock()
	if present {
		sub.Unsubscribe()
	}
}

// Unsubscribe 关闭所有子订阅并清空集合
// 即使某个子订阅的清理动作panic，其余子订阅仍会被关闭
func (s *CompositeSubscription) Unsubscribe() {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		return
	}
	s.unsubscribed = true
	children := make([]Subscription, 0, len(s.children))
	for child := range s.children {
		children = append(children, child)
	}
	s.children = make(map[Subscription]struct{})
	s.mu.Unlock()

	var failures error
	for _, child := range children {
		if err := unsubscribeRecovering(child); err != nil {
			failures = multierror.Append(failures, err)
		}
	}
	if failures != nil {
		Logger.WithError(failures).Warn("composite subscription teardown recovered panics")
	}
}

// IsUnsubscribed 检查容器是否已关闭
func (s *CompositeSubscription) IsUnsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

// unsubscribeRecovering 关闭子订阅并把panic转换为错误
func unsubscribeRecovering(sub Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("unsubscribe panic: %v", r)
		}
	}()
	sub.Unsubscribe()
	return nil
}

// ============================================================================
// 调度退订的订阅
// ============================================================================

// NewScheduledSubscription 包装inner，使退订动作在scheduler上执行而不是内联执行
func NewScheduledSubscription(scheduler Scheduler, inner Subscription) Subscription {
	return NewActionSubscription(func() {
		scheduler.Schedule(inner.Unsubscribe)
	})
}
