// Observer implementations for reactive
// 回调观察者与两个装饰器：串行化、协议保护
package reactive

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// 回调观察者
// ============================================================================

// callbackObserver 把三个回调适配成Observer
type callbackObserver struct {
	onNext     OnNext
	onError    OnError
	onComplete OnComplete
}

// NewObserver 从回调函数创建观察者
// onError为nil时错误视为未处理：记录日志后panic，让错误浮出投递线程
func NewObserver(onNext OnNext, onError OnError, onComplete OnComplete) Observer {
	return &callbackObserver{
		onNext:     onNext,
		onError:    onError,
		onComplete: onComplete,
	}
}

// OnNext 处理下一个值
func (o *callbackObserver) OnNext(value interface{}) {
	if o.onNext != nil {
		o.onNext(value)
	}
}

// OnError 处理错误；没有处理器时重新抛出
func (o *callbackObserver) OnError(err error) {
	if o.onError != nil {
		o.onError(err)
		return
	}
	Logger.WithError(err).Error("unhandled error on observable sequence")
	panic(err)
}

// OnCompleted 处理完成
func (o *callbackObserver) OnCompleted() {
	if o.onComplete != nil {
		o.onComplete()
	}
}

// ============================================================================
// 串行化观察者
// ============================================================================

// synchronizedObserver 用一把互斥锁串行化三个方法
type synchronizedObserver struct {
	mu       sync.Mutex
	observer Observer
}

// NewSynchronizedObserver 创建串行化观察者
func NewSynchronizedObserver(observer Observer) Observer {
	return &synchronizedObserver{observer: observer}
}

// OnNext 串行投递下一个值
func (o *synchronizedObserver) OnNext(value interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer.OnNext(value)
}

// OnError 串行投递错误
func (o *synchronizedObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer.OnError(err)
}

// OnCompleted 串行投递完成
func (o *synchronizedObserver) OnCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer.OnCompleted()
}

// ============================================================================
// 协议保护观察者
// ============================================================================

// safeObserver 强制序列协议：最多一个终止通知，终止之后的调用被丢弃，
// 首个终止通知会关闭上游订阅
// 上游句柄在构造之后通过set安装；在安装之前终止的序列会在安装时立即退订
type safeObserver struct {
	observer   Observer
	upstream   *SerialSubscription
	terminated int32
}

func newSafeObserver(observer Observer) *safeObserver {
	return &safeObserver{
		observer: observer,
		upstream: NewSerialSubscription(),
	}
}

// set 安装上游订阅句柄
func (o *safeObserver) set(sub Subscription) {
	o.upstream.Set(sub)
}

// OnNext 终止之前转发值，终止之后丢弃
func (o *safeObserver) OnNext(value interface{}) {
	if atomic.LoadInt32(&o.terminated) == 0 {
		o.observer.OnNext(value)
	}
}

// OnError 只投递首个终止通知，然后关闭上游
func (o *safeObserver) OnError(err error) {
	if atomic.CompareAndSwapInt32(&o.terminated, 0, 1) {
		o.observer.OnError(err)
		o.upstream.Unsubscribe()
	}
}

// OnCompleted 只投递首个终止通知，然后关闭上游
func (o *safeObserver) OnCompleted() {
	if atomic.CompareAndSwapInt32(&o.terminated, 0, 1) {
		o.observer.OnCompleted()
		o.upstream.Unsubscribe()
	}
}
