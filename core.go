// Package reactive provides push-based reactive sequences for Go
// 基于推送模型的响应式序列库，包含可组合的操作符与虚拟时间调度器
package reactive

import (
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// ============================================================================
// 核心错误
// ============================================================================

var (
	// ErrTimeout 在截止时间前没有任何通知到达
	ErrTimeout = errors.New("sequence timed out")

	// ErrEmptySequence 序列在发射任何值之前就完成了
	ErrEmptySequence = errors.New("sequence contains no elements")
)

// ============================================================================
// 函数类型定义
// ============================================================================

// OnNext 处理下一个值的函数
type OnNext func(value interface{})

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// Predicate 谓词函数，用于过滤
type Predicate func(value interface{}) bool

// Transformer 转换函数，用于映射
type Transformer func(value interface{}) (interface{}, error)

// ============================================================================
// 观察者接口
// ============================================================================

// Observer 观察者接口，接收序列的三种通知
// OnNext可以被调用任意次；OnError与OnCompleted互斥且最多出现一次
type Observer interface {
	OnNext(value interface{})
	OnError(err error)
	OnCompleted()
}

// ============================================================================
// 订阅接口
// ============================================================================

// Subscription 订阅接口，管理订阅的生命周期
// Unsubscribe是幂等且线程安全的唯一取消原语
type Subscription interface {
	// Unsubscribe 取消订阅
	Unsubscribe()
	// IsUnsubscribed 检查是否已取消订阅
	IsUnsubscribed() bool
}

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口，决定动作在何时、何处执行
type Scheduler interface {
	// Now 调度器视角下的当前时间
	Now() time.Time

	// Schedule 尽快执行一个动作
	Schedule(action func()) Subscription

	// ScheduleAt 在指定时刻执行动作
	ScheduleAt(due time.Time, action func()) Subscription

	// ScheduleWithDelay 延迟执行动作
	ScheduleWithDelay(delay time.Duration, action func()) Subscription

	// ScheduleRecursive 递归调度：body内调用reschedule会把body重新入队
	// 实现必须通过队列驱动而不是直接递归，保证栈深度有界
	ScheduleRecursive(body func(reschedule func())) Subscription

	// ScheduleRecursiveWithDelay 带初始延迟的递归调度，reschedule接受下一次的延迟
	ScheduleRecursiveWithDelay(initial time.Duration, body func(reschedule func(delay time.Duration))) Subscription
}

// ============================================================================
// Observable 核心接口
// ============================================================================

// Observable 可观察序列的核心接口
// 惰性的推送数据源：Subscribe之前不产生任何通知
type Observable interface {
	// Subscribe 订阅观察者，返回可取消的订阅句柄
	Subscribe(observer Observer) Subscription

	// SubscribeWithCallbacks 使用回调函数订阅
	SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Subscription

	// SubscribeOn 指定订阅（以及退订）动作使用的调度器
	SubscribeOn(scheduler Scheduler) Observable

	// ObserveOn 指定向下游投递通知时使用的调度器
	ObserveOn(scheduler Scheduler) Observable

	// Synchronize 串行化下游观察者的三个方法
	Synchronize() Observable

	// Let 把自身绑定一次后交给f，便于在f内多处引用同一个上游
	Let(f func(Observable) Observable) Observable

	// 转换操作符
	Map(transformer Transformer) Observable
	Filter(predicate Predicate) Observable
	Collect(selector func(value interface{}) (interface{}, bool)) Observable
	OfType(targetType reflect.Type) Observable
	Cast(targetType reflect.Type) Observable
	CastToInt() Observable
	CastToFloat64() Observable
	CastToString() Observable
	DoOnNext(action OnNext) Observable
	Take(count int) Observable
	Materialize() Observable
	Dematerialize() Observable

	// 组合操作符
	Concat(other Observable) Observable
	Amb(other Observable) Observable
	Merge(other Observable) Observable
	MergeAll() Observable
	FlatMap(selector func(value interface{}) Observable) Observable
	TakeUntil(other Observable) Observable

	// 时间操作符
	Timeout(duration time.Duration, scheduler Scheduler) Observable
	TimeoutWith(duration time.Duration, fallback Observable, scheduler Scheduler) Observable
	Delay(duration time.Duration, scheduler Scheduler) Observable

	// 错误处理
	Catch(handler func(err error) Observable) Observable
	OnErrorResumeNext(fallback Observable) Observable
	Retry(count int) Observable
	RetryWithBackoff(policy backoff.BackOff, scheduler Scheduler) Observable
	Repeat() Observable
	RepeatN(count int) Observable

	// 阻塞操作
	BlockingFirst() (interface{}, error)
	BlockingForEach(action OnNext) error
	ToSlice() ([]interface{}, error)
	ToChannel() <-chan Notification
	Iterator() *Iterator
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// Config 配置结构
type Config struct {
	BufferSize int
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 16,
	}
}

// WithBufferSize 设置ToChannel/Iterator使用的缓冲区大小
func WithBufferSize(size int) Option {
	return &bufferSizeOption{size: size}
}

// bufferSizeOption 缓冲区大小选项
type bufferSizeOption struct {
	size int
}

// Apply 应用缓冲区大小选项
func (o *bufferSizeOption) Apply(config *Config) {
	if o.size > 0 {
		config.BufferSize = o.size
	}
}
