// Notification types for reactive
// 把对观察者的一次调用物化为值，供Materialize/Dematerialize与测试记录使用
package reactive

import (
	"fmt"
)

// ============================================================================
// 通知类型
// ============================================================================

// NotificationKind 通知的种类
type NotificationKind int

const (
	// KindNext 携带一个值的通知
	KindNext NotificationKind = iota
	// KindCompleted 正常完成的终止通知
	KindCompleted
	// KindError 携带错误的终止通知
	KindError
)

// Notification 物化的观察者调用：Next(v)、Completed或Error(e)之一
type Notification struct {
	kind  NotificationKind
	value interface{}
	err   error
}

// Next 创建携带值的通知
func Next(value interface{}) Notification {
	return Notification{kind: KindNext, value: value}
}

// Completed 创建完成通知
func Completed() Notification {
	return Notification{kind: KindCompleted}
}

// ErrorNotification 创建错误通知
func ErrorNotification(err error) Notification {
	return Notification{kind: KindError, err: err}
}

// Kind 返回通知的种类
func (n Notification) Kind() NotificationKind {
	return n.kind
}

// HasValue 检查是否为携带值的通知
func (n Notification) HasValue() bool {
	return n.kind == KindNext
}

// IsCompleted 检查是否为完成通知
func (n Notification) IsCompleted() bool {
	return n.kind == KindCompleted
}

// IsError 检查是否为错误通知
func (n Notification) IsError() bool {
	return n.kind == KindError
}

// Value 返回通知携带的值，非Next通知返回nil
func (n Notification) Value() interface{} {
	if n.kind != KindNext {
		return nil
	}
	return n.value
}

// Err 返回通知携带的错误，非Error通知返回nil
func (n Notification) Err() error {
	if n.kind != KindError {
		return nil
	}
	return n.err
}

// Accept 把通知分发到观察者对应的方法上
func (n Notification) Accept(observer Observer) {
	switch n.kind {
	case KindNext:
		observer.OnNext(n.value)
	case KindCompleted:
		observer.OnCompleted()
	case KindError:
		observer.OnError(n.err)
	}
}

// String 通知的可读表示
func (n Notification) String() string {
	switch n.kind {
	case KindNext:
		return fmt.Sprintf("OnNext(%v)", n.value)
	case KindCompleted:
		return "OnCompleted"
	default:
		return fmt.Sprintf("OnError(%v)", n.err)
	}
}
