// Transformation operators for reactive
// 逐值转换操作符：Map, Filter, Collect, Cast族, DoOnNext, Take, Materialize
package reactive

import (
	"reflect"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// safeApply 执行用户转换函数，把panic转换为错误
func safeApply(transformer Transformer, value interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("transform panic: %v", r)
		}
	}()
	return transformer(value)
}

// safePredicate 执行用户谓词，把panic转换为错误
func safePredicate(predicate Predicate, value interface{}) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("predicate panic: %v", r)
		}
	}()
	return predicate(value), nil
}

// ============================================================================
// 转换操作符
// ============================================================================

// Map 逐值转换；转换失败或panic转换为OnError并终止序列
func (o *observableImpl) Map(transformer Transformer) Observable {
	return NewObservable(func(observer Observer) Subscription {
		return o.Subscribe(NewObserver(
			func(value interface{}) {
				result, err := safeApply(transformer, value)
				if err != nil {
					observer.OnError(err)
					return
				}
				observer.OnNext(result)
			},
			observer.OnError,
			observer.OnCompleted,
		))
	})
}

// Filter 只放行谓词为真的值；谓词panic转换为OnError
func (o *observableImpl) Filter(predicate Predicate) Observable {
	return NewObservable(func(observer Observer) Subscription {
		return o.Subscribe(NewObserver(
			func(value interface{}) {
				keep, err := safePredicate(predicate, value)
				if err != nil {
					observer.OnError(err)
					return
				}
				if keep {
					observer.OnNext(value)
				}
			},
			observer.OnError,
			observer.OnCompleted,
		))
	})
}

// Collect 部分函数式转换：selector第二个返回值为真时才发射转换结果
// 等价于Filter加Map的组合
func (o *observableImpl) Collect(selector func(value interface{}) (interface{}, bool)) Observable {
	return NewObservable(func(observer Observer) Subscription {
		return o.Subscribe(NewObserver(
			func(value interface{}) {
				result, err := safeApply(func(v interface{}) (interface{}, error) {
					out, defined := selector(v)
					if !defined {
						return nil, errSkipValue
					}
					return out, nil
				}, value)
				if err == errSkipValue {
					return
				}
				if err != nil {
					observer.OnError(err)
					return
				}
				observer.OnNext(result)
			},
			observer.OnError,
			observer.OnCompleted,
		))
	})
}

// errSkipValue Collect内部使用的占位错误，表示selector未定义于该值
var errSkipValue = errors.New("value not collected")

// OfType 只放行可赋值给目标类型的值
func (o *observableImpl) OfType(targetType reflect.Type) Observable {
	return o.Filter(func(value interface{}) bool {
		t := reflect.TypeOf(value)
		return t != nil && t.AssignableTo(targetType)
	})
}

// Cast 要求每个值都可赋值给目标类型，否则以错误终止
func (o *observableImpl) Cast(targetType reflect.Type) Observable {
	return o.Map(func(value interface{}) (interface{}, error) {
		t := reflect.TypeOf(value)
		if t == nil || !t.AssignableTo(targetType) {
			return nil, errors.Errorf("cast: %T is not assignable to %s", value, targetType)
		}
		return value, nil
	})
}

// CastToInt 把每个值强制转换为int，失败以错误终止
func (o *observableImpl) CastToInt() Observable {
	return o.Map(func(value interface{}) (interface{}, error) {
		result, err := cast.ToIntE(value)
		if err != nil {
			return nil, errors.Wrap(err, "cast to int")
		}
		return result, nil
	})
}

// CastToFloat64 把每个值强制转换为float64，失败以错误终止
func (o *observableImpl) CastToFloat64() Observable {
	return o.Map(func(value interface{}) (interface{}, error) {
		result, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, errors.Wrap(err, "cast to float64")
		}
		return result, nil
	})
}

// CastToString 把每个值强制转换为string，失败以错误终止
func (o *observableImpl) CastToString() Observable {
	return o.Map(func(value interface{}) (interface{}, error) {
		result, err := cast.ToStringE(value)
		if err != nil {
			return nil, errors.Wrap(err, "cast to string")
		}
		return result, nil
	})
}

// DoOnNext 对每个值先执行副作用再原样发射；错误直接穿过，不触发副作用
func (o *observableImpl) DoOnNext(action OnNext) Observable {
	return o.Map(func(value interface{}) (interface{}, error) {
		action(value)
		return value, nil
	})
}

// Take 只取前count个值，取满时立即完成；count为0时订阅即完成
func (o *observableImpl) Take(count int) Observable {
	return NewObservable(func(observer Observer) Subscription {
		if count <= 0 {
			observer.OnCompleted()
			return NewSubscription()
		}
		taken := int32(0)
		limit := int32(count)
		return o.Subscribe(NewObserver(
			func(value interface{}) {
				n := atomic.AddInt32(&taken, 1)
				if n < limit {
					observer.OnNext(value)
				} else if n == limit {
					observer.OnNext(value)
					observer.OnCompleted()
				}
			},
			observer.OnError,
			observer.OnCompleted,
		))
	})
}

// ============================================================================
// 物化与去物化
// ============================================================================

// Materialize 把每个观察者调用物化为Notification值
// 终止通知物化后序列正常完成
func (o *observableImpl) Materialize() Observable {
	return NewObservable(func(observer Observer) Subscription {
		return o.Subscribe(NewObserver(
			func(value interface{}) {
				observer.OnNext(Next(value))
			},
			func(err error) {
				observer.OnNext(ErrorNotification(err))
				observer.OnCompleted()
			},
			func() {
				observer.OnNext(Completed())
				observer.OnCompleted()
			},
		))
	})
}

// Dematerialize 把Notification值还原为对观察者的调用
// 终止通知之后的值由协议保护层丢弃
func (o *observableImpl) Dematerialize() Observable {
	return NewObservable(func(observer Observer) Subscription {
		return o.Subscribe(NewObserver(
			func(value interface{}) {
				n, ok := value.(Notification)
				if !ok {
					observer.OnError(errors.Errorf("dematerialize: %T is not a Notification", value))
					return
				}
				n.Accept(observer)
			},
			observer.OnError,
			observer.OnCompleted,
		))
	})
}
