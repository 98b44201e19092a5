// Blocking operators for reactive
// 阻塞消费端：BlockingFirst, BlockingForEach, ToSlice, ToChannel, Iterator
package reactive

import (
	"sync"

	"github.com/pkg/errors"
)

// ============================================================================
// 阻塞取值
// ============================================================================

// BlockingFirst 阻塞调用者直到第一个通知到达
// 返回首个值；错误原样返回；没有值就完成时返回ErrEmptySequence
func (o *observableImpl) BlockingFirst() (interface{}, error) {
	type outcome struct {
		value interface{}
		err   error
	}
	latch := make(chan outcome, 1)
	var once sync.Once

	subscription := o.Subscribe(NewObserver(
		func(value interface{}) {
			once.Do(func() { latch <- outcome{value: value} })
		},
		func(err error) {
			once.Do(func() { latch <- outcome{err: err} })
		},
		func() {
			once.Do(func() { latch <- outcome{err: errors.WithStack(ErrEmptySequence)} })
		},
	))

	result := <-latch
	subscription.Unsubscribe()
	return result.value, result.err
}

// BlockingForEach 阻塞地对每个值执行action，序列出错时返回该错误
func (o *observableImpl) BlockingForEach(action OnNext) error {
	for n := range o.ToChannel() {
		switch {
		case n.HasValue():
			action(n.Value())
		case n.IsError():
			return n.Err()
		}
	}
	return nil
}

// ToSlice 阻塞地收集全部值
func (o *observableImpl) ToSlice() ([]interface{}, error) {
	out := make([]interface{}, 0)
	for n := range o.ToChannel() {
		switch {
		case n.HasValue():
			out = append(out, n.Value())
		case n.IsError():
			return out, n.Err()
		}
	}
	return out, nil
}

// ============================================================================
// 拉取序列
// ============================================================================

// ToChannel 把序列物化到有界channel上
// 缓冲满时生产者阻塞；终止通知写入后channel关闭，订阅随之结束
func (o *observableImpl) ToChannel() <-chan Notification {
	ch := make(chan Notification, o.config.BufferSize)
	go func() {
		o.Subscribe(NewObserver(
			func(value interface{}) {
				ch <- Next(value)
			},
			func(err error) {
				ch <- ErrorNotification(err)
				close(ch)
			},
			func() {
				ch <- Completed()
				close(ch)
			},
		))
	}()
	return ch
}

// Iterator 惰性拉取序列，消费者不取则生产者在缓冲写满后阻塞
type Iterator struct {
	ch  <-chan Notification
	err error
}

// Iterator 返回序列的拉取迭代器
func (o *observableImpl) Iterator() *Iterator {
	return &Iterator{ch: o.ToChannel()}
}

// Next 取下一个值；序列终止时返回false，错误可通过Err取得
func (it *Iterator) Next() (interface{}, bool) {
	n, ok := <-it.ch
	if !ok {
		return nil, false
	}
	switch {
	case n.HasValue():
		return n.Value(), true
	case n.IsError():
		it.err = n.Err()
		return nil, false
	default:
		return nil, false
	}
}

// Err 迭代结束后返回终止错误，正常完成时为nil
func (it *Iterator) Err() error {
	return it.err
}
