// Observer and notification tests for reactive
// 观察者装饰器与通知物化的测试
package reactive

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver 直接记录收到的通知，测试专用
type recordingObserver struct {
	mu            sync.Mutex
	notifications []Notification
}

func (o *recordingObserver) OnNext(value interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifications = append(o.notifications, Next(value))
}

func (o *recordingObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifications = append(o.notifications, ErrorNotification(err))
}

func (o *recordingObserver) OnCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifications = append(o.notifications, Completed())
}

func (o *recordingObserver) Notifications() []Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Notification, len(o.notifications))
	copy(out, o.notifications)
	return out
}

func TestNotification(t *testing.T) {
	t.Run("Accept分发到对应的方法", func(t *testing.T) {
		rec := &recordingObserver{}
		boom := errors.New("boom")

		Next(7).Accept(rec)
		Completed().Accept(rec)
		ErrorNotification(boom).Accept(rec)

		require.Len(t, rec.Notifications(), 3)
		assert.Equal(t, Next(7), rec.Notifications()[0])
		assert.Equal(t, Completed(), rec.Notifications()[1])
		assert.Equal(t, ErrorNotification(boom), rec.Notifications()[2])
	})

	t.Run("访问器", func(t *testing.T) {
		boom := errors.New("boom")

		assert.True(t, Next("x").HasValue())
		assert.Equal(t, "x", Next("x").Value())
		assert.Nil(t, Next("x").Err())

		assert.True(t, Completed().IsCompleted())
		assert.Nil(t, Completed().Value())

		assert.True(t, ErrorNotification(boom).IsError())
		assert.Equal(t, boom, ErrorNotification(boom).Err())
	})

	t.Run("字符串表示", func(t *testing.T) {
		assert.Equal(t, "OnNext(1)", Next(1).String())
		assert.Equal(t, "OnCompleted", Completed().String())
	})
}

func TestCallbackObserver(t *testing.T) {
	t.Run("nil回调被忽略", func(t *testing.T) {
		observer := NewObserver(nil, func(error) {}, nil)
		require.NotPanics(t, func() {
			observer.OnNext(1)
			observer.OnCompleted()
		})
	})

	t.Run("没有错误处理器时重新抛出", func(t *testing.T) {
		observer := NewObserver(nil, nil, nil)
		assert.Panics(t, func() {
			observer.OnError(errors.New("unhandled"))
		})
	})
}

func TestSynchronizedObserver(t *testing.T) {
	t.Run("并发OnNext串行投递", func(t *testing.T) {
		rec := &countingObserver{}
		observer := NewSynchronizedObserver(rec)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					observer.OnNext(j)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 8000, rec.count)
	})
}

// countingObserver 非线程安全的计数观察者，用来检验串行化装饰器
type countingObserver struct {
	count int
}

func (o *countingObserver) OnNext(interface{}) { o.count++ }
func (o *countingObserver) OnError(error)      {}
func (o *countingObserver) OnCompleted()       {}

func TestSafeObserver(t *testing.T) {
	t.Run("最多投递一个终止通知", func(t *testing.T) {
		rec := &recordingObserver{}
		safe := newSafeObserver(rec)

		safe.OnNext(1)
		safe.OnCompleted()
		safe.OnCompleted()
		safe.OnError(errors.New("late"))
		safe.OnNext(2)

		assert.Equal(t, []Notification{Next(1), Completed()}, rec.Notifications())
	})

	t.Run("首个终止通知关闭上游", func(t *testing.T) {
		rec := &recordingObserver{}
		safe := newSafeObserver(rec)
		upstream := NewSubscription()
		safe.set(upstream)

		safe.OnCompleted()
		assert.True(t, upstream.IsUnsubscribed())
	})

	t.Run("终止在安装上游之前发生时安装即关闭", func(t *testing.T) {
		rec := &recordingObserver{}
		safe := newSafeObserver(rec)

		safe.OnError(errors.New("early"))
		upstream := NewSubscription()
		safe.set(upstream)

		assert.True(t, upstream.IsUnsubscribed())
	})
}
