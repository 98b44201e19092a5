// Scheduler tests for reactive
// 立即、蹦床与池调度器的行为测试
package reactive

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediateScheduler(t *testing.T) {
	t.Run("同步执行", func(t *testing.T) {
		ran := false
		ImmediateScheduler.Schedule(func() { ran = true })
		assert.True(t, ran)
	})

	t.Run("递归调度用循环驱动不增长栈", func(t *testing.T) {
		count := 0
		ImmediateScheduler.ScheduleRecursive(func(reschedule func()) {
			count++
			if count < 100000 {
				reschedule()
			}
		})
		assert.Equal(t, 100000, count)
	})
}

func TestTrampolineScheduler(t *testing.T) {
	t.Run("重入调度入队而不是递归", func(t *testing.T) {
		scheduler := NewTrampolineScheduler()
		var order []string

		scheduler.Schedule(func() {
			order = append(order, "outer")
			scheduler.Schedule(func() {
				order = append(order, "inner")
			})
			// 嵌套任务只入队，还没有执行
			order = append(order, "after-schedule")
		})

		assert.Equal(t, []string{"outer", "after-schedule", "inner"}, order)
	})

	t.Run("同一到期时刻按注册顺序执行", func(t *testing.T) {
		scheduler := NewTrampolineScheduler()
		var order []int

		scheduler.Schedule(func() {
			for i := 0; i < 5; i++ {
				i := i
				scheduler.Schedule(func() { order = append(order, i) })
			}
		})

		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("RunImmediate返回前排空队列", func(t *testing.T) {
		scheduler := NewTrampolineScheduler()
		drained := false

		scheduler.RunImmediate(func() Subscription {
			scheduler.Schedule(func() { drained = true })
			assert.False(t, drained)
			return EmptySubscription
		})
		assert.True(t, drained)
	})

	t.Run("取消的任务被跳过", func(t *testing.T) {
		scheduler := NewTrampolineScheduler()
		ran := false

		scheduler.Schedule(func() {
			sub := scheduler.Schedule(func() { ran = true })
			sub.Unsubscribe()
		})
		assert.False(t, ran)
	})

	t.Run("递归调度逐步推进", func(t *testing.T) {
		scheduler := NewTrampolineScheduler()
		count := 0
		scheduler.ScheduleRecursive(func(reschedule func()) {
			count++
			if count < 10000 {
				reschedule()
			}
		})
		assert.Equal(t, 10000, count)
	})
}

func TestNewThreadScheduler(t *testing.T) {
	t.Run("在其他goroutine上执行", func(t *testing.T) {
		done := make(chan struct{})
		NewThreadScheduler.Schedule(func() { close(done) })

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("任务没有执行")
		}
	})

	t.Run("延迟任务可以取消", func(t *testing.T) {
		ran := make(chan struct{}, 1)
		sub := NewThreadScheduler.ScheduleWithDelay(50*time.Millisecond, func() {
			ran <- struct{}{}
		})
		sub.Unsubscribe()

		select {
		case <-ran:
			t.Fatal("被取消的任务仍然执行了")
		case <-time.After(150 * time.Millisecond):
		}
	})
}

func TestThreadPoolScheduler(t *testing.T) {
	t.Run("任务在池中执行", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		count := 0

		for i := 0; i < 32; i++ {
			wg.Add(1)
			ThreadPoolScheduler.Schedule(func() {
				mu.Lock()
				count++
				mu.Unlock()
				wg.Done()
			})
		}

		waitDone := make(chan struct{})
		go func() {
			wg.Wait()
			close(waitDone)
		}()
		select {
		case <-waitDone:
		case <-time.After(2 * time.Second):
			t.Fatal("池任务没有全部执行")
		}

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 32, count)
	})

	t.Run("递归延迟调度可以取消", func(t *testing.T) {
		var mu sync.Mutex
		count := 0
		sub := ThreadPoolScheduler.ScheduleRecursiveWithDelay(10*time.Millisecond, func(reschedule func(time.Duration)) {
			mu.Lock()
			count++
			mu.Unlock()
			reschedule(10 * time.Millisecond)
		})

		time.Sleep(60 * time.Millisecond)
		sub.Unsubscribe()
		mu.Lock()
		after := count
		mu.Unlock()
		require.Greater(t, after, 0)

		time.Sleep(60 * time.Millisecond)
		mu.Lock()
		final := count
		mu.Unlock()
		// 退订后至多还有一个已经在途的步骤
		assert.LessOrEqual(t, final, after+1)
	})
}
