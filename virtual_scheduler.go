// Virtual time scheduler for reactive
// 显式推进的逻辑时钟，动作按(到期时刻, 注册序号)排序执行
package reactive

import (
	"container/heap"
	"sync"
	"time"
)

// ============================================================================
// 虚拟时间队列
// ============================================================================

// virtualItem 虚拟队列里的一项工作
type virtualItem struct {
	due       int64
	seq       int64
	action    func()
	cancelled bool
	index     int
}

// virtualQueue 按(due, seq)排序的优先级队列
type virtualQueue []*virtualItem

func (q virtualQueue) Len() int { return len(q) }

func (q virtualQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].seq < q[j].seq
	}
	return q[i].due < q[j].due
}

func (q virtualQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *virtualQueue) Push(x interface{}) {
	item := x.(*virtualItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *virtualQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// ============================================================================
// 虚拟时间调度器
// ============================================================================

// VirtualTimeScheduler 单线程的虚拟时间调度器
// 时钟只会向前：到期时刻早于当前时钟的动作在当前时钟执行
// "尽快执行"的动作落在下一个刻度上，因此同步风格的源
// 的连续发射会带上互不相同的时间戳
type VirtualTimeScheduler struct {
	mu    sync.Mutex
	clock int64
	seq   int64
	queue virtualQueue
}

// NewVirtualTimeScheduler 创建虚拟时间调度器
func NewVirtualTimeScheduler() *VirtualTimeScheduler {
	return &VirtualTimeScheduler{}
}

// Now 虚拟时钟对应的时间，刻度即纳秒
func (s *VirtualTimeScheduler) Now() time.Time {
	return time.Unix(0, s.Clock())
}

// Clock 当前虚拟时钟刻度
func (s *VirtualTimeScheduler) Clock() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Schedule 在下一个刻度执行任务
func (s *VirtualTimeScheduler) Schedule(action func()) Subscription {
	return s.ScheduleAbsolute(s.Clock()+1, action)
}

// ScheduleAt 在指定时刻执行任务
func (s *VirtualTimeScheduler) ScheduleAt(due time.Time, action func()) Subscription {
	return s.ScheduleAbsolute(due.UnixNano(), action)
}

// ScheduleWithDelay 延迟指定刻度执行任务
func (s *VirtualTimeScheduler) ScheduleWithDelay(delay time.Duration, action func()) Subscription {
	return s.ScheduleAbsolute(s.Clock()+delay.Nanoseconds(), action)
}

// ScheduleAbsolute 在绝对刻度执行任务，返回可以取消该任务的订阅
func (s *VirtualTimeScheduler) ScheduleAbsolute(due int64, action func()) Subscription {
	item := &virtualItem{due: due, action: action}
	s.mu.Lock()
	s.seq++
	item.seq = s.seq
	heap.Push(&s.queue, item)
	s.mu.Unlock()

	return NewActionSubscription(func() {
		s.mu.Lock()
		item.cancelled = true
		s.mu.Unlock()
	})
}

// ScheduleRecursive 队列驱动的递归调度，每一步前进一个刻度
func (s *VirtualTimeScheduler) ScheduleRecursive(body func(reschedule func())) Subscription {
	return scheduleRecursive(s, body)
}

// ScheduleRecursiveWithDelay 队列驱动的延迟递归调度
func (s *VirtualTimeScheduler) ScheduleRecursiveWithDelay(initial time.Duration, body func(reschedule func(delay time.Duration))) Subscription {
	return scheduleRecursiveWithDelay(s, initial, body)
}

// Run 执行队列中的全部任务，时钟单调地推进到每个任务的到期刻度
func (s *VirtualTimeScheduler) Run() {
	for {
		item := s.next(nil)
		if item == nil {
			return
		}
		item.action()
	}
}

// RunTo 只执行到期刻度不超过limit的任务，结束后时钟停在limit
func (s *VirtualTimeScheduler) RunTo(limit int64) {
	for {
		item := s.next(&limit)
		if item == nil {
			return
		}
		item.action()
	}
}

// AdvanceBy 把时钟向前推进delta个刻度并执行途中的任务
func (s *VirtualTimeScheduler) AdvanceBy(delta int64) {
	s.RunTo(s.Clock() + delta)
}

// next 弹出下一个要执行的任务并推进时钟；limit非nil时实施上界
func (s *VirtualTimeScheduler) next(limit *int64) *virtualItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) > 0 && s.queue[0].cancelled {
		heap.Pop(&s.queue)
	}
	if len(s.queue) == 0 || (limit != nil && s.queue[0].due > *limit) {
		if limit != nil && s.clock < *limit {
			s.clock = *limit
		}
		return nil
	}

	item := heap.Pop(&s.queue).(*virtualItem)
	if item.due > s.clock {
		s.clock = item.due
	}
	return item
}
