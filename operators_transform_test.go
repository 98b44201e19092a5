// Transformation operator tests for reactive
// Map/Filter/Collect/Cast族/Take/Materialize的行为测试
package reactive

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Run("逐值转换", func(t *testing.T) {
		values, err := Just(1, 2, 3).Map(func(v interface{}) (interface{}, error) {
			return v.(int) * 2, nil
		}).ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{2, 4, 6}, values)
	})

	t.Run("转换失败变成OnError并终止", func(t *testing.T) {
		boom := errors.New("boom")
		values, err := Just(1, 2, 3).Map(func(v interface{}) (interface{}, error) {
			if v.(int) == 2 {
				return nil, boom
			}
			return v, nil
		}).ToSlice()

		assert.Equal(t, boom, err)
		assert.Equal(t, []interface{}{1}, values)
	})

	t.Run("转换panic变成OnError", func(t *testing.T) {
		_, err := Just(1).Map(func(interface{}) (interface{}, error) {
			panic("bad transform")
		}).ToSlice()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad transform")
	})

	t.Run("错误终止后上游订阅被关闭", func(t *testing.T) {
		s := NewTestScheduler()
		hot := s.CreateHotObservable(
			OnNextRecord(300, 1),
			OnNextRecord(400, 2),
		)

		observer := s.StartWithDefaults(func() Observable {
			return hot.Map(func(interface{}) (interface{}, error) {
				return nil, errors.New("reject")
			})
		})

		require.Len(t, observer.Messages(), 1)
		assert.True(t, observer.Messages()[0].Value.IsError())
		assert.Equal(t, []SubscriptionRecord{Subscribed(200, 300)}, hot.Subscriptions())
	})
}

func TestFilter(t *testing.T) {
	t.Run("只放行谓词为真的值", func(t *testing.T) {
		values, err := Just(1, 2, 3, 4, 5).Filter(func(v interface{}) bool {
			return v.(int)%2 == 0
		}).ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{2, 4}, values)
	})

	t.Run("谓词panic变成OnError", func(t *testing.T) {
		_, err := Just(1).Filter(func(interface{}) bool {
			panic("bad predicate")
		}).ToSlice()
		require.Error(t, err)
	})
}

func TestCollect(t *testing.T) {
	t.Run("等价于Filter加Map", func(t *testing.T) {
		values, err := Just(1, "two", 3, "four").Collect(func(v interface{}) (interface{}, bool) {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			return s + "!", true
		}).ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"two!", "four!"}, values)
	})
}

func TestOfTypeAndCast(t *testing.T) {
	t.Run("OfType过滤后保证类型", func(t *testing.T) {
		values, err := Just(1, "a", 2, "b").OfType(reflect.TypeOf("")).ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"a", "b"}, values)
	})

	t.Run("Cast遇到不匹配类型以错误终止", func(t *testing.T) {
		values, err := Just("a", 1).Cast(reflect.TypeOf("")).ToSlice()
		require.Error(t, err)
		assert.Equal(t, []interface{}{"a"}, values)
	})

	t.Run("CastToInt强制转换", func(t *testing.T) {
		values, err := Just("42", 7, "10").CastToInt().ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{42, 7, 10}, values)
	})

	t.Run("CastToInt失败以错误终止", func(t *testing.T) {
		_, err := Just("not a number").CastToInt().ToSlice()
		require.Error(t, err)
	})

	t.Run("CastToString与CastToFloat64", func(t *testing.T) {
		strs, err := Just(1, 2.5).CastToString().ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"1", "2.5"}, strs)

		floats, err := Just("1.5", 2).CastToFloat64().ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1.5, 2.0}, floats)
	})
}

func TestDoOnNext(t *testing.T) {
	t.Run("副作用先于发射且不改变值", func(t *testing.T) {
		var seen []interface{}
		values, err := Just(1, 2, 3).DoOnNext(func(v interface{}) {
			seen = append(seen, v)
		}).ToSlice()

		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 2, 3}, values)
		assert.Equal(t, []interface{}{1, 2, 3}, seen)
	})

	t.Run("错误穿过时不触发副作用", func(t *testing.T) {
		calls := 0
		_, err := Error(errors.New("boom")).DoOnNext(func(interface{}) {
			calls++
		}).ToSlice()

		require.Error(t, err)
		assert.Equal(t, 0, calls)
	})
}

func TestTake(t *testing.T) {
	t.Run("取满即完成", func(t *testing.T) {
		values, err := Just(1, 2, 3, 4, 5).Take(3).ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 2, 3}, values)
	})

	t.Run("取0个订阅即完成", func(t *testing.T) {
		values, err := Just(1, 2, 3).Take(0).ToSlice()
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("取数超过长度得到全部", func(t *testing.T) {
		values, err := Just(1, 2).Take(10).ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 2}, values)
	})

	t.Run("取满时关闭上游订阅", func(t *testing.T) {
		s := NewTestScheduler()
		hot := s.CreateHotObservable(
			OnNextRecord(300, 1),
			OnNextRecord(400, 2),
			OnNextRecord(500, 3),
			OnCompletedRecord(600),
		)

		observer := s.StartWithDefaults(func() Observable {
			return hot.Take(2)
		})

		assert.Equal(t, []Recorded{
			OnNextRecord(300, 1),
			OnNextRecord(400, 2),
			OnCompletedRecord(400),
		}, observer.Messages())
		assert.Equal(t, []SubscriptionRecord{Subscribed(200, 400)}, hot.Subscriptions())
	})
}

func TestMaterialize(t *testing.T) {
	t.Run("物化完成序列", func(t *testing.T) {
		values, err := Just(1, 2).Materialize().ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{Next(1), Next(2), Completed()}, values)
	})

	t.Run("物化错误序列后正常完成", func(t *testing.T) {
		boom := errors.New("boom")
		values, err := Error(boom).Materialize().ToSlice()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{ErrorNotification(boom)}, values)
	})

	t.Run("物化再去物化是恒等变换", func(t *testing.T) {
		direct := &recordingObserver{}
		roundTrip := &recordingObserver{}

		Just(1, 2, 3).Subscribe(direct)
		Just(1, 2, 3).Materialize().Dematerialize().Subscribe(roundTrip)
		assert.Equal(t, direct.Notifications(), roundTrip.Notifications())
	})

	t.Run("错误序列的物化往返", func(t *testing.T) {
		boom := errors.New("boom")
		source := Just(1).Concat(Error(boom))

		direct := &recordingObserver{}
		roundTrip := &recordingObserver{}
		source.Subscribe(direct)
		source.Materialize().Dematerialize().Subscribe(roundTrip)

		assert.Equal(t, direct.Notifications(), roundTrip.Notifications())
		assert.Equal(t, []Notification{Next(1), ErrorNotification(boom)}, roundTrip.Notifications())
	})

	t.Run("去物化遇到非Notification值以错误终止", func(t *testing.T) {
		_, err := Just("not a notification").Dematerialize().ToSlice()
		require.Error(t, err)
	})
}
