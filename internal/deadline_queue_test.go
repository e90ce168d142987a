package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeadlineQueueOrder(t *testing.T) {
	assert := assert.New(t)

	q := NewDeadlineQueue[int]()
	base := time.Unix(1000, 0)
	for _, s := range []int{5, 2, 8, 1, 9} {
		q.Push(base.Add(time.Duration(s)*time.Second), s)
	}
	assert.Equal(5, q.Len())
	assert.Equal([]int{1, 2, 5, 8, 9}, q.Values())

	d, ok := q.Peek()
	assert.True(ok)
	assert.Equal(1, d.Value)
	assert.Equal(5, q.Len())

	var popped []int
	for {
		d, ok := q.Pop()
		if !ok {
			break
		}
		popped = append(popped, d.Value)
	}
	assert.Equal([]int{1, 2, 5, 8, 9}, popped)

	_, ok = q.Peek()
	assert.False(ok)
}

func TestDeadlineQueueTiesKeepInsertionOrder(t *testing.T) {
	assert := assert.New(t)

	q := NewDeadlineQueue[string]()
	at := time.Unix(1000, 0)
	q.Push(at.Add(time.Second), "late")
	for _, v := range []string{"a", "b", "c", "d"} {
		q.Push(at, v)
	}

	expired := q.PopExpired(at)
	var got []string
	for _, d := range expired {
		got = append(got, d.Value)
	}
	assert.Equal([]string{"a", "b", "c", "d"}, got)
	assert.Equal([]string{"late"}, q.Values())
}

func TestDeadlineQueuePopExpired(t *testing.T) {
	assert := assert.New(t)

	q := NewDeadlineQueue[int]()
	now := time.Unix(1000, 0)
	q.Push(now.Add(-time.Second), 1)
	q.Push(now, 2)
	q.Push(now.Add(time.Nanosecond), 3)

	expired := q.PopExpired(now)
	assert.Len(expired, 2)
	assert.Equal(1, expired[0].Value)
	assert.Equal(2, expired[1].Value)
	assert.Equal(1, q.Len())

	assert.Empty(q.PopExpired(now))
	assert.Len(q.PopExpired(now.Add(time.Second)), 1)
	assert.Equal(0, q.Len())
}

func TestDeadlineQueueRemove(t *testing.T) {
	assert := assert.New(t)

	q := NewDeadlineQueue[int]()
	base := time.Unix(1000, 0)

	var handles []*Deadline[int]
	for i := 0; i < 6; i++ {
		handles = append(handles, q.Push(base.Add(time.Duration(i)*time.Second), i))
	}

	q.Remove(handles[0])
	q.Remove(handles[3])
	assert.Equal([]int{1, 2, 4, 5}, q.Values())

	// already removed
	q.Remove(handles[3])
	assert.Equal(4, q.Len())

	// already popped
	d, ok := q.Pop()
	assert.True(ok)
	assert.Equal(1, d.Value)
	q.Remove(d)
	assert.Equal([]int{2, 4, 5}, q.Values())

	q.Remove(nil)
	assert.Equal(3, q.Len())
}
