package eventloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsPostsInOrder(t *testing.T) {
	l := New(context.Background())
	defer l.Close()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Call(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_PostFromLoopDoesNotBlock(t *testing.T) {
	l := New(context.Background())
	defer l.Close()

	done := make(chan struct{})
	l.Post(func() {
		for i := 0; i < 1000; i++ {
			l.Post(func() {})
		}
		l.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for nested posts")
	}
}

func TestLoop_StoppedTimerNeverFires(t *testing.T) {
	l := New(context.Background())
	defer l.Close()

	fired := make(chan struct{}, 1)
	var tm Timer
	require.NoError(t, l.Call(context.Background(), func() {
		tm = l.AfterFunc(200*time.Millisecond, func() { fired <- struct{}{} })
	}))
	require.NoError(t, l.Call(context.Background(), func() {
		assert.True(t, tm.Stop())
	}))

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestManual_AdvanceFiresInDueOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var got []string
	m.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	m.AfterFunc(time.Second, func() {
		got = append(got, "a")
		m.AfterFunc(500*time.Millisecond, func() { got = append(got, "a2") })
	})
	stopped := m.AfterFunc(1500*time.Millisecond, func() { got = append(got, "never") })
	assert.True(t, stopped.Stop())

	m.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "a2", "b"}, got)
	assert.Equal(t, time.Unix(3, 0), m.Now())
	assert.Zero(t, m.Pending())
}

func TestManual_GoRunsInlineButPostsWaitForDrain(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	applied := false
	m.Go(func() {
		m.Post(func() { applied = true })
	})
	assert.False(t, applied)
	m.Drain()
	assert.True(t, applied)
}
