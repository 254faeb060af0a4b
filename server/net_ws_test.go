package server

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// gatedConn 的写入阻塞到 gate 关闭；fail 为 true 时写入直接报错
type gatedConn struct {
	gate chan struct{}
	fail bool

	mu      sync.Mutex
	written int
	closed  chan struct{}
	once    sync.Once
}

func newGatedConn() *gatedConn {
	return &gatedConn{gate: make(chan struct{}), closed: make(chan struct{})}
}

func (g *gatedConn) ReadFrame() ([]byte, error) {
	<-g.closed
	return nil, io.EOF
}

func (g *gatedConn) WriteFrame(b []byte) error {
	if g.fail {
		return errors.New("broken pipe")
	}
	<-g.gate
	g.mu.Lock()
	g.written++
	g.mu.Unlock()
	return nil
}

func (g *gatedConn) Close() error {
	g.once.Do(func() { close(g.closed) })
	return nil
}

func (g *gatedConn) RemoteAddr() string { return "gated" }

func (g *gatedConn) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.written
}

// fillQueue 让写协程阻塞在第一条消息上，再占满发送队列；返回入队条数
func fillQueue(t *testing.T, c *ClientConn) int {
	t.Helper()
	if !c.Enqueue([]byte("x")) {
		t.Fatalf("first enqueue failed")
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(c.send) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("write pump never picked up the first message")
		}
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < sendQueueSize; i++ {
		if !c.Enqueue([]byte("x")) {
			t.Fatalf("enqueue %d dropped before the queue was full", i)
		}
	}
	return sendQueueSize + 1
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	g := newGatedConn()
	c := NewClientConn(g)
	defer c.Close()
	fillQueue(t, c)
	if c.Enqueue([]byte("late")) {
		t.Fatalf("enqueue into a full queue should drop")
	}
	close(g.gate)
}

func TestEnqueueWaitTimesOutWhenFull(t *testing.T) {
	g := newGatedConn()
	c := NewClientConn(g)
	defer c.Close()
	fillQueue(t, c)

	begin := time.Now()
	if c.EnqueueWait([]byte("over"), 30*time.Millisecond) {
		t.Fatalf("expected timeout on a full queue")
	}
	if d := time.Since(begin); d < 30*time.Millisecond {
		t.Fatalf("returned after %s, before the deadline", d)
	}
	close(g.gate)
}

func TestEnqueueWaitSucceedsWhenRoomAppears(t *testing.T) {
	g := newGatedConn()
	c := NewClientConn(g)
	n := fillQueue(t, c)

	time.AfterFunc(20*time.Millisecond, func() { close(g.gate) })
	if !c.EnqueueWait([]byte("over"), 2*time.Second) {
		t.Fatalf("expected the queue to drain in time")
	}
	c.CloseAfterFlush()
	waitFlushed(t, c)
	if got := g.count(); got != n+1 {
		t.Fatalf("written = %d, want %d", got, n+1)
	}
}

func TestEnqueueAfterCloseRejected(t *testing.T) {
	c := NewClientConn(newFakeConn())
	c.CloseAfterFlush()
	c.CloseAfterFlush()
	if c.Enqueue([]byte("x")) {
		t.Fatalf("enqueue after close should fail")
	}
	begin := time.Now()
	if c.EnqueueWait([]byte("x"), time.Second) {
		t.Fatalf("enqueue wait after close should fail")
	}
	if time.Since(begin) > 100*time.Millisecond {
		t.Fatalf("enqueue wait blocked on a closed conn")
	}
	waitFlushed(t, c)
}

func TestWriteErrorWakesWaiters(t *testing.T) {
	g := newGatedConn()
	g.fail = true
	c := NewClientConn(g)
	if !c.Enqueue([]byte("first")) {
		t.Fatalf("first enqueue should succeed")
	}
	waitFlushed(t, c)

	begin := time.Now()
	if c.EnqueueWait([]byte("second"), time.Second) {
		t.Fatalf("enqueue wait on a broken conn should fail")
	}
	if time.Since(begin) > 100*time.Millisecond {
		t.Fatalf("enqueue wait not woken by write error")
	}
}
