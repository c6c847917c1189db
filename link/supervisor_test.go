package link

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/SSSOCPaulCote/gux"
	"github.com/rs/zerolog"
	"github.com/splotd/splotd/queue"
	"github.com/splotd/splotd/series"
)

var errDeviceRemoved = errors.New("device reports readiness to read but returned no data")

// fakeConn is a scripted device handle
type fakeConn struct {
	mu     sync.Mutex
	data   []byte
	err    error
	closed bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if len(c.data) == 0 {
		return 0, nil // timed-out read: transient no-data
	}
	n := copy(p, c.data)
	c.data = c.data[n:]
	return n, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) feed(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, s...)
}

func (c *fakeConn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeOpener hands out scripted handles in order, failing while empty
type fakeOpener struct {
	mu    sync.Mutex
	conns []*fakeConn
	opens int
}

func (o *fakeOpener) open(portName string, baudRate int) (Conn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	if len(o.conns) == 0 {
		return nil, errors.New("no such device")
	}
	conn := o.conns[0]
	o.conns = o.conns[1:]
	return conn, nil
}

func (o *fakeOpener) push(c *fakeConn) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conns = append(o.conns, c)
}

// newTestSupervisor wires a supervisor with fresh stores and the given opener
func newTestSupervisor(t *testing.T, open Opener) (*Supervisor, *gux.Store, *series.Store, *queue.Queue) {
	t.Helper()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	stateStore := gux.CreateStore(InitialState, LinkReducer)
	rtdStore, err := series.NewStore(100, nil)
	if err != nil {
		t.Fatalf("could not create series store: %v", err)
	}
	outQueue := queue.NewQueue()
	supervisor, err := NewSupervisor(&logger, stateStore, rtdStore, outQueue, open, "/dev/ttyTEST0", 115200)
	if err != nil {
		t.Fatalf("could not create supervisor: %v", err)
	}
	return supervisor, stateStore, rtdStore, outQueue
}

// linkState reads the current link state out of the gux store
func linkState(t *testing.T, stateStore *gux.Store) State {
	t.Helper()
	currentState := stateStore.GetState()
	state, ok := currentState.(State)
	if !ok {
		t.Fatalf("unexpected state type: %T", currentState)
	}
	return state
}

// waitFor polls a condition with a deadline
func waitFor(t *testing.T, msg string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// TestSupervisorInvalidBaudRate ensures construction-time validation
func TestSupervisorInvalidBaudRate(t *testing.T) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	_, err := NewSupervisor(&logger, nil, nil, nil, nil, "/dev/ttyTEST0", 0)
	if err != ErrInvalidBaudRate {
		t.Fatalf("expected ErrInvalidBaudRate, received %v", err)
	}
}

// TestSupervisorStartStop ensures the loop starts, retries an absent device
// and exits promptly on stop
func TestSupervisorStartStop(t *testing.T) {
	opener := &fakeOpener{}
	supervisor, stateStore, _, _ := newTestSupervisor(t, opener.open)
	if err := supervisor.Start(); err != nil {
		t.Fatalf("could not start supervisor: %v", err)
	}
	if err := supervisor.Start(); err != ErrServiceAlreadyStarted {
		t.Fatalf("expected ErrServiceAlreadyStarted, received %v", err)
	}
	waitFor(t, "first connect attempt", time.Second, func() bool {
		opener.mu.Lock()
		defer opener.mu.Unlock()
		return opener.opens > 0
	})
	// no edge notification while the state remains disconnected
	if state := linkState(t, stateStore); state.Transitions != 0 {
		t.Fatalf("expected no transitions for a device absent from the start, received %v", state.Transitions)
	}
	done := make(chan error, 1)
	go func() { done <- supervisor.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("could not stop supervisor: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop promptly")
	}
	if err := supervisor.Stop(); err != ErrServiceAlreadyStopped {
		t.Fatalf("expected ErrServiceAlreadyStopped, received %v", err)
	}
}

// TestSupervisorDataFlow feeds scripted lines through the supervisor and
// checks the series store and queue receive the parsed batches in order
func TestSupervisorDataFlow(t *testing.T) {
	conn := &fakeConn{}
	opener := &fakeOpener{}
	opener.push(conn)
	supervisor, stateStore, rtdStore, outQueue := newTestSupervisor(t, opener.open)
	sigChan, unsub, err := outQueue.Subscribe("test-listener")
	if err != nil {
		t.Fatalf("could not subscribe to queue: %v", err)
	}
	defer unsub()
	if err := supervisor.Start(); err != nil {
		t.Fatalf("could not start supervisor: %v", err)
	}
	defer func() { _ = supervisor.Stop() }()
	waitFor(t, "initial connect", 2*time.Second, func() bool {
		return linkState(t, stateStore).Connected
	})
	state := linkState(t, stateStore)
	if state.Recovered || state.Transitions != 1 {
		t.Fatalf("expected one fresh connected transition, received %+v", state)
	}
	conn.feed("temp:25.5,humidity:60\r\nno data here\n3.14\n")
	waitFor(t, "both batches applied", 2*time.Second, func() bool {
		return rtdStore.Tick() == 2
	})
	snap := rtdStore.Snapshot()
	if v, ok := snap.Latest("temp"); !ok || v != 25.5 {
		t.Fatalf("unexpected temp: %v %v", v, ok)
	}
	if v, ok := snap.Latest("humidity"); !ok || v != 60.0 {
		t.Fatalf("unexpected humidity: %v %v", v, ok)
	}
	if v, ok := snap.Latest("CH1"); !ok || v != 3.14 {
		t.Fatalf("unexpected CH1: %v %v", v, ok)
	}
	// read successes never repeat the connected notification
	if state := linkState(t, stateStore); state.Transitions != 1 {
		t.Fatalf("read success must not emit an edge notification: %+v", state)
	}
	// drain the queue: frames arrive in read order, lines without
	// measurements are never pushed
	var frames []*queue.Frame
	for len(frames) < 2 {
		select {
		case <-sigChan:
			for {
				frame := outQueue.Pop()
				if frame == nil {
					break
				}
				frames = append(frames, frame)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("queue frames did not arrive")
		}
	}
	if frames[0].Raw != "temp:25.5,humidity:60" || frames[1].Raw != "3.14" {
		t.Fatalf("unexpected frame order: %q, %q", frames[0].Raw, frames[1].Raw)
	}
}

// TestSupervisorReconnect scripts a device removal followed by a replug and
// checks the edge notifications: exactly one disconnected, one reconnected
func TestSupervisorReconnect(t *testing.T) {
	first := &fakeConn{}
	opener := &fakeOpener{}
	opener.push(first)
	supervisor, stateStore, rtdStore, _ := newTestSupervisor(t, opener.open)
	if err := supervisor.Start(); err != nil {
		t.Fatalf("could not start supervisor: %v", err)
	}
	defer func() { _ = supervisor.Stop() }()
	waitFor(t, "initial connect", 2*time.Second, func() bool {
		return linkState(t, stateStore).Connected
	})
	first.feed("a:1\n")
	waitFor(t, "first batch", 2*time.Second, func() bool {
		return rtdStore.Tick() == 1
	})
	// rip the device out
	first.fail(errDeviceRemoved)
	waitFor(t, "disconnected edge", 2*time.Second, func() bool {
		state := linkState(t, stateStore)
		return !state.Connected && state.Transitions == 2
	})
	if !first.isClosed() {
		t.Fatal("failing handle was not closed and discarded")
	}
	// history survives the outage
	if rtdStore.Tick() != 1 {
		t.Fatalf("buffered history lost on disconnect: tick %v", rtdStore.Tick())
	}
	// plug it back in
	second := &fakeConn{}
	opener.push(second)
	waitFor(t, "reconnected edge", 5*time.Second, func() bool {
		state := linkState(t, stateStore)
		return state.Connected && state.Transitions == 3
	})
	if state := linkState(t, stateStore); !state.Recovered {
		t.Fatalf("expected a recovery transition, received %+v", state)
	}
	second.feed("a:2\n")
	waitFor(t, "post-reconnect batch", 2*time.Second, func() bool {
		return rtdStore.Tick() == 2
	})
	snap := rtdStore.Snapshot()
	if v, ok := snap.Latest("a"); !ok || v != 2 {
		t.Fatalf("unexpected value after reconnect: %v %v", v, ok)
	}
}

// TestSupervisorPause ensures a paused supervisor performs no reads and no
// reconnect polling
func TestSupervisorPause(t *testing.T) {
	conn := &fakeConn{}
	conn.feed("a:1\n")
	opener := &fakeOpener{}
	opener.push(conn)
	supervisor, stateStore, rtdStore, _ := newTestSupervisor(t, opener.open)
	supervisor.Pause()
	if err := supervisor.Start(); err != nil {
		t.Fatalf("could not start supervisor: %v", err)
	}
	defer func() { _ = supervisor.Stop() }()
	time.Sleep(300 * time.Millisecond)
	if state := linkState(t, stateStore); state.Transitions != 0 {
		t.Fatalf("paused supervisor attempted a connection: %+v", state)
	}
	if rtdStore.Tick() != 0 {
		t.Fatal("paused supervisor read data")
	}
	supervisor.Resume()
	waitFor(t, "data after resume", 2*time.Second, func() bool {
		return rtdStore.Tick() == 1
	})
}
