// Package link owns the physical device connection: it runs the acquisition
// loop, frames raw bytes into lines, hands parsed batches to the series
// store and keeps the link alive across disconnects
package link

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	bg "github.com/SSSOCPaulCote/blunderguard"
	"github.com/SSSOCPaulCote/gux"
	"github.com/rs/zerolog"
	"github.com/splotd/splotd/parser"
	"github.com/splotd/splotd/queue"
	"github.com/splotd/splotd/series"
)

const (
	ErrServiceAlreadyStarted = bg.Error("service already started")
	ErrServiceAlreadyStopped = bg.Error("service already stopped")
	ErrInvalidBaudRate       = bg.Error("baud rate must be a positive integer")

	// pollDelay bounds CPU usage between reads while connected
	pollDelay = 10 * time.Millisecond
	// reconnectDelay is the polling interval between reconnect attempts
	reconnectDelay = time.Second
	// pausedDelay is the idle period while acquisition is paused
	pausedDelay = 100 * time.Millisecond

	SupervisorName = "LINK"
)

// Supervisor owns the connection handle exclusively: no other component
// reads or writes it. Consumers observe the link through the gux state store
// and the frame queue
type Supervisor struct {
	Running     int32 // used atomically
	Paused      int32 // used atomically
	Logger      *zerolog.Logger
	stateStore  *gux.Store
	rtdStore    *series.Store
	outQueue    *queue.Queue
	open        Opener
	portName    string
	baudRate    int
	conn        Conn
	pending     []byte
	readBuf     []byte
	attempts    int64
	lastAttempt time.Time
	warnedDown  bool
	QuitChan    chan struct{}
	wg          sync.WaitGroup
}

// NewSupervisor creates a link Supervisor for the given device address and
// speed. The opener is the handle factory; pass OpenSerial outside of tests
func NewSupervisor(
	logger *zerolog.Logger,
	stateStore *gux.Store,
	rtdStore *series.Store,
	outQueue *queue.Queue,
	open Opener,
	portName string,
	baudRate int,
) (*Supervisor, error) {
	if baudRate <= 0 {
		return nil, ErrInvalidBaudRate
	}
	return &Supervisor{
		Logger:     logger,
		stateStore: stateStore,
		rtdStore:   rtdStore,
		outQueue:   outQueue,
		open:       open,
		portName:   portName,
		baudRate:   baudRate,
		readBuf:    make([]byte, 256),
		QuitChan:   make(chan struct{}),
	}, nil
}

// Name satisfies the daq.Service interface
func (s *Supervisor) Name() string {
	return SupervisorName
}

// Start starts the acquisition loop. The first connect attempt happens inside
// the loop so a missing device at startup is not fatal
func (s *Supervisor) Start() error {
	s.Logger.Info().Msg("Starting link supervisor...")
	if ok := atomic.CompareAndSwapInt32(&s.Running, 0, 1); !ok {
		return ErrServiceAlreadyStarted
	}
	s.wg.Add(1)
	go s.acquire()
	s.Logger.Info().Msg("Link supervisor started.")
	return nil
}

// Stop stops the acquisition loop and releases the connection handle
func (s *Supervisor) Stop() error {
	s.Logger.Info().Msg("Stopping link supervisor...")
	if ok := atomic.CompareAndSwapInt32(&s.Running, 1, 0); !ok {
		return ErrServiceAlreadyStopped
	}
	close(s.QuitChan)
	s.wg.Wait()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.Logger.Info().Msg("Link supervisor stopped.")
	return nil
}

// Pause suspends line acquisition and reconnect polling without touching the
// connection state
func (s *Supervisor) Pause() {
	atomic.StoreInt32(&s.Paused, 1)
	s.Logger.Info().Msg("Acquisition paused.")
}

// Resume lifts a previous Pause
func (s *Supervisor) Resume() {
	atomic.StoreInt32(&s.Paused, 0)
	s.Logger.Info().Msg("Acquisition resumed.")
}

// acquire is the acquisition loop. One iteration: idle when paused, poll a
// reconnect when disconnected, otherwise read and process available lines
func (s *Supervisor) acquire() {
	defer s.wg.Done()
	for {
		select {
		case <-s.QuitChan:
			return
		default:
		}
		if atomic.LoadInt32(&s.Paused) == 1 {
			if !s.sleep(pausedDelay) {
				return
			}
			continue
		}
		if s.conn == nil {
			s.pollReconnect()
			if !s.sleep(pausedDelay) {
				return
			}
			continue
		}
		n, err := s.conn.Read(s.readBuf)
		if err != nil {
			s.dropConn(err)
			continue
		}
		if n > 0 {
			s.consume(s.readBuf[:n])
		}
		if !s.sleep(pollDelay) {
			return
		}
	}
}

// pollReconnect attempts to acquire a fresh handle at most once per
// reconnectDelay. Repeated failed attempts log once: the state stays
// disconnected so no further edge notification fires
func (s *Supervisor) pollReconnect() {
	now := time.Now()
	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < reconnectDelay {
		return
	}
	s.lastAttempt = now
	recovery := s.attempts > 0
	s.attempts++
	conn, err := s.open(s.portName, s.baudRate)
	if err != nil {
		if !s.warnedDown {
			s.warnedDown = true
			s.Logger.Warn().Msg(fmt.Sprintf("Cannot connect to %s: %v. Retrying...", s.portName, err))
		}
		return
	}
	s.conn = conn
	s.pending = nil
	s.warnedDown = false
	if recovery {
		s.Logger.Info().Msg(fmt.Sprintf("Reconnected to %s @ %v baud.", s.portName, s.baudRate))
		s.dispatch("link/reconnected")
	} else {
		s.Logger.Info().Msg(fmt.Sprintf("Connected to %s @ %v baud.", s.portName, s.baudRate))
		s.dispatch("link/connected")
	}
}

// dropConn closes and discards the failing handle and emits the single
// disconnected edge notification for this transition
func (s *Supervisor) dropConn(err error) {
	s.Logger.Warn().Msg(fmt.Sprintf("Device %s disconnected (%v). Waiting for reconnection...", s.portName, err))
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.pending = nil
	s.lastAttempt = time.Time{}
	s.dispatch("link/disconnected")
}

// consume appends freshly read bytes to the pending buffer and processes
// every complete line in arrival order
func (s *Supervisor) consume(chunk []byte) {
	s.pending = append(s.pending, chunk...)
	for {
		idx := bytes.IndexByte(s.pending, '\n')
		if idx < 0 {
			return
		}
		raw := s.pending[:idx]
		s.pending = s.pending[idx+1:]
		line := strings.TrimRight(decodeLine(raw), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.handleLine(line)
	}
}

// handleLine parses one line and applies the batch: the series store update
// and the queue push are the only ways acquired data reaches consumers
func (s *Supervisor) handleLine(line string) {
	batch := parser.ParseLine(line)
	if batch.Len() == 0 {
		s.Logger.Debug().Msg(fmt.Sprintf("No measurements in line: %q", line))
		return
	}
	s.rtdStore.Update(batch)
	s.outQueue.Push(&queue.Frame{
		Timestamp: time.Now(),
		Raw:       line,
		Batch:     batch,
	})
}

// dispatch sends one link state action to the state store
func (s *Supervisor) dispatch(actionType string) {
	err := s.stateStore.Dispatch(gux.Action{Type: actionType})
	if err != nil {
		s.Logger.Error().Msg(fmt.Sprintf("Could not update link state: %v", err))
	}
}

// sleep waits for the given delay unless a shutdown request arrives first.
// Returns false when the loop must exit
func (s *Supervisor) sleep(delay time.Duration) bool {
	select {
	case <-s.QuitChan:
		return false
	case <-time.After(delay):
		return true
	}
}

// decodeLine decodes raw device bytes as permissive UTF-8, replacing invalid
// sequences instead of failing
func decodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}
