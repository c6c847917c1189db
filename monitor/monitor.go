// Package monitor is the console consumer of the acquisition pipeline: it
// prints link state changes and the latest values of every tracked
// measurement. Graph rendering is intentionally out of scope
package monitor

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	bg "github.com/SSSOCPaulCote/blunderguard"
	"github.com/SSSOCPaulCote/gux"
	"github.com/mattn/go-colorable"
	color "github.com/mgutz/ansi"
	"github.com/rs/zerolog"
	"github.com/splotd/splotd/link"
	"github.com/splotd/splotd/series"
)

const (
	ErrServiceAlreadyStarted = bg.Error("service already started")
	ErrServiceAlreadyStopped = bg.Error("service already stopped")

	MonitorName = "MNTR"
)

// seriesColors cycles per measurement, matching the usual scope trace order
var seriesColors = []string{"green", "cyan", "yellow", "magenta", "red", "blue"}

// MonitorService renders live-data updates and link state transitions as
// colored console lines. It owns no state of the pipeline: everything it
// shows comes from snapshots and state store notifications
type MonitorService struct {
	Running   int32 // used atomically
	Logger    *zerolog.Logger
	out       io.Writer
	rtdStore  *series.Store
	linkStore *gux.Store
	liveStore *gux.Store
	name      string
	QuitChan  chan struct{}
	wg        sync.WaitGroup
}

// NewMonitorService creates a MonitorService writing to the given writer.
// Pass nil to write to a colorable stdout
func NewMonitorService(
	logger *zerolog.Logger,
	rtdStore *series.Store,
	linkStore *gux.Store,
	liveStore *gux.Store,
	out io.Writer,
) *MonitorService {
	if out == nil {
		out = colorable.NewColorableStdout()
	}
	return &MonitorService{
		Logger:    logger,
		out:       out,
		rtdStore:  rtdStore,
		linkStore: linkStore,
		liveStore: liveStore,
		name:      MonitorName,
		QuitChan:  make(chan struct{}),
	}
}

// Name satisfies the daq.Service interface
func (s *MonitorService) Name() string {
	return s.name
}

// Start starts the monitor loop
func (s *MonitorService) Start() error {
	s.Logger.Info().Msg("Starting monitor service...")
	if ok := atomic.CompareAndSwapInt32(&s.Running, 0, 1); !ok {
		return ErrServiceAlreadyStarted
	}
	s.wg.Add(1)
	go s.listen()
	s.Logger.Info().Msg("Monitor service started.")
	return nil
}

// Stop stops the monitor loop
func (s *MonitorService) Stop() error {
	s.Logger.Info().Msg("Stopping monitor service...")
	if ok := atomic.CompareAndSwapInt32(&s.Running, 1, 0); !ok {
		return ErrServiceAlreadyStopped
	}
	close(s.QuitChan)
	s.wg.Wait()
	s.Logger.Info().Msg("Monitor service stopped.")
	return nil
}

// listen renders live-data updates and link transitions until shutdown
func (s *MonitorService) listen() {
	defer s.wg.Done()
	liveChan, unsubLive := s.liveStore.Subscribe(s.name)
	defer unsubLive(s.liveStore, s.name)
	linkChan, unsubLink := s.linkStore.Subscribe(s.name)
	defer unsubLink(s.linkStore, s.name)
	for {
		select {
		case <-liveChan:
			currentState := s.liveStore.GetState()
			live, ok := currentState.(series.LiveData)
			if !ok {
				s.Logger.Error().Msg(fmt.Sprintf("Unexpected live data state type: %T", currentState))
				continue
			}
			// clear and reset notifications carry no names
			if len(live.Names) == 0 {
				continue
			}
			fmt.Fprintln(s.out, s.formatUpdate(live.Names))
		case <-linkChan:
			currentState := s.linkStore.GetState()
			state, ok := currentState.(link.State)
			if !ok {
				s.Logger.Error().Msg(fmt.Sprintf("Unexpected link state type: %T", currentState))
				continue
			}
			fmt.Fprintln(s.out, formatLinkState(state))
		case <-s.QuitChan:
			return
		}
	}
}

// formatUpdate renders the freshly updated measurements with per-series
// statistics from the current snapshot
func (s *MonitorService) formatUpdate(names []string) string {
	snap := s.rtdStore.Snapshot()
	line := color.Color(time.Now().Format("15:04:05.000"), "black+h")
	for i, name := range names {
		c := seriesColors[i%len(seriesColors)]
		cell := fmt.Sprintf(" %s=?", name)
		if v, ok := snap.Latest(name); ok {
			cell = fmt.Sprintf(" %s=%v", name, v)
		}
		if mean, ok := snap.Mean(name); ok {
			cell += fmt.Sprintf(" (avg %.1f)", mean)
		}
		line += color.Color(cell, c)
	}
	return line
}

// formatLinkState renders a link transition as a persistent status line
func formatLinkState(state link.State) string {
	switch {
	case state.Connected && state.Recovered:
		return color.Color("reconnected to device", "green")
	case state.Connected:
		return color.Color("connected to device", "green")
	default:
		return color.Color("device disconnected, waiting for reconnection...", "yellow")
	}
}
