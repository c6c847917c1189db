// Package splotd wires the serial plotter daemon: configuration, logging and
// the acquisition/recording/monitoring services
package splotd

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/SSSOCPaulCote/gux"
	e "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/splotd/splotd/daq"
	"github.com/splotd/splotd/intercept"
	"github.com/splotd/splotd/link"
	"github.com/splotd/splotd/monitor"
	"github.com/splotd/splotd/queue"
	"github.com/splotd/splotd/record"
	"github.com/splotd/splotd/series"
)

// Daemon owns the wired pipeline. The supervisor goroutine is the sole
// writer to the series store and link state; everything else reads snapshots
type Daemon struct {
	Config     *Config
	logger     *zerolog.Logger
	RTDStore   *series.Store
	LinkStore  *gux.Store
	LiveStore  *gux.Store
	SessionLog *record.SessionLog
	Supervisor *link.Supervisor
	services   []daq.Service
}

// InitDaemon builds the stores and services from a validated config
func InitDaemon(config *Config, logger *zerolog.Logger) (*Daemon, error) {
	if err := ValidateConfig(*config); err != nil {
		return nil, err
	}
	linkStore := gux.CreateStore(link.InitialState, link.LinkReducer)
	liveStore := gux.CreateStore(series.LiveDataInitialState, series.LiveDataReducer)
	rtdStore, err := series.NewStore(int(config.WindowSize), liveStore)
	if err != nil {
		return nil, e.Wrap(err, "could not create series store")
	}
	frameQueue := queue.NewQueue()
	sessionLog := record.NewSessionLog()
	supervisor, err := link.NewSupervisor(
		&NewSubLogger(logger, link.SupervisorName).SubLogger,
		linkStore,
		rtdStore,
		frameQueue,
		link.OpenSerial,
		config.Port,
		int(config.BaudRate),
	)
	if err != nil {
		return nil, e.Wrap(err, "could not create link supervisor")
	}
	recorder := record.NewRecorderService(
		&NewSubLogger(logger, record.RecorderName).SubLogger,
		sessionLog,
		frameQueue,
		config.InfluxURL,
		config.InfluxToken,
		config.InfluxOrg,
		config.InfluxBucket,
	)
	monitorService := monitor.NewMonitorService(
		&NewSubLogger(logger, monitor.MonitorName).SubLogger,
		rtdStore,
		linkStore,
		liveStore,
		nil,
	)
	return &Daemon{
		Config:     config,
		logger:     logger,
		RTDStore:   rtdStore,
		LinkStore:  linkStore,
		LiveStore:  liveStore,
		SessionLog: sessionLog,
		Supervisor: supervisor,
		// consumers start before the supervisor so no frame is pushed
		// without a listener, and stop after it in reverse order
		services: []daq.Service{recorder, monitorService, supervisor},
	}, nil
}

// ClearWindow empties the bounded display window. The session log keeps the
// full history for export
func (d *Daemon) ClearWindow() {
	d.RTDStore.Clear()
	d.logger.Info().Msg("Display window cleared.")
}

// ExportSession writes the session history to a CSV file in the configured
// export directory
func (d *Daemon) ExportSession() (string, int, error) {
	return record.ExportCSV(d.SessionLog, d.Config.ExportDir)
}

// Main starts the services, wires the export/clear signals and blocks until
// a shutdown request arrives
func Main(interceptor *intercept.Interceptor, d *Daemon) error {
	var started []daq.Service
	defer func() {
		for i := len(started) - 1; i >= 0; i-- {
			if err := started[i].Stop(); err != nil {
				d.logger.Error().Msg(fmt.Sprintf("Could not stop %s service: %v", started[i].Name(), err))
			}
		}
	}()
	for _, s := range d.services {
		if err := s.Start(); err != nil {
			return e.Wrapf(err, "could not start %s service", s.Name())
		}
		started = append(started, s)
	}
	// SIGUSR1 exports the session, SIGUSR2 clears the display window,
	// SIGHUP toggles acquisition pause
	actionChan := make(chan os.Signal, 1)
	signal.Notify(actionChan, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGHUP)
	defer signal.Stop(actionChan)
	for {
		select {
		case sig := <-actionChan:
			switch sig {
			case syscall.SIGUSR1:
				path, rows, err := d.ExportSession()
				if err != nil {
					d.logger.Error().Msg(fmt.Sprintf("Could not export session: %v", err))
					continue
				}
				d.logger.Info().Msg(fmt.Sprintf("Exported %v data points to %s", rows, path))
			case syscall.SIGUSR2:
				d.ClearWindow()
			case syscall.SIGHUP:
				if atomic.LoadInt32(&d.Supervisor.Paused) == 1 {
					d.Supervisor.Resume()
				} else {
					d.Supervisor.Pause()
				}
			}
		case <-interceptor.ShutdownChannel():
			d.logger.Info().Msg("Shutdown request received.")
			return nil
		}
	}
}
