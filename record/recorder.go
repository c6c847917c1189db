package record

import (
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"

	bg "github.com/SSSOCPaulCote/blunderguard"
	influx "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/splotd/splotd/queue"
)

const (
	ErrServiceAlreadyStarted = bg.Error("service already started")
	ErrServiceAlreadyStopped = bg.Error("service already stopped")

	RecorderName = "RECD"
)

// RecorderService drains acquisition frames off the handoff queue into the
// session log and, when an InfluxDB endpoint is configured, streams each
// measurement as a point through the non-blocking write API
type RecorderService struct {
	Running    int32 // used atomically
	Logger     *zerolog.Logger
	sessionLog *SessionLog
	inQueue    *queue.Queue
	idb        influx.Client
	writeAPI   api.WriteAPI
	name       string
	QuitChan   chan struct{}
	wg         sync.WaitGroup
}

// NewRecorderService creates a RecorderService. influxURL may be empty, in
// which case only the session log is fed
func NewRecorderService(
	logger *zerolog.Logger,
	sessionLog *SessionLog,
	inQueue *queue.Queue,
	influxURL string,
	influxToken string,
	influxOrg string,
	influxBucket string,
) *RecorderService {
	s := &RecorderService{
		Logger:     logger,
		sessionLog: sessionLog,
		inQueue:    inQueue,
		name:       RecorderName,
		QuitChan:   make(chan struct{}),
	}
	if influxURL != "" {
		s.idb = influx.NewClientWithOptions(influxURL, influxToken, influx.DefaultOptions().SetTLSConfig(&tls.Config{InsecureSkipVerify: true}))
		s.writeAPI = s.idb.WriteAPI(influxOrg, influxBucket)
	}
	return s
}

// Name satisfies the daq.Service interface
func (s *RecorderService) Name() string {
	return s.name
}

// Start starts the recording loop
func (s *RecorderService) Start() error {
	s.Logger.Info().Msg("Starting recorder service...")
	if ok := atomic.CompareAndSwapInt32(&s.Running, 0, 1); !ok {
		return ErrServiceAlreadyStarted
	}
	sigChan, unsub, err := s.inQueue.Subscribe(s.name)
	if err != nil {
		atomic.StoreInt32(&s.Running, 0)
		return err
	}
	s.wg.Add(1)
	go s.drain(sigChan, unsub)
	s.Logger.Info().Msg("Recorder service started.")
	return nil
}

// Stop stops the recording loop and flushes any buffered influx points
func (s *RecorderService) Stop() error {
	s.Logger.Info().Msg("Stopping recorder service...")
	if ok := atomic.CompareAndSwapInt32(&s.Running, 1, 0); !ok {
		return ErrServiceAlreadyStopped
	}
	close(s.QuitChan)
	s.wg.Wait()
	if s.writeAPI != nil {
		s.writeAPI.Flush()
		s.idb.Close()
	}
	s.Logger.Info().Msg("Recorder service stopped.")
	return nil
}

// drain pops every available frame on each queue signal, preserving the
// acquisition order
func (s *RecorderService) drain(sigChan chan int, unsub func()) {
	defer s.wg.Done()
	defer unsub()
	for {
		select {
		case <-sigChan:
			for {
				frame := s.inQueue.Pop()
				if frame == nil {
					break
				}
				s.record(frame)
			}
		case <-s.QuitChan:
			return
		}
	}
}

// record appends one frame to the session log and mirrors it to influx
func (s *RecorderService) record(frame *queue.Frame) {
	values := make(map[string]float64, frame.Batch.Len())
	for _, name := range frame.Batch.Names() {
		v, _ := frame.Batch.Get(name)
		values[name] = v
	}
	s.sessionLog.Append(Entry{
		Timestamp: frame.Timestamp,
		Raw:       frame.Raw,
		Values:    values,
	})
	if s.writeAPI == nil {
		return
	}
	for name, v := range values {
		p := influx.NewPoint(
			"telemetry",
			map[string]string{
				"channel": name,
			},
			map[string]interface{}{
				"value": v,
			},
			frame.Timestamp,
		)
		// write asynchronously
		s.writeAPI.WritePoint(p)
	}
	s.Logger.Debug().Msg(fmt.Sprintf("Recorded %v measurements from line %q", len(values), frame.Raw))
}
