package liveness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Strategy selects how the monitor observes the counterpart process.
type Strategy int

const (
	// PidPoll checks the process table for the counterpart pid on a
	// fixed interval. Cheapest path when a direct existence check is
	// reliable.
	PidPoll Strategy = iota

	// RecordWatch watches the counterpart's liveness record file and
	// treats its deletion as loss. Used when pid-reuse ambiguity
	// across process trees makes direct inspection untrustworthy.
	RecordWatch
)

// DefaultInterval is the PidPoll tick. This is a liveness check, not
// a high-resolution timer; looser intervals are acceptable.
const DefaultInterval = time.Second

// Params configures a Monitor.
type Params struct {
	// Pid is the counterpart process to watch
	Pid int

	// RecordPath is the counterpart's liveness record, required for
	// the RecordWatch strategy
	RecordPath string

	// Strategy selects the observation mechanism
	Strategy Strategy

	// Interval overrides the PidPoll tick. Defaults to DefaultInterval.
	Interval time.Duration

	// OnLoss is invoked exactly once when the counterpart is gone.
	// Loss is the designed shutdown trigger, not an error.
	OnLoss func()

	// Log is the logger to use for the monitor
	Log *zap.Logger
}

// Monitor watches one counterpart process in the background and
// fires OnLoss at most once when it disappears.
type Monitor struct {
	pid      int
	path     string
	strategy Strategy
	interval time.Duration
	onLoss   func()

	lossOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}

	log *zap.Logger
}

func NewMonitor(params Params) (*Monitor, error) {
	if params.Pid <= 0 {
		return nil, fmt.Errorf("liveness: pid is required")
	}
	if params.Strategy == RecordWatch && params.RecordPath == "" {
		return nil, fmt.Errorf("liveness: record path is required for the record watch strategy")
	}
	if params.OnLoss == nil {
		return nil, fmt.Errorf("liveness: loss callback is required")
	}

	interval := params.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Monitor{
		pid:      params.Pid,
		path:     params.RecordPath,
		strategy: params.Strategy,
		interval: interval,
		onLoss:   params.OnLoss,
		done:     make(chan struct{}),
		log:      log.With(zap.Int("counterpart", params.Pid)),
	}, nil
}

// Start arms the monitor. The watch runs until loss is detected or
// Close is called.
func (m *Monitor) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	switch m.strategy {
	case RecordWatch:
		// the watcher is created synchronously so arming errors
		// surface to the caller rather than getting lost in the
		// background goroutine
		watch, err := newRecordWatch(m.path)
		if err != nil {
			cancel()
			return err
		}

		go func() {
			defer close(m.done)
			m.watchRecord(ctx, watch)
		}()
	default:
		go func() {
			defer close(m.done)
			m.pollPid(ctx)
		}()
	}

	m.log.Debug("liveness monitor armed", zap.Int("strategy", int(m.strategy)))
	return nil
}

// Close stops the monitor and waits for its background activity to
// quiesce. Safe to call when the monitor never fired.
func (m *Monitor) Close() {
	if m.cancel == nil {
		return
	}

	m.cancel()
	<-m.done
}

// fire delivers the loss trigger at most once.
func (m *Monitor) fire(reason string) {
	m.lossOnce.Do(func() {
		m.log.Info("counterpart lost", zap.String("reason", reason))
		m.onLoss()
	})
}

// pollPid watches the counterpart by existence checks against the
// process table.
func (m *Monitor) pollPid(ctx context.Context) {
	if !Alive(m.pid) {
		m.fire("pid not found")
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !Alive(m.pid) {
				m.fire("pid not found")
				return
			}
		}
	}
}
