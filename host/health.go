package host

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultHealthSchedule = "@every 30s"
	defaultProbeTimeout   = 10 * time.Second
)

// Probe checks one downstream dependency (database, upstream API,
// filesystem root). Check returns nil when the dependency is reachable.
type Probe interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthMonitorConfig controls background probing of handler dependencies.
type HealthMonitorConfig struct {
	// Schedule is a cron expression (minute granularity or @every form).
	Schedule string
	Probes   []Probe
	Logger   *slog.Logger
	Observer Observer
	// Timeout bounds each individual probe.
	Timeout time.Duration
}

// HealthMonitor periodically runs dependency probes on a cron schedule and
// reports outcomes to the logger and observer. Probe failures are
// informational; they never stop the host from serving calls.
type HealthMonitor struct {
	cron     *cron.Cron
	probes   []Probe
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
}

var healthCronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewHealthMonitor validates the schedule and builds a monitor.
func NewHealthMonitor(cfg HealthMonitorConfig) (*HealthMonitor, error) {
	schedule := strings.TrimSpace(cfg.Schedule)
	if schedule == "" {
		schedule = defaultHealthSchedule
	}
	if _, err := healthCronParser.Parse(schedule); err != nil {
		return nil, errors.New("host: invalid health schedule: " + err.Error())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	m := &HealthMonitor{
		cron:     cron.New(cron.WithParser(healthCronParser)),
		probes:   cfg.Probes,
		logger:   logger,
		observer: observer,
		timeout:  timeout,
	}
	if _, err := m.cron.AddFunc(schedule, func() {
		m.RunOnce(context.Background())
	}); err != nil {
		return nil, errors.New("host: schedule health probes: " + err.Error())
	}
	return m, nil
}

// Start runs one immediate pass and begins scheduled execution.
func (m *HealthMonitor) Start() {
	if m == nil {
		return
	}
	go m.RunOnce(context.Background())
	m.cron.Start()
}

// Stop halts scheduling and waits for an in-flight pass to finish.
func (m *HealthMonitor) Stop(ctx context.Context) error {
	if m == nil {
		return nil
	}
	stopped := m.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes every probe once.
func (m *HealthMonitor) RunOnce(ctx context.Context) {
	for _, probe := range m.probes {
		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		err := probe.Check(probeCtx)
		cancel()

		duration := time.Since(start)
		errorCode := ""
		if err != nil {
			errorCode = callErrorCode(err, CodeUpstreamFailure)
			m.logger.Warn("health probe failed", "probe", probe.Name(), "duration", duration, "error", err)
		} else {
			m.logger.Debug("health probe ok", "probe", probe.Name(), "duration", duration)
		}
		m.observer.ObserveHealth(HealthObservation{
			Probe:     probe.Name(),
			Duration:  duration,
			ErrorCode: errorCode,
		})
	}
}
