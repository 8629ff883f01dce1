package liveness

import (
	"context"
	"errors"
	"time"

	"FramePipeline/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	DetectorKey   = "Primary_Detector"
	DetectorValue = "Active"
)

var ErrWaitTimeout = errors.New("timed out waiting for consumer liveness")

type Store interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Heartbeat keeps a short-lived key alive for as long as the process runs.
// Only the key's presence matters; a key older than its TTL reads as down.
type Heartbeat struct {
	store    Store
	key      string
	ttl      time.Duration
	interval time.Duration
	log      *logrus.Logger
}

func NewHeartbeat(store Store, key string, ttl, interval time.Duration, log *logrus.Logger) *Heartbeat {
	return &Heartbeat{store: store, key: key, ttl: ttl, interval: interval, log: log}
}

func (h *Heartbeat) Beat(ctx context.Context) error {
	return h.store.SetWithTTL(ctx, h.key, DetectorValue, h.ttl)
}

// Run beats once immediately and then every interval, independent of how
// busy the rest of the process is. Failed beats are logged and retried on the
// next tick.
func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.Beat(ctx); err != nil && ctx.Err() == nil {
			h.log.WithFields(logrus.Fields{
				"key":   h.key,
				"error": err.Error(),
			}).Warn("Failed to write heartbeat")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Monitor is the upstream side of the protocol: it polls for the heartbeat.
type Monitor struct {
	store        Store
	key          string
	pollInterval time.Duration
	log          *logrus.Logger
}

func NewMonitor(store Store, key string, pollInterval time.Duration, log *logrus.Logger) *Monitor {
	return &Monitor{store: store, key: key, pollInterval: pollInterval, log: log}
}

// Alive reports whether the heartbeat is currently present. A broker error
// counts as not alive.
func (m *Monitor) Alive(ctx context.Context) bool {
	ok, err := m.store.Exists(ctx, m.key)
	if err != nil {
		if ctx.Err() == nil {
			m.log.WithFields(logrus.Fields{
				"key":   m.key,
				"error": err.Error(),
			}).Warn("Failed to read heartbeat")
		}
		return false
	}
	return ok
}

// WaitAlive polls every poll interval until the heartbeat is present. A zero
// timeout waits until ctx is done.
func (m *Monitor) WaitAlive(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for !m.Alive(ctx) {
		m.log.WithField("key", m.key).Info("Primary detector is still offline. Waiting...")
		if err := utils.SleepContext(ctx, m.pollInterval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
				return ErrWaitTimeout
			}
			return err
		}
	}
	return nil
}
