// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tunnel supervises one ngrok process per reserved domain.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/metrics"
	"github.com/ManuGH/tunebox/internal/procgroup"
	"github.com/ManuGH/tunebox/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// State is the lifecycle state of one tunnel.
type State string

const (
	StateRunning    State = "running"
	StateRestarting State = "restarting"
	StateFailed     State = "failed"
	StateStopped    State = "stopped"
	StateDisabled   State = "disabled"
)

var (
	// ErrClosed is returned by Ensure after Close.
	ErrClosed = errors.New("tunnel manager closed")
	// ErrInvalidDomain is returned for blank domains.
	ErrInvalidDomain = errors.New("invalid tunnel domain")
)

// Status is a point-in-time view of one tunnel.
type Status struct {
	Domain    string     `json:"domain"`
	State     State      `json:"state"`
	Restarts  int        `json:"restarts"`
	PID       int        `json:"pid,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Options configures a Manager.
type Options struct {
	Bin      string // tunnel binary, default "ngrok"
	Port     int    // local port forwarded by every tunnel
	Disabled bool   // record domains without starting processes

	Grace        time.Duration // SIGTERM to SIGKILL delay on shutdown
	RestartDelay time.Duration // pause before a restart
	RestartEvery time.Duration // restart token refill interval
	RestartBurst int           // restarts allowed back to back

	// Args builds the command line; defaults to "http --domain=<d> <port>".
	Args func(domain string, port int) []string
}

func (o *Options) setDefaults() {
	if o.Bin == "" {
		o.Bin = "ngrok"
	}
	if o.Grace <= 0 {
		o.Grace = 5 * time.Second
	}
	if o.RestartDelay <= 0 {
		o.RestartDelay = time.Second
	}
	if o.RestartEvery <= 0 {
		o.RestartEvery = time.Minute
	}
	if o.RestartBurst <= 0 {
		o.RestartBurst = 3
	}
	if o.Args == nil {
		o.Args = NgrokArgs
	}
}

// NgrokArgs is the ngrok v3 command line for a reserved domain.
func NgrokArgs(domain string, port int) []string {
	return []string{"http", "--domain=" + domain, strconv.Itoa(port)}
}

type tunnel struct {
	domain  string
	limiter *rate.Limiter
	stop    chan struct{}
	done    chan struct{}

	// guarded by Manager.mu
	state     State
	restarts  int
	pid       int
	startedAt time.Time
	lastErr   string
}

// Manager owns the tunnel processes.
type Manager struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	tunnels map[string]*tunnel
	closed  bool
}

// NewManager creates a tunnel manager. No process starts until Ensure.
func NewManager(opts Options) *Manager {
	opts.setDefaults()
	return &Manager{
		opts:    opts,
		logger:  log.WithComponent("tunnel"),
		tunnels: make(map[string]*tunnel),
	}
}

// Ensure starts a tunnel for domain unless one is already running or
// restarting. A failed tunnel is started afresh. Start errors are logged
// and returned; they never affect other tunnels.
func (m *Manager) Ensure(ctx context.Context, domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return ErrInvalidDomain
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if t, ok := m.tunnels[domain]; ok && t.state != StateFailed {
		return nil
	}

	t := &tunnel{
		domain:  domain,
		limiter: rate.NewLimiter(rate.Every(m.opts.RestartEvery), m.opts.RestartBurst),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	m.tunnels[domain] = t

	if m.opts.Disabled {
		t.state = StateDisabled
		close(t.done)
		m.logger.Info().Str(log.FieldDomain, domain).Msg("tunnels disabled, not starting")
		return nil
	}

	_, span := telemetry.Tracer("tunebox.tunnel").Start(ctx, "tunnel.start",
		trace.WithAttributes(telemetry.TunnelAttributes(domain, m.opts.Port)...))
	defer span.End()

	cmd, waitCh, err := m.start(t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start failed")
		t.state = StateFailed
		t.lastErr = err.Error()
		close(t.done)
		metrics.IncTunnelFailure("start")
		m.logger.Error().Err(err).Str(log.FieldDomain, domain).Msg("failed to start tunnel")
		return fmt.Errorf("start tunnel %s: %w", domain, err)
	}
	m.markRunningLocked(t, cmd)
	go m.supervise(t, cmd, waitCh)
	return nil
}

// start launches the tunnel process in its own group. Callers hold m.mu.
func (m *Manager) start(t *tunnel) (*exec.Cmd, <-chan error, error) {
	// #nosec G204 -- binary and domain come from the operator's config
	cmd := exec.Command(m.opts.Bin, m.opts.Args(t.domain, m.opts.Port)...)
	procgroup.Set(cmd)
	tail := &tailBuffer{max: 2048}
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	waitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		if err != nil && tail.String() != "" {
			err = fmt.Errorf("%w: %s", err, tail.String())
		}
		waitCh <- err
	}()
	metrics.IncTunnelStart()
	return cmd, waitCh, nil
}

func (m *Manager) markRunningLocked(t *tunnel, cmd *exec.Cmd) {
	t.state = StateRunning
	t.pid = cmd.Process.Pid
	t.startedAt = time.Now()
	m.updateGaugeLocked()
	m.logger.Info().
		Str(log.FieldEvent, "tunnel.started").
		Str(log.FieldDomain, t.domain).
		Int(log.FieldPID, t.pid).
		Msgf("tunnel running at https://%s", t.domain)
}

// supervise restarts the process after unexpected exits until the restart
// budget runs out or the tunnel is stopped.
func (m *Manager) supervise(t *tunnel, cmd *exec.Cmd, waitCh <-chan error) {
	defer close(t.done)
	for {
		var exitErr error
		select {
		case <-t.stop:
			err := procgroup.Terminate(cmd, waitCh, m.opts.Grace)
			m.mu.Lock()
			t.state = StateStopped
			t.pid = 0
			m.updateGaugeLocked()
			m.mu.Unlock()
			m.logger.Info().Str(log.FieldDomain, t.domain).AnErr("exit", err).Msg("tunnel stopped")
			return
		case exitErr = <-waitCh:
		}

		m.mu.Lock()
		t.pid = 0
		t.lastErr = errString(exitErr, "exited")
		if !t.limiter.Allow() {
			t.state = StateFailed
			m.updateGaugeLocked()
			m.mu.Unlock()
			metrics.IncTunnelFailure("exhausted")
			m.logger.Error().
				Str(log.FieldEvent, "tunnel.failed").
				Str(log.FieldDomain, t.domain).
				Int("restarts", t.restarts).
				Str("last_error", t.lastErr).
				Msg("tunnel keeps exiting, giving up")
			return
		}
		t.state = StateRestarting
		m.updateGaugeLocked()
		m.mu.Unlock()

		m.logger.Warn().
			Str(log.FieldDomain, t.domain).
			AnErr("exit", exitErr).
			Dur("delay", m.opts.RestartDelay).
			Msg("tunnel exited unexpectedly, restarting")

		delay := time.NewTimer(m.opts.RestartDelay)
		select {
		case <-t.stop:
			delay.Stop()
			m.mu.Lock()
			t.state = StateStopped
			m.mu.Unlock()
			return
		case <-delay.C:
		}

		m.mu.Lock()
		next, nextWait, err := m.start(t)
		if err != nil {
			t.state = StateFailed
			t.lastErr = err.Error()
			m.updateGaugeLocked()
			m.mu.Unlock()
			metrics.IncTunnelFailure("start")
			m.logger.Error().Err(err).Str(log.FieldDomain, t.domain).Msg("failed to restart tunnel")
			return
		}
		t.restarts++
		metrics.IncTunnelRestart()
		m.markRunningLocked(t, next)
		m.mu.Unlock()
		cmd, waitCh = next, nextWait
	}
}

// Status lists every known tunnel sorted by domain.
func (m *Manager) Status() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.tunnels))
	for _, t := range m.tunnels {
		s := Status{
			Domain:    t.domain,
			State:     t.state,
			Restarts:  t.restarts,
			PID:       t.pid,
			LastError: t.lastErr,
		}
		if !t.startedAt.IsZero() {
			started := t.startedAt
			s.StartedAt = &started
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Status) int { return strings.Compare(a.Domain, b.Domain) })
	return out
}

// Close terminates every tunnel process group and waits until all
// supervisors exit or ctx ends.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	tunnels := make([]*tunnel, 0, len(m.tunnels))
	for _, t := range m.tunnels {
		tunnels = append(tunnels, t)
	}
	m.mu.Unlock()

	for _, t := range tunnels {
		select {
		case <-t.done:
		default:
			close(t.stop)
		}
	}
	for _, t := range tunnels {
		select {
		case <-t.done:
		case <-ctx.Done():
			return fmt.Errorf("close tunnels: %w", ctx.Err())
		}
	}
	return nil
}

func (m *Manager) updateGaugeLocked() {
	running := 0
	for _, t := range m.tunnels {
		if t.state == StateRunning {
			running++
		}
	}
	metrics.SetTunnelsRunning(running)
}

func errString(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
