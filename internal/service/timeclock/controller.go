package timeclock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/service/geofence"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Config tunes positioning and the auto clock-out hysteresis.
type Config struct {
	HighAccuracyTimeout time.Duration
	LowAccuracyTimeout  time.Duration
	LowAccuracyMaxAge   time.Duration

	// ViolationThreshold is the number of consecutive out-of-range remote checks that
	// forces a clock-out.
	ViolationThreshold int
}

func DefaultConfig() Config {
	return Config{
		HighAccuracyTimeout: 10 * time.Second,
		LowAccuracyTimeout:  20 * time.Second,
		LowAccuracyMaxAge:   30 * time.Second,
		ViolationThreshold:  2,
	}
}

type EventKind string

const (
	EventStateChanged    EventKind = "state_changed"
	EventLocationChecked EventKind = "location_checked"
	EventAutoClockOut    EventKind = "auto_clock_out"
	EventMonitorError    EventKind = "monitor_error"
)

// Event reports a controller change to the UI layer.
type Event struct {
	Kind       EventKind
	State      timeclock.State
	Session    *timeclock.AttendanceSession
	Result     *timeclock.VerificationResult
	Violations int
	Err        error
	At         time.Time
}

type Listener func(Event)

// Controller is the attendance state machine for one employee. It owns the location
// watch while a session is open and force-clocks-out after sustained geofence violation.
type Controller struct {
	api        timeclock.TimeTrackingService
	positioner timeclock.Positioner
	evaluator  *geofence.Evaluator
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
	listener   Listener

	inflight singleflight.Group

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu         sync.Mutex
	loaded     bool
	loading    bool
	verifying  bool
	state      timeclock.State
	session    *timeclock.AttendanceSession
	fence      timeclock.Geofence
	shift      *timeclock.ShiftWindow
	lastLocal  *timeclock.VerificationResult
	lastRemote *timeclock.VerificationResult
	lastSample *timeclock.LocationSample
	violations int

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
}

type Option func(*Controller)

func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithListener(l Listener) Option {
	return func(c *Controller) { c.listener = l }
}

func NewController(api timeclock.TimeTrackingService, positioner timeclock.Positioner, opts ...Option) *Controller {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	c := &Controller{
		api:        api,
		positioner: positioner,
		evaluator:  geofence.NewEvaluator(api),
		cfg:        DefaultConfig(),
		logger:     slog.Default(),
		now:        time.Now,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		state:      timeclock.StateNoSession,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.ViolationThreshold < 1 {
		c.cfg.ViolationThreshold = 1
	}
	return c
}

// Load fetches the geofence, shift window and current session, and resumes monitoring
// when a session is already open.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	var (
		fence   timeclock.Geofence
		shift   *timeclock.ShiftWindow
		session *timeclock.AttendanceSession
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fence, err = c.api.GetRestaurantGeofence(gctx)
		if err != nil {
			return fmt.Errorf("get restaurant geofence: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		shift, err = c.api.GetShiftWindow(gctx)
		if err != nil {
			return fmt.Errorf("get shift window: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		session, err = c.api.GetCurrentSession(gctx)
		if err != nil {
			return fmt.Errorf("get current session: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	c.fence = fence.WithDefaults()
	c.shift = shift
	c.session = session
	c.state = timeclock.StateOf(session)
	c.loaded = true
	c.mu.Unlock()

	c.logger.Info("Time clock loaded",
		"state", c.State(),
		"geofence_radius", fence.WithDefaults().Radius,
		"has_shift", shift != nil,
	)

	if err := c.syncMonitoring(); err != nil {
		return err
	}
	c.emitState()
	return nil
}

// State returns the current state machine position.
func (c *Controller) State() timeclock.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot is a copy of the controller's cached view for rendering.
type Snapshot struct {
	State      timeclock.State
	Session    *timeclock.AttendanceSession
	Geofence   timeclock.Geofence
	Shift      *timeclock.ShiftWindow
	Local      *timeclock.VerificationResult
	Remote     *timeclock.VerificationResult
	LastSample *timeclock.LocationSample
	Violations int
	Monitoring bool
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:      c.state,
		Geofence:   c.fence,
		Violations: c.violations,
		Monitoring: c.monitorCancel != nil,
	}
	if c.session != nil {
		s := *c.session
		snap.Session = &s
	}
	if c.shift != nil {
		w := *c.shift
		snap.Shift = &w
	}
	if c.lastLocal != nil {
		r := *c.lastLocal
		snap.Local = &r
	}
	if c.lastRemote != nil {
		r := *c.lastRemote
		snap.Remote = &r
	}
	if c.lastSample != nil {
		s := *c.lastSample
		snap.LastSample = &s
	}
	return snap
}

// Close releases the location watch and waits for the monitor to exit.
func (c *Controller) Close() {
	done := c.stopMonitoring()
	c.baseCancel()
	if done != nil {
		<-done
	}
}

func (c *Controller) emit(e Event) {
	if c.listener == nil {
		return
	}
	if e.At.IsZero() {
		e.At = c.now()
	}
	c.listener(e)
}

func (c *Controller) emitState() {
	snap := c.Snapshot()
	c.emit(Event{Kind: EventStateChanged, State: snap.State, Session: snap.Session})
}
