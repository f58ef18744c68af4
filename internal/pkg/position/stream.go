package position

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
	"github.com/goccy/go-json"
)

// DefaultHighAccuracyLimit is the largest accuracy radius accepted in high-accuracy mode.
const DefaultHighAccuracyLimit = 50.0

// fixMessage is one line of the device feed.
type fixMessage struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// StreamPositioner implements timeclock.Positioner over a newline-delimited JSON feed
// written by a device bridge.
type StreamPositioner struct {
	src               io.Reader
	highAccuracyLimit float64
	now               func() time.Time
	logger            *slog.Logger

	startOnce sync.Once
	mu        sync.Mutex
	last      *timeclock.LocationSample
	subs      map[chan timeclock.PositionUpdate]struct{}
	closed    bool
}

type Option func(*StreamPositioner)

// WithHighAccuracyLimit overrides DefaultHighAccuracyLimit.
func WithHighAccuracyLimit(meters float64) Option {
	return func(s *StreamPositioner) { s.highAccuracyLimit = meters }
}

// WithClock overrides time.Now, used to stamp fixes without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *StreamPositioner) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *StreamPositioner) { s.logger = logger }
}

func NewStreamPositioner(src io.Reader, opts ...Option) *StreamPositioner {
	s := &StreamPositioner{
		src:               src,
		highAccuracyLimit: DefaultHighAccuracyLimit,
		now:               time.Now,
		logger:            slog.Default(),
		subs:              make(map[chan timeclock.PositionUpdate]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentPosition returns a cached fix younger than opts.MaximumAge, or waits for the next
// acceptable fix until opts.Timeout elapses.
func (s *StreamPositioner) CurrentPosition(ctx context.Context, opts timeclock.PositionOptions) (timeclock.LocationSample, error) {
	s.start()

	ch, cancel, err := s.subscribe(ctx)
	if err != nil {
		return timeclock.LocationSample{}, err
	}
	defer cancel()

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil && opts.MaximumAge > 0 &&
		s.now().Sub(last.CapturedAt) <= opts.MaximumAge &&
		s.acceptable(*last, opts) {
		return *last, nil
	}

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return timeclock.LocationSample{}, ctx.Err()
		case <-timeout:
			return timeclock.LocationSample{}, timeclock.ErrPositionTimeout
		case update, ok := <-ch:
			if !ok {
				return timeclock.LocationSample{}, fmt.Errorf("position feed closed: %w", timeclock.ErrPositionUnavailable)
			}
			if update.Err != nil {
				return timeclock.LocationSample{}, update.Err
			}
			if s.acceptable(update.Sample, opts) {
				return update.Sample, nil
			}
		}
	}
}

// WatchPosition streams fixes in feed order until ctx is done or the feed ends.
func (s *StreamPositioner) WatchPosition(ctx context.Context, opts timeclock.PositionOptions) (<-chan timeclock.PositionUpdate, error) {
	s.start()

	ch, cancel, err := s.subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan timeclock.PositionUpdate)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-ch:
				if !ok {
					return
				}
				if update.Err == nil && !s.acceptable(update.Sample, opts) {
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *StreamPositioner) acceptable(sample timeclock.LocationSample, opts timeclock.PositionOptions) bool {
	if !opts.HighAccuracy || sample.Accuracy == nil {
		return true
	}
	return *sample.Accuracy <= s.highAccuracyLimit
}

func (s *StreamPositioner) subscribe(ctx context.Context) (chan timeclock.PositionUpdate, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, fmt.Errorf("position feed closed: %w", timeclock.ErrPositionUnavailable)
	}

	ch := make(chan timeclock.PositionUpdate, 16)
	s.subs[ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (s *StreamPositioner) start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *StreamPositioner) run() {
	scanner := bufio.NewScanner(s.src)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		update, ok := s.parse(line)
		if !ok {
			continue
		}
		s.publish(update)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("Position feed read failed", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.logger.Info("Position feed closed")
}

func (s *StreamPositioner) parse(line []byte) (timeclock.PositionUpdate, bool) {
	var msg fixMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		s.logger.Warn("Skipping malformed position fix", "error", err)
		return timeclock.PositionUpdate{}, false
	}

	if msg.Error != "" {
		return timeclock.PositionUpdate{Err: classify(msg.Error)}, true
	}

	if msg.Latitude == nil || msg.Longitude == nil {
		s.logger.Warn("Skipping position fix without coordinates")
		return timeclock.PositionUpdate{}, false
	}

	point := geo.Point{Latitude: *msg.Latitude, Longitude: *msg.Longitude}
	if !point.Valid() {
		s.logger.Warn("Skipping position fix out of range", "latitude", point.Latitude, "longitude", point.Longitude)
		return timeclock.PositionUpdate{}, false
	}
	if msg.Accuracy != nil && *msg.Accuracy < 0 {
		msg.Accuracy = nil
	}

	capturedAt := s.now()
	if msg.Timestamp != nil {
		capturedAt = *msg.Timestamp
	}

	return timeclock.PositionUpdate{Sample: timeclock.LocationSample{
		Point:      point,
		Accuracy:   msg.Accuracy,
		CapturedAt: capturedAt,
	}}, true
}

func (s *StreamPositioner) publish(update timeclock.PositionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.Err == nil {
		sample := update.Sample
		s.last = &sample
	}

	for ch := range s.subs {
		select {
		case ch <- update:
		default:
			s.logger.Debug("Position subscriber lagging, fix dropped")
		}
	}
}

func classify(code string) error {
	switch code {
	case "permission_denied":
		return timeclock.ErrPermissionDenied
	case "timeout":
		return timeclock.ErrPositionTimeout
	default:
		return timeclock.ErrPositionUnavailable
	}
}
