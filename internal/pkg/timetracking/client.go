package timetracking

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// Client talks to the time-tracking REST API on behalf of one authenticated employee.
// It implements timeclock.TimeTrackingService.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type Option func(*clientOptions)

type clientOptions struct {
	timeout   time.Duration
	transport http.RoundTripper
}

// WithTimeout bounds every request. Default 15s.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithTransport sets the underlying transport, before auth is applied.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// NewClient builds a client whose requests carry tokens from tokens.
func NewClient(baseURL string, tokens oauth2.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	o := clientOptions{timeout: 15 * time.Second, transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: o.timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, tokens),
				Base:   o.transport,
			},
		},
	}, nil
}

// StaticToken wraps a pre-issued access token as a token source.
func StaticToken(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, timeclock.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w: %v", method, path, timeclock.ErrServiceUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &timeclock.ServiceError{
			Kind:       timeclock.ErrServiceUnavailable,
			Message:    fmt.Sprintf("unexpected response (status %d)", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		svcErr := &timeclock.ServiceError{
			Kind:       timeclock.ErrServiceUnavailable,
			StatusCode: resp.StatusCode,
		}
		if env.Error != nil {
			svcErr.Code = env.Error.Code
			svcErr.Message = env.Error.Message
			svcErr.Kind = kindForCode(env.Error.Code)
		}
		return svcErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w: %v", method, path, timeclock.ErrServiceUnavailable, err)
	}
	return nil
}

func kindForCode(code string) error {
	switch code {
	case attendance.CodeOutsideGeofence:
		return timeclock.ErrGeofenceViolation
	case attendance.CodeOutsideShift:
		return timeclock.ErrOutsideShift
	case attendance.CodeSessionAlreadyOpen:
		return timeclock.ErrInvariantViolation
	case attendance.CodeNoOpenSession:
		return timeclock.ErrNoOpenSession
	case attendance.CodeAlreadyOnBreak:
		return timeclock.ErrAlreadyOnBreak
	case attendance.CodeNotOnBreak:
		return timeclock.ErrNotOnBreak
	default:
		return timeclock.ErrServiceUnavailable
	}
}

// GetRestaurantGeofence implements timeclock.TimeTrackingService.
func (c *Client) GetRestaurantGeofence(ctx context.Context) (timeclock.Geofence, error) {
	var resp attendance.GeofenceResponse
	if err := c.do(ctx, http.MethodGet, "/attendance/geofence", nil, &resp); err != nil {
		return timeclock.Geofence{}, err
	}

	fence := timeclock.Geofence{
		Center: geo.Point{Latitude: resp.Latitude, Longitude: resp.Longitude},
		Name:   resp.RestaurantName,
	}
	if resp.Radius != nil {
		fence.Radius = *resp.Radius
	}
	return fence.WithDefaults(), nil
}

// GetShiftWindow implements timeclock.TimeTrackingService.
func (c *Client) GetShiftWindow(ctx context.Context) (*timeclock.ShiftWindow, error) {
	var resp *attendance.ShiftWindowResponse
	if err := c.do(ctx, http.MethodGet, "/attendance/shift", nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	start, err := time.Parse(time.RFC3339, resp.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse shift start_time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, resp.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parse shift end_time: %w", err)
	}
	return &timeclock.ShiftWindow{StartTime: start, EndTime: end}, nil
}

// VerifyLocation implements timeclock.TimeTrackingService.
func (c *Client) VerifyLocation(ctx context.Context, latitude, longitude float64) (timeclock.VerificationResult, error) {
	var resp attendance.VerifyLocationResponse
	req := attendance.VerifyLocationRequest{Latitude: latitude, Longitude: longitude}
	if err := c.do(ctx, http.MethodPost, "/attendance/verify-location", req, &resp); err != nil {
		return timeclock.VerificationResult{}, err
	}

	distance := resp.DistanceMeters
	return timeclock.VerificationResult{
		WithinRange: resp.WithinRange,
		Message:     resp.Message,
		Distance:    &distance,
	}, nil
}

// ClockIn implements timeclock.TimeTrackingService.
func (c *Client) ClockIn(ctx context.Context, sample timeclock.LocationSample) (timeclock.ActionResult, error) {
	var resp attendance.ClockResponse
	req := attendance.ClockInRequest{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Accuracy:  sample.Accuracy,
	}
	if err := c.do(ctx, http.MethodPost, "/attendance/clock-in", req, &resp); err != nil {
		return timeclock.ActionResult{}, err
	}
	return timeclock.ActionResult{Message: resp.Message, At: parseTimePtr(resp.ClockInTime)}, nil
}

// ClockOut implements timeclock.TimeTrackingService.
func (c *Client) ClockOut(ctx context.Context, sample *timeclock.LocationSample, auto bool) (timeclock.ActionResult, error) {
	var resp attendance.ClockResponse
	req := attendance.ClockOutRequest{Auto: auto}
	if sample != nil {
		lat, lon := sample.Latitude, sample.Longitude
		req.Latitude = &lat
		req.Longitude = &lon
		req.Accuracy = sample.Accuracy
	}
	if err := c.do(ctx, http.MethodPost, "/attendance/clock-out", req, &resp); err != nil {
		return timeclock.ActionResult{}, err
	}
	return timeclock.ActionResult{Message: resp.Message, At: parseTimePtr(resp.ClockOutTime)}, nil
}

// StartBreak implements timeclock.TimeTrackingService.
func (c *Client) StartBreak(ctx context.Context) (timeclock.ActionResult, error) {
	var resp attendance.BreakResponse
	if err := c.do(ctx, http.MethodPost, "/attendance/break/start", nil, &resp); err != nil {
		return timeclock.ActionResult{}, err
	}
	return timeclock.ActionResult{Message: resp.Message, At: parseTimePtr(resp.BreakStart)}, nil
}

// EndBreak implements timeclock.TimeTrackingService.
func (c *Client) EndBreak(ctx context.Context) (timeclock.ActionResult, error) {
	var resp attendance.BreakResponse
	if err := c.do(ctx, http.MethodPost, "/attendance/break/end", nil, &resp); err != nil {
		return timeclock.ActionResult{}, err
	}
	return timeclock.ActionResult{Message: resp.Message, At: parseTimePtr(resp.BreakEnd)}, nil
}

// GetCurrentSession implements timeclock.TimeTrackingService.
func (c *Client) GetCurrentSession(ctx context.Context) (*timeclock.AttendanceSession, error) {
	var resp *attendance.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/attendance/current", nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	session, err := toSession(*resp)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetAttendanceHistory implements timeclock.TimeTrackingService.
func (c *Client) GetAttendanceHistory(ctx context.Context) ([]timeclock.AttendanceSession, error) {
	var resp attendance.ListSessionResponse
	if err := c.do(ctx, http.MethodGet, "/attendance/history", nil, &resp); err != nil {
		return nil, err
	}

	sessions := make([]timeclock.AttendanceSession, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		session, err := toSession(s)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func toSession(resp attendance.SessionResponse) (timeclock.AttendanceSession, error) {
	clockIn, err := time.Parse(time.RFC3339, resp.ClockInTime)
	if err != nil {
		return timeclock.AttendanceSession{}, fmt.Errorf("parse clock_in_time: %w", err)
	}
	return timeclock.AttendanceSession{
		ID:               resp.ID,
		ClockInTime:      clockIn,
		ClockOutTime:     parseTimePtr(resp.ClockOutTime),
		IsBreak:          resp.IsBreak,
		BreakStart:       parseTimePtr(resp.BreakStart),
		BreakEnd:         parseTimePtr(resp.BreakEnd),
		VerifiedLocation: resp.VerifiedLocation,
	}, nil
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
