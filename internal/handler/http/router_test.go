package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/position"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/timetracking"
	"github.com/cmlabs-hris/timeclock-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/timeclock-go/internal/service/attendance"
	restaurantService "github.com/cmlabs-hris/timeclock-go/internal/service/restaurant"
	timeclockService "github.com/cmlabs-hris/timeclock-go/internal/service/timeclock"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRestaurantID = "0195a3b0-0000-7000-8000-000000000001"
	testEmployeeID   = "0195a3b0-0000-7000-8000-0000000000e1"
)

var (
	inside  = geo.Point{Latitude: -6.2, Longitude: 106.8}
	outside = geo.Point{Latitude: -6.19865, Longitude: 106.8} // ~150 m north
)

type testServer struct {
	url   string
	store *memory.Store
	jwt   jwt.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	lat, lon, radius := inside.Latitude, inside.Longitude, 100.0
	store := memory.NewStore()
	store.PutRestaurant(restaurant.Restaurant{
		ID:           testRestaurantID,
		Name:         "Warung Sate",
		Latitude:     &lat,
		Longitude:    &lon,
		RadiusMeters: &radius,
		Timezone:     "UTC",
	})

	hub := sse.NewHub()
	jwtService := jwt.NewJWTService("test-secret-key-for-jwt", "1h")
	attendanceSvc := attendanceService.NewAttendanceService(
		store.WithTx,
		store.SessionRepository(),
		store.RestaurantRepository(),
		store.ShiftRepository(),
		hub,
		attendanceService.Options{DefaultRadiusMeters: 100, StaleSessionAfter: 16 * time.Hour},
	)
	restaurantSvc := restaurantService.NewRestaurantService(store.RestaurantRepository())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger,
		RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}, LogLevel: slog.LevelError},
		jwtService,
		NewAttendanceHandler(attendanceSvc, hub),
		NewRestaurantHandler(restaurantSvc),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{url: srv.URL + "/api/v1", store: store, jwt: jwtService}
}

func (s *testServer) token(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(claims)
	require.NoError(t, err)
	return token
}

func (s *testServer) employeeToken(t *testing.T, role string) string {
	return s.token(t, jwt.Claims{
		UserID:       "user-1",
		EmployeeID:   testEmployeeID,
		RestaurantID: testRestaurantID,
		Role:         role,
	})
}

func (s *testServer) client(t *testing.T) *timetracking.Client {
	t.Helper()
	client, err := timetracking.NewClient(s.url,
		timetracking.StaticToken(s.employeeToken(t, jwt.RoleEmployee)),
		timetracking.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return client
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, response.Response) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func sample(p geo.Point) timeclock.LocationSample {
	accuracy := 5.0
	return timeclock.LocationSample{Point: p, Accuracy: &accuracy, CapturedAt: time.Now()}
}

func TestRouter_Authentication(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantErr  string
	}{
		{name: "missing token", wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
		{name: "garbage token", token: "not-a-jwt", wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
		{
			name:     "token without employee claims",
			token:    srv.token(t, jwt.Claims{UserID: "user-1", Role: jwt.RoleEmployee}),
			wantCode: http.StatusForbidden,
			wantErr:  "FORBIDDEN",
		},
		{name: "employee token", token: srv.employeeToken(t, jwt.RoleEmployee), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := srv.do(t, http.MethodGet, "/attendance/geofence", tt.token, "")
			assert.Equal(t, tt.wantCode, status)
			if tt.wantErr != "" {
				require.NotNil(t, body.Error)
				assert.Equal(t, tt.wantErr, body.Error.Code)
			} else {
				assert.True(t, body.Success)
			}
		})
	}
}

func TestRouter_RequestValidation(t *testing.T) {
	srv := newTestServer(t)
	token := srv.employeeToken(t, jwt.RoleEmployee)

	status, body := srv.do(t, http.MethodPost, "/attendance/verify-location", token, `{"latitude":200,"longitude":106.8}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, "latitude")

	status, body = srv.do(t, http.MethodPost, "/attendance/clock-in", token, `{"latitude":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)

	status, body = srv.do(t, http.MethodGet, "/attendance/history?page=abc", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Error.Details, "page")
}

func TestRouter_AttendanceFlowThroughClient(t *testing.T) {
	srv := newTestServer(t)
	client := srv.client(t)
	ctx := context.Background()

	fence, err := client.GetRestaurantGeofence(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Warung Sate", fence.Name)
	assert.Equal(t, 100.0, fence.Radius)

	shift, err := client.GetShiftWindow(ctx)
	require.NoError(t, err)
	assert.Nil(t, shift)

	current, err := client.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = client.ClockOut(ctx, nil, false)
	assert.ErrorIs(t, err, timeclock.ErrNoOpenSession)

	t.Run("outside geofence is rejected with the server message", func(t *testing.T) {
		_, err := client.ClockIn(ctx, sample(outside))
		require.ErrorIs(t, err, timeclock.ErrGeofenceViolation)

		var svcErr *timeclock.ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)
		assert.Equal(t, attendance.CodeOutsideGeofence, svcErr.Code)
		assert.Contains(t, svcErr.Message, "150 m away from Warung Sate")
	})

	result, err := client.ClockIn(ctx, sample(inside))
	require.NoError(t, err)
	assert.Equal(t, "Clock in successful", result.Message)
	require.NotNil(t, result.At)

	_, err = client.ClockIn(ctx, sample(inside))
	assert.ErrorIs(t, err, timeclock.ErrInvariantViolation)

	_, err = client.EndBreak(ctx)
	assert.ErrorIs(t, err, timeclock.ErrNotOnBreak)

	_, err = client.StartBreak(ctx)
	require.NoError(t, err)
	_, err = client.StartBreak(ctx)
	assert.ErrorIs(t, err, timeclock.ErrAlreadyOnBreak)

	current, err = client.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.True(t, current.IsBreak)
	assert.Equal(t, timeclock.StateOnBreak, timeclock.StateOf(current))

	exit := sample(outside)
	_, err = client.ClockOut(ctx, &exit, true)
	require.NoError(t, err)

	sessions := srv.store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, attendance.ClockOutReasonAutoGeofence, *sessions[0].ClockOutReason)
	assert.False(t, sessions[0].IsBreak)
	assert.Equal(t, outside.Latitude, *sessions[0].ClockOutLatitude)

	history, err := client.GetAttendanceHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Open())
	assert.True(t, history[0].VerifiedLocation)
}

func TestRouter_ManagerGeofenceUpdate(t *testing.T) {
	srv := newTestServer(t)
	body := `{"latitude":-6.21,"longitude":106.81,"radius_meters":80}`

	status, resp := srv.do(t, http.MethodPut, "/restaurants/my/geofence", srv.employeeToken(t, jwt.RoleEmployee), body)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	status, resp = srv.do(t, http.MethodPut, "/restaurants/my/geofence", srv.employeeToken(t, jwt.RoleManager), body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Geofence updated", resp.Message)

	fence, err := srv.client(t).GetRestaurantGeofence(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -6.21, fence.Center.Latitude)
	assert.Equal(t, 80.0, fence.Radius)

	status, resp = srv.do(t, http.MethodGet, "/restaurants/my", srv.employeeToken(t, jwt.RoleEmployee), "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
}

func TestRouter_EventStream(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// EventSource clients pass the token in the query string.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.url+"/attendance/events?jwt="+srv.employeeToken(t, jwt.RoleEmployee), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		t.Helper()
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
	}

	event, data := readEvent()
	assert.Equal(t, "connected", event)
	assert.Contains(t, data, testEmployeeID)

	_, err = srv.client(t).ClockIn(context.Background(), sample(inside))
	require.NoError(t, err)

	event, data = readEvent()
	assert.Equal(t, attendanceService.EventClockIn, event)

	var session attendance.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(data), &session))
	assert.Equal(t, testEmployeeID, session.EmployeeID)
	assert.Nil(t, session.ClockOutTime)
}

// feeder writes the current position to a device feed every few milliseconds.
type feeder struct {
	pos  atomic.Pointer[geo.Point]
	w    *io.PipeWriter
	done chan struct{}
	wg   sync.WaitGroup
}

func startFeeder(t *testing.T, w *io.PipeWriter, start geo.Point) *feeder {
	t.Helper()
	f := &feeder{w: w, done: make(chan struct{})}
	f.pos.Store(&start)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-f.done:
				return
			case <-ticker.C:
				p := f.pos.Load()
				line := fmt.Sprintf("{\"latitude\":%f,\"longitude\":%f,\"accuracy\":5}\n", p.Latitude, p.Longitude)
				if _, err := io.WriteString(f.w, line); err != nil {
					return
				}
			}
		}
	}()

	t.Cleanup(func() {
		close(f.done)
		_ = f.w.Close()
		f.wg.Wait()
	})
	return f
}

func (f *feeder) moveTo(p geo.Point) { f.pos.Store(&p) }

func TestRouter_ControllerAutoClockOutAfterWalkingAway(t *testing.T) {
	srv := newTestServer(t)

	pr, pw := io.Pipe()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	positioner := position.NewStreamPositioner(pr, position.WithLogger(logger))
	feed := startFeeder(t, pw, inside)

	var autoClockOuts atomic.Int32
	controller := timeclockService.NewController(srv.client(t), positioner,
		timeclockService.WithLogger(logger),
		timeclockService.WithListener(func(e timeclockService.Event) {
			if e.Kind == timeclockService.EventAutoClockOut {
				autoClockOuts.Add(1)
			}
		}),
	)
	t.Cleanup(controller.Close)

	ctx := context.Background()
	require.NoError(t, controller.Load(ctx))
	assert.Equal(t, timeclock.StateClockedOut, controller.State())
	assert.True(t, controller.Eligibility().ShiftActive)

	_, err := controller.ClockIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, timeclock.StateClockedIn, controller.State())

	feed.moveTo(outside)

	require.Eventually(t, func() bool {
		return autoClockOuts.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, timeclock.StateClockedOut, controller.State())

	sessions := srv.store.Sessions()
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].ClockOutReason)
	assert.Equal(t, attendance.ClockOutReasonAutoGeofence, *sessions[0].ClockOutReason)

	// Back inside, a fresh clock-in is accepted.
	feed.moveTo(inside)
	_, err = controller.ClockIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, timeclock.StateClockedIn, controller.State())
	assert.Len(t, srv.store.Sessions(), 2)

	_, err = controller.ClockOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, timeclock.StateClockedOut, controller.State())
}
