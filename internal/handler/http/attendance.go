package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/validator"
	"github.com/goccy/go-json"
)

type AttendanceHandler interface {
	GetGeofence(w http.ResponseWriter, r *http.Request)
	GetShift(w http.ResponseWriter, r *http.Request)
	VerifyLocation(w http.ResponseWriter, r *http.Request)
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	GetCurrent(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	hub               *sse.Hub
	keepalive         time.Duration
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, hub *sse.Hub) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		hub:               hub,
		keepalive:         30 * time.Second,
	}
}

// decodeJSON reads a JSON body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

// GetGeofence implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetGeofence(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.GetGeofence(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// GetShift implements AttendanceHandler. Data is null when no shift is scheduled.
func (h *attendanceHandlerImpl) GetShift(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.GetShiftWindow(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.SuccessWithMessage(w, "No shift scheduled today", nil)
		return
	}
	response.Success(w, result)
}

// VerifyLocation implements AttendanceHandler.
func (h *attendanceHandlerImpl) VerifyLocation(w http.ResponseWriter, r *http.Request) {
	var req attendance.VerifyLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Debug("Failed to decode verify location request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.attendanceService.VerifyLocation(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.ClockInRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Debug("Failed to decode clock in request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.attendanceService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, result.Message, result)
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req attendance.ClockOutRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Debug("Failed to decode clock out request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.attendanceService.ClockOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, result.Message, result)
}

// StartBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.StartBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, result.Message, result)
}

// EndBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.EndBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, result.Message, result)
}

// GetCurrent implements AttendanceHandler. Data is null when there is no session today.
func (h *attendanceHandlerImpl) GetCurrent(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.GetCurrentSession(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.SuccessWithMessage(w, "No attendance session today", nil)
		return
	}
	response.Success(w, result)
}

// GetHistory implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetHistory(w http.ResponseWriter, r *http.Request) {
	var errs validator.ValidationErrors
	page, verr := validator.ParseQueryInt("page", r.URL.Query().Get("page"))
	if verr != nil {
		errs = append(errs, *verr)
	}
	limit, verr := validator.ParseQueryInt("limit", r.URL.Query().Get("limit"))
	if verr != nil {
		errs = append(errs, *verr)
	}
	if len(errs) > 0 {
		response.HandleError(w, errs)
		return
	}

	result, err := h.attendanceService.GetHistory(r.Context(), attendance.HistoryFilter{Page: page, Limit: limit})
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMeta(w, result, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Events streams the caller's attendance changes as server-sent events.
func (h *attendanceHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(claims.EmployeeID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"employee_id\":%q}\n\n", claims.EmployeeID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Error("Failed to encode attendance event", "event", event.Event, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
