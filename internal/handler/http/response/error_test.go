package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_AttendanceCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"outside geofence", attendance.ErrOutsideGeofence, http.StatusUnprocessableEntity, attendance.CodeOutsideGeofence},
		{"outside shift", attendance.ErrOutsideShift, http.StatusUnprocessableEntity, attendance.CodeOutsideShift},
		{"session already open", attendance.ErrSessionAlreadyOpen, http.StatusConflict, attendance.CodeSessionAlreadyOpen},
		{"no open session", fmt.Errorf("clock out: %w", attendance.ErrNoOpenSession), http.StatusConflict, attendance.CodeNoOpenSession},
		{"already on break", attendance.ErrAlreadyOnBreak, http.StatusConflict, attendance.CodeAlreadyOnBreak},
		{"not on break", attendance.ErrNotOnBreak, http.StatusConflict, attendance.CodeNotOnBreak},
		{"geofence not configured", restaurant.ErrGeofenceNotConfigured, http.StatusConflict, attendance.CodeGeofenceNotConfigured},
		{"unhandled", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestHandleError_RejectionDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, &attendance.RejectionError{
		Kind:   attendance.ErrOutsideGeofence,
		Detail: "You are 150 m away from Warung Sate",
	})

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, attendance.CodeOutsideGeofence, body.Error.Code)
	assert.Equal(t, "You are 150 m away from Warung Sate", body.Error.Message)
}
