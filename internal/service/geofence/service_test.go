package geofence

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	result timeclock.VerificationResult
	err    error
	calls  []geo.Point
}

func (s *stubVerifier) VerifyLocation(ctx context.Context, latitude, longitude float64) (timeclock.VerificationResult, error) {
	s.calls = append(s.calls, geo.Point{Latitude: latitude, Longitude: longitude})
	return s.result, s.err
}

func sampleAt(lat, lon float64) timeclock.LocationSample {
	return timeclock.LocationSample{Point: geo.Point{Latitude: lat, Longitude: lon}}
}

var testFence = timeclock.Geofence{
	Center: geo.Point{Latitude: 40.0, Longitude: -73.0},
	Radius: 50,
	Name:   "Harbor Grill",
}

func TestLocal_WithinRange(t *testing.T) {
	e := NewEvaluator(&stubVerifier{})

	result := e.Local(sampleAt(40.00005, -73.0), testFence)

	assert.True(t, result.WithinRange)
	require.NotNil(t, result.Distance)
	assert.InDelta(t, 5.56, *result.Distance, 0.05)
}

func TestLocal_BoundaryIsInclusive(t *testing.T) {
	e := NewEvaluator(&stubVerifier{})
	sample := sampleAt(40.0004, -73.0)
	d := geo.Distance(sample.Point, testFence.Center)

	atEdge := testFence
	atEdge.Radius = d
	assert.True(t, e.Local(sample, atEdge).WithinRange)

	tooSmall := testFence
	tooSmall.Radius = d - 1
	result := e.Local(sample, tooSmall)
	assert.False(t, result.WithinRange)
	assert.Contains(t, result.Message, "Harbor Grill")
}

func TestRemote_SendsRawCoordinates(t *testing.T) {
	v := &stubVerifier{result: timeclock.VerificationResult{WithinRange: false, Message: "too far"}}
	e := NewEvaluator(v)

	result, err := e.Remote(context.Background(), sampleAt(40.1, -73.2))

	require.NoError(t, err)
	assert.False(t, result.WithinRange)
	assert.Equal(t, "too far", result.Message)
	assert.Equal(t, []geo.Point{{Latitude: 40.1, Longitude: -73.2}}, v.calls)
}

func TestEvaluate_RemoteFailureDoesNotFallBack(t *testing.T) {
	e := NewEvaluator(&stubVerifier{err: timeclock.ErrServiceUnavailable})

	evaluation := e.Evaluate(context.Background(), sampleAt(40.00005, -73.0), testFence)

	assert.True(t, evaluation.Local.WithinRange)
	assert.Nil(t, evaluation.Remote)
	assert.ErrorIs(t, evaluation.RemoteErr, timeclock.ErrServiceUnavailable)

	_, err := evaluation.Authoritative()
	assert.ErrorIs(t, err, timeclock.ErrServiceUnavailable)
	assert.True(t, evaluation.Display().WithinRange)
}

func TestEvaluate_RemoteTakesPrecedence(t *testing.T) {
	e := NewEvaluator(&stubVerifier{result: timeclock.VerificationResult{WithinRange: false, Message: "server policy"}})

	evaluation := e.Evaluate(context.Background(), sampleAt(40.00005, -73.0), testFence)

	assert.True(t, evaluation.Local.WithinRange)
	result, err := evaluation.Authoritative()
	require.NoError(t, err)
	assert.False(t, result.WithinRange)
	assert.Equal(t, "server policy", evaluation.Display().Message)
}
