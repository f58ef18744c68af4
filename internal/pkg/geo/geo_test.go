package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	points := []Point{
		{0, 0},
		{40, -73},
		{-33.8688, 151.2093},
		{89.9, 179.9},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p, p), "point %+v", p)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	cases := []struct {
		a, b Point
	}{
		{Point{40, -73}, Point{40.001, -73.002}},
		{Point{-6.2, 106.8}, Point{-6.21, 106.85}},
		{Point{51.5, -0.12}, Point{48.85, 2.35}},
	}
	for _, c := range cases {
		assert.InDelta(t, Distance(c.a, c.b), Distance(c.b, c.a), 1e-9)
	}
}

func TestDistance_KnownFixture(t *testing.T) {
	got := Distance(Point{40.0, -73.0}, Point{40.001, -73.0})
	assert.InEpsilon(t, 111.19, got, 0.01)
}

func TestDistance_NaNPropagates(t *testing.T) {
	got := Distance(Point{math.NaN(), 0}, Point{0, 0})
	assert.True(t, math.IsNaN(got))
}

func TestWithin_InclusiveBoundary(t *testing.T) {
	center := Point{40.0, -73.0}
	p := Point{40.0005, -73.0}
	d := Distance(p, center)

	assert.True(t, Within(p, center, d))
	assert.False(t, Within(p, center, d-1))
	assert.True(t, Within(Point{40.00005, -73.0}, center, 50))
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{90, 180}.Valid())
	assert.True(t, Point{-90, -180}.Valid())
	assert.False(t, Point{90.1, 0}.Valid())
	assert.False(t, Point{0, -180.5}.Valid())
}
