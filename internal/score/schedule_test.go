package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSuccessorRejects(t *testing.T) {
	sched, veh, a, b := twoStops(t)

	require.ErrorIs(t, sched.SetSuccessor(99, None), ErrUnknownVisit)
	require.ErrorIs(t, sched.SetSuccessor(a, 99), ErrUnknownVisit)
	require.ErrorIs(t, sched.SetSuccessor(b, veh), ErrVehicleSuccessor)
	require.ErrorIs(t, sched.SetSuccessor(veh, b), ErrAttached)

	// Detach A->B, then try to close B->A.
	require.NoError(t, sched.SetSuccessor(veh, None))
	require.ErrorIs(t, sched.SetSuccessor(b, a), ErrCycle)
	assert.Equal(t, uint64(3), sched.Version())
}

func TestSetSuccessorSameLinkIsAllowed(t *testing.T) {
	sched, _, a, b := twoStops(t)
	v := sched.Version()
	require.NoError(t, sched.SetSuccessor(a, b))
	assert.Equal(t, v+1, sched.Version())
	assert.Equal(t, b, sched.Successor(a))
	assert.Equal(t, a, sched.Predecessor(b))
}

func TestOwner(t *testing.T) {
	sched, veh, a, b := twoStops(t)
	assert.Equal(t, veh, sched.Owner(b))
	require.NoError(t, sched.SetSuccessor(a, None))
	assert.Equal(t, veh, sched.Owner(a))
	assert.Equal(t, None, sched.Owner(b))
	assert.Equal(t, a, sched.Last(veh))
	assert.Equal(t, [][]VisitID{{a}}, sched.Routes())
}

func TestCloneIsIndependent(t *testing.T) {
	sched, veh, a, b := twoStops(t)
	c := sched.Clone()
	require.NoError(t, c.SetSuccessor(veh, None))
	c.Vehicle(veh).Deadline = 1

	assert.Equal(t, []VisitID{a, b}, sched.Chain(veh))
	assert.Empty(t, c.Chain(veh))
	assert.Zero(t, sched.Vehicle(veh).Deadline)
}

func TestTravelModels(t *testing.T) {
	assert.Equal(t, int64(5), Euclidean{Speed: 1}.TravelTime(Point{}, Point{X: 3, Y: 4}))
	assert.Equal(t, int64(3), Euclidean{Speed: 2}.TravelTime(Point{}, Point{X: 3, Y: 4}))
	assert.Equal(t, int64(5), Euclidean{}.TravelTime(Point{}, Point{X: 3, Y: 4}))

	// One degree of longitude at the equator is about 111 km; 50 km/h needs about 8000 s.
	got := Haversine{}.TravelTime(Point{X: 0, Y: 0}, Point{X: 1, Y: 0})
	assert.InDelta(t, 8006, got, 10)

	f := TravelFunc(func(from, to Point) int64 { return 7 })
	assert.Equal(t, int64(7), f.TravelTime(Point{}, Point{}))
}

func TestParcelVisitTiming(t *testing.T) {
	pv := ParcelVisit{Window: TimeWindow{Begin: 10, End: 20}}
	assert.Equal(t, int64(10), pv.ServiceStartTime(3))
	assert.Equal(t, int64(15), pv.ServiceStartTime(15))
	assert.Zero(t, pv.Tardiness(20))
	assert.Equal(t, int64(5), pv.Tardiness(25))

	open := ParcelVisit{Window: Always}
	assert.Zero(t, open.Tardiness(1<<40))
}
