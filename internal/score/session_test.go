package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoStops builds one vehicle at the origin with visits A (20 away) and B
// (30 beyond A), unit speed, chained A->B.
func twoStops(t *testing.T) (*Schedule, VisitID, VisitID, VisitID) {
	t.Helper()
	vehicles := []Vehicle{{Name: "truck", Travel: Euclidean{Speed: 1}}}
	visits := []ParcelVisit{
		{Parcel: 0, Kind: Pickup, Position: Point{X: 20}, ServiceDuration: 10, Window: TimeWindow{Begin: 0, End: 50}},
		{Parcel: 1, Kind: Pickup, Position: Point{X: 20, Y: 30}, ServiceDuration: 5, Window: TimeWindow{Begin: 0, End: 100}},
	}
	sched := NewSchedule(0, vehicles, visits)
	veh, a, b := sched.VehicleOf(0), sched.VisitOf(0), sched.VisitOf(1)
	require.NoError(t, sched.Append(veh, a, b))
	return sched, veh, a, b
}

func TestResetPricesChain(t *testing.T) {
	sched, veh, a, b := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	assert.Equal(t, int64(30), sess.DoneTime(a))
	assert.Equal(t, int64(0), sess.Tardiness(a))
	assert.Equal(t, int64(20), sess.TravelTime(a))
	assert.Equal(t, int64(65), sess.DoneTime(b))
	assert.Equal(t, int64(0), sess.Tardiness(b))
	assert.Equal(t, int64(30), sess.TravelTime(b))
	// B (20,30) back to the origin rounds to 36.
	assert.Equal(t, int64(36), sess.TravelTime(veh))

	got, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, Score{Hard: 0, Soft: -86}, got)
	assert.Equal(t, "0hard/-86soft", got.String())
	assert.Zero(t, sess.NumUnplanned())
}

func TestSwapOrderChangesSoftScore(t *testing.T) {
	sched, veh, a, b := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))
	before, err := sess.Score()
	require.NoError(t, err)

	// veh->A->B  becomes  veh->B->A
	require.NoError(t, sess.ChangeLink(a, None))
	require.NoError(t, sess.ChangeLink(veh, b))
	require.NoError(t, sess.ChangeLink(b, a))

	after, err := sess.Score()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, []VisitID{b, a}, sched.Chain(veh))

	assert.Equal(t, int64(36), sess.TravelTime(b))
	assert.Equal(t, int64(41), sess.DoneTime(b))
	assert.Equal(t, int64(21), sess.Tardiness(a))
	assert.Equal(t, int64(81), sess.DoneTime(a))
	assert.Equal(t, int64(20), sess.TravelTime(veh))
	assert.Equal(t, Score{Soft: -(36 + 30 + 21 + 20)}, after)

	fresh, err := Recompute(sched, Config{})
	require.NoError(t, err)
	assert.Equal(t, fresh, after)
}

func TestScoreIsIdempotent(t *testing.T) {
	sched, veh, a, _ := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))
	require.NoError(t, sess.ChangeLink(veh, None))
	require.NoError(t, sess.ChangeLink(veh, a))

	first, err := sess.Score()
	require.NoError(t, err)
	second, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, sess.Pending())
}

func TestRemoveInsertInverse(t *testing.T) {
	sched, veh, a, b := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	for _, v := range []VisitID{a, b} {
		done, tt, tard, soft := sess.DoneTime(v), sess.TravelTime(v), sess.Tardiness(v), sess.soft
		require.NoError(t, sess.remove(v))
		require.NoError(t, sess.insert(v, veh))
		assert.Equal(t, done, sess.DoneTime(v))
		assert.Equal(t, tt, sess.TravelTime(v))
		assert.Equal(t, tard, sess.Tardiness(v))
		assert.Equal(t, soft, sess.soft)
	}
}

func TestDoubleInsertIsInvariantViolation(t *testing.T) {
	sched, veh, a, _ := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	require.ErrorIs(t, sess.insert(a, veh), ErrInvariant)
	require.NoError(t, sess.remove(a))
	require.ErrorIs(t, sess.remove(a), ErrInvariant)
}

func TestTardinessMonotonicInStartTime(t *testing.T) {
	sched, _, a, b := twoStops(t)
	prevA, prevB := int64(-1), int64(-1)
	for start := int64(0); start <= 120; start += 7 {
		sched.StartTime = start
		sess := NewSession(Config{})
		require.NoError(t, sess.Reset(sched))
		assert.GreaterOrEqual(t, sess.Tardiness(a), prevA)
		assert.GreaterOrEqual(t, sess.Tardiness(b), prevB)
		prevA, prevB = sess.Tardiness(a), sess.Tardiness(b)
	}
	assert.Positive(t, prevA)
}

func TestDetachedVisitsBecomeUnplanned(t *testing.T) {
	sched, veh, a, b := twoStops(t)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	// Cut the whole chain off the vehicle: A->B is left as a fragment.
	require.NoError(t, sess.ChangeLink(veh, None))
	got, err := sess.Score()
	require.NoError(t, err)

	assert.Equal(t, []VisitID{a, b}, sess.Unplanned())
	assert.Equal(t, Score{}, got, "idle vehicle parked at its depot costs nothing")
	fresh, err := Recompute(sched, Config{})
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	// Reattach the fragment head: B follows along.
	require.NoError(t, sess.ChangeLink(veh, a))
	got, err = sess.Score()
	require.NoError(t, err)
	assert.Empty(t, sess.Unplanned())
	assert.Equal(t, Score{Soft: -86}, got)
}

func TestDepotDeadline(t *testing.T) {
	sched, veh, _, _ := twoStops(t)
	sched.Vehicle(veh).Deadline = 90
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))

	r, err := sess.Route(veh)
	require.NoError(t, err)
	assert.Equal(t, int64(65+36), r.DepotArrival)
	assert.Equal(t, int64(11), r.DepotTardiness)
	assert.Len(t, r.Stops, 2)

	got, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, int64(-97), got.Soft)
}

func TestIdleVehicleTravelsFromPosition(t *testing.T) {
	vehicles := []Vehicle{{Position: Point{X: 3, Y: 4}, Travel: Euclidean{Speed: 1}}}
	sched := NewSchedule(10, vehicles, nil)
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))
	got, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, int64(-5), got.Soft)
}

func TestWindowOpeningDelaysService(t *testing.T) {
	vehicles := []Vehicle{{Travel: Euclidean{Speed: 1}}}
	visits := []ParcelVisit{{Kind: Pickup, Position: Point{X: 10}, ServiceDuration: 2, Window: TimeWindow{Begin: 25, End: 40}}}
	sched := NewSchedule(0, vehicles, visits)
	require.NoError(t, sched.Append(0, sched.VisitOf(0)))
	sess := NewSession(Config{})
	require.NoError(t, sess.Reset(sched))
	assert.Equal(t, int64(27), sess.DoneTime(sched.VisitOf(0)))
	assert.Zero(t, sess.Tardiness(sched.VisitOf(0)))
}

func TestPickupDeliveryPairing(t *testing.T) {
	vehicles := []Vehicle{{Travel: Euclidean{Speed: 1}, Contents: []int{7}}}
	visits := []ParcelVisit{
		{Parcel: 0, Kind: Pickup, Position: Point{X: 1}, Window: Always},
		{Parcel: 0, Kind: Delivery, Position: Point{X: 2}, Window: Always},
		{Parcel: 7, Kind: Delivery, Position: Point{X: 3}, Window: Always},
	}
	pick, drop, onboard := VisitID(1), VisitID(2), VisitID(3)

	sched := NewSchedule(0, vehicles, visits)
	require.NoError(t, sched.Append(0, pick, drop, onboard))
	got, err := Recompute(sched, Config{PickupDelivery: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Hard)
	assert.True(t, got.Feasible())

	sess := NewSession(Config{PickupDelivery: true})
	require.NoError(t, sess.Reset(sched))
	// veh->pick->drop->onboard  becomes  veh->drop->pick (onboard unplanned)
	require.NoError(t, sess.ChangeLink(pick, None))
	require.NoError(t, sess.ChangeLink(drop, None))
	require.NoError(t, sess.ChangeLink(0, drop))
	require.NoError(t, sess.ChangeLink(drop, pick))
	got, err = sess.Score()
	require.NoError(t, err)
	// delivery before pickup, parcel 0 left on board, parcel 7 never delivered
	assert.Equal(t, int64(-3), got.Hard)
	assert.False(t, got.Feasible())
	assert.Equal(t, []VisitID{onboard}, sess.Unplanned())

	fresh, err := Recompute(sched, Config{PickupDelivery: true})
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestScoreCompare(t *testing.T) {
	assert.True(t, Score{Hard: 0, Soft: -100}.Better(Score{Hard: -1, Soft: 0}))
	assert.True(t, Score{Hard: 0, Soft: -10}.Better(Score{Hard: 0, Soft: -11}))
	assert.Equal(t, 0, Score{Hard: -1, Soft: -1}.Compare(Score{Hard: -1, Soft: -1}))
}
