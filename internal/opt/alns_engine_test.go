package opt

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christofluyten/rinlog/internal/score"
)

// pairedSchedule builds numParcels pickup/delivery pairs, all unplanned.
func pairedSchedule(seed int64, numVehicles, numParcels int) *score.Schedule {
	rng := rand.New(rand.NewSource(seed))
	pt := func() score.Point { return score.Point{X: float64(rng.Intn(100)), Y: float64(rng.Intn(100))} }
	vehicles := make([]score.Vehicle, numVehicles)
	for i := range vehicles {
		p := pt()
		vehicles[i] = score.Vehicle{Position: p, Depot: p, Travel: score.Euclidean{Speed: 1}}
	}
	var visits []score.ParcelVisit
	for p := 0; p < numParcels; p++ {
		begin := int64(rng.Intn(200))
		visits = append(visits,
			score.ParcelVisit{Parcel: p, Kind: score.Pickup, Position: pt(), ServiceDuration: 5, Window: score.TimeWindow{Begin: begin, End: begin + 100}},
			score.ParcelVisit{Parcel: p, Kind: score.Delivery, Position: pt(), ServiceDuration: 5, Window: score.TimeWindow{Begin: begin, End: begin + 300}},
		)
	}
	return score.NewSchedule(0, vehicles, visits)
}

func resetSession(t *testing.T, sched *score.Schedule, cfg score.Config) *score.Session {
	t.Helper()
	sess := score.NewSession(cfg)
	require.NoError(t, sess.Reset(sched))
	return sess
}

func TestGreedySeedPlansEverything(t *testing.T) {
	sched := pairedSchedule(1, 3, 8)
	sess := resetSession(t, sched, score.Config{PickupDelivery: true})

	n, err := greedySeed(sess)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Zero(t, sess.NumUnplanned())

	got, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Hard, "each delivery follows its pickup on the same vehicle")
	want, err := score.Recompute(sched, score.Config{PickupDelivery: true})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUndoRestoresRoutes(t *testing.T) {
	sched := pairedSchedule(2, 3, 10)
	sess := resetSession(t, sched, score.Config{})
	_, err := greedySeed(sess)
	require.NoError(t, err)
	before, err := sess.Score()
	require.NoError(t, err)
	routes := sched.Routes()

	rng := rand.New(rand.NewSource(3))
	mv := newMover(sess)
	for i := 0; i < 200; i++ {
		require.NoError(t, mv.apply(selectOp([]float64{1, 1, 1}, rng), rng))
		if i%7 == 0 {
			_, err := sess.Score()
			require.NoError(t, err)
		}
	}
	require.NoError(t, mv.undo())
	assert.Equal(t, routes, sched.Routes())
	after, err := sess.Score()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestExchangeAdjacentAndDistant(t *testing.T) {
	sched := pairedSchedule(4, 2, 3)
	sess := resetSession(t, sched, score.Config{})
	a, b, c, d := sched.VisitOf(0), sched.VisitOf(1), sched.VisitOf(2), sched.VisitOf(3)
	require.NoError(t, sess.ChangeLink(0, a))
	require.NoError(t, sess.ChangeLink(a, b))
	require.NoError(t, sess.ChangeLink(b, c))
	require.NoError(t, sess.ChangeLink(1, d))

	mv := newMover(sess)
	require.NoError(t, mv.exchange(a, b))
	assert.Equal(t, []score.VisitID{b, a, c}, sched.Chain(0))
	require.NoError(t, mv.exchange(b, d))
	assert.Equal(t, []score.VisitID{d, a, c}, sched.Chain(0))
	assert.Equal(t, []score.VisitID{b}, sched.Chain(1))

	require.NoError(t, mv.twoOpt(d, 3))
	assert.Equal(t, []score.VisitID{c, a, d}, sched.Chain(0))

	got, err := sess.Score()
	require.NoError(t, err)
	want, err := score.Recompute(sched, score.Config{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSolveRepairsOrder(t *testing.T) {
	vehicles := []score.Vehicle{{Travel: score.Euclidean{Speed: 1}}}
	visits := []score.ParcelVisit{
		{Parcel: 0, Kind: score.Pickup, Position: score.Point{X: 20}, ServiceDuration: 10, Window: score.TimeWindow{End: 50}},
		{Parcel: 1, Kind: score.Pickup, Position: score.Point{X: 20, Y: 30}, ServiceDuration: 5, Window: score.TimeWindow{End: 100}},
	}
	sched := score.NewSchedule(0, vehicles, visits)
	require.NoError(t, sched.Append(0, sched.VisitOf(1), sched.VisitOf(0)))
	sess := resetSession(t, sched, score.Config{})

	res, err := Solve(context.Background(), sess, Options{Seed: 1, MaxIterations: 200, TimeBudget: time.Second})
	require.NoError(t, err)
	assert.Equal(t, score.Score{Soft: -107}, res.Metrics.InitialScore)
	assert.Equal(t, score.Score{Soft: -86}, res.Best)
	assert.Equal(t, []score.VisitID{sched.VisitOf(0), sched.VisitOf(1)}, res.Schedule.Chain(0))
	assert.GreaterOrEqual(t, res.Metrics.Improvements, 1)
}

func TestSolveBestMatchesRecompute(t *testing.T) {
	cfg := score.Config{PickupDelivery: true}
	sched := pairedSchedule(5, 3, 12)
	sess := resetSession(t, sched, cfg)

	var calls int
	res, err := Solve(context.Background(), sess, Options{
		Seed:          9,
		MaxIterations: 1500,
		TimeBudget:    5 * time.Second,
		SnapshotEvery: 100,
		ProgressEvery: 500,
		Progress:      func(context.Context, Progress) { calls++ },
	})
	require.NoError(t, err)
	m := res.Metrics

	assert.Equal(t, 1500, m.Iterations)
	assert.Equal(t, m.Iterations, m.OperatorSelects[0]+m.OperatorSelects[1]+m.OperatorSelects[2])
	assert.Len(t, m.Snapshots, 15)
	assert.GreaterOrEqual(t, calls, 3)
	assert.GreaterOrEqual(t, res.Best.Compare(m.InitialScore), 0)
	assert.Zero(t, res.Best.Hard)

	want, err := score.Recompute(res.Schedule, cfg)
	require.NoError(t, err)
	assert.Equal(t, want, res.Best)

	cur, err := score.Recompute(sched, cfg)
	require.NoError(t, err)
	assert.Equal(t, cur, m.FinalScore)
	assert.Positive(t, m.Evaluator.Flushes)

	flat := m.ToMap()
	assert.Equal(t, 1500, flat["iterations"])
	assert.Equal(t, res.Best.String(), flat["bestScore"])
}

func TestSolveStopsOnCancel(t *testing.T) {
	sched := pairedSchedule(6, 2, 5)
	sess := resetSession(t, sched, score.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Solve(ctx, sess, Options{TimeBudget: time.Second})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Metrics.Iterations)
	assert.Equal(t, 10, res.Metrics.SeededVisits)
	assert.NotNil(t, res.Schedule)
}

func TestSolveRequiresReset(t *testing.T) {
	_, err := Solve(context.Background(), score.NewSession(score.Config{}), Options{})
	require.ErrorIs(t, err, score.ErrNotReset)
}

func TestSelectOp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		assert.Equal(t, 1, selectOp([]float64{0, 1, 0}, rng))
	}
	assert.Equal(t, 0, selectOp([]float64{0, 0, 0}, rng))
}

func TestAcceptNeverWorsensHard(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	curr := score.Score{Hard: 0, Soft: -100}
	for i := 0; i < 100; i++ {
		assert.False(t, accept(score.Score{Hard: -1, Soft: 0}, curr, 1e9, rng))
	}
	assert.True(t, accept(score.Score{Soft: -50}, curr, 0, rng))
	assert.False(t, accept(score.Score{Soft: -1000}, curr, 1e-6, rng))
}
