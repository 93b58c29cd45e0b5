package opt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/christofluyten/rinlog/internal/score"
)

// ErrUndoMismatch reports that rolling back a rejected candidate did not
// restore the previous score.
var ErrUndoMismatch = errors.New("opt: undo did not restore the score")

type Metrics struct {
	OperatorSelects [numOps]int
	Iterations      int
	Improvements    int
	AcceptedWorse   int
	Rejected        int
	SeededVisits    int
	InitialScore    score.Score
	BestScore       score.Score
	FinalScore      score.Score
	FinalWeights    [numOps]float64
	Snapshots       []WeightSnapshot
	Evaluator       score.Stats
	Elapsed         time.Duration
}

type WeightSnapshot struct {
	Iteration int
	Weights   [numOps]float64
}

// Result is the outcome of Solve. Schedule is a snapshot of the best
// schedule found; the session's own schedule is left at the last accepted
// candidate.
type Result struct {
	Best     score.Score
	Schedule *score.Schedule
	Metrics  Metrics
}

// Solve improves the schedule of sess, which must have been Reset. Unplanned
// visits are first appended greedily, then relocate, exchange and 2-opt moves
// are drawn by roulette wheel over adaptive weights and accepted by simulated
// annealing on the soft score; the hard score never gets worse. Every move is
// applied as bracketed link edits and priced incrementally by the session.
//
// When ctx is cancelled Solve stops and returns the best result so far
// together with the context error.
func Solve(ctx context.Context, sess *score.Session, opts Options) (Result, error) {
	opts = opts.withDefaults()
	sched := sess.Schedule()
	if sched == nil {
		return Result{}, fmt.Errorf("opt: solve: %w", score.ErrNotReset)
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	start := time.Now()

	var m Metrics
	seeded, err := greedySeed(sess)
	if err != nil {
		return Result{}, fmt.Errorf("opt: seed: %w", err)
	}
	m.SeededVisits = seeded
	curr, err := sess.Score()
	if err != nil {
		return Result{}, fmt.Errorf("opt: seed: %w", err)
	}
	best, snap := curr, sched.Clone()
	m.InitialScore, m.BestScore = curr, best

	weights := opts.OperatorWeights
	temp := opts.InitialTemp
	mv := newMover(sess)
	deadline := start.Add(opts.TimeBudget)
	report := func() {
		if opts.Progress != nil {
			opts.Progress(ctx, Progress{Iteration: m.Iterations, Current: curr, Best: best, Elapsed: time.Since(start)})
		}
	}

	var stopErr error
	for sched.NumVisits() > 0 && sched.NumVehicles() > 0 && time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			stopErr = fmt.Errorf("opt: solve interrupted: %w", err)
			break
		}
		if opts.MaxIterations > 0 && m.Iterations >= opts.MaxIterations {
			break
		}
		m.Iterations++
		op := selectOp(weights, rng)
		m.OperatorSelects[op]++
		if err := mv.apply(op, rng); err != nil {
			return Result{}, err
		}
		cand, err := sess.Score()
		if err != nil {
			return Result{}, fmt.Errorf("opt: score candidate: %w", err)
		}

		if accept(cand, curr, temp, rng) {
			if cand.Better(best) {
				best, snap = cand, sched.Clone()
				weights[op] += 0.1
				m.Improvements++
				m.BestScore = best
				curr = cand
				report()
			} else {
				if cand.Compare(curr) < 0 {
					m.AcceptedWorse++
				}
				weights[op] += 0.01
				curr = cand
			}
			mv.commit()
		} else {
			// slight penalty for non-acceptance
			weights[op] = math.Max(0.01, weights[op]*0.999)
			m.Rejected++
			if err := mv.undo(); err != nil {
				return Result{}, fmt.Errorf("opt: undo: %w", err)
			}
			back, err := sess.Score()
			if err != nil {
				return Result{}, fmt.Errorf("opt: undo: %w", err)
			}
			if back != curr {
				return Result{}, fmt.Errorf("%w: want %s, got %s", ErrUndoMismatch, curr, back)
			}
		}
		temp *= opts.Cooling

		if m.Iterations%opts.SnapshotEvery == 0 {
			m.Snapshots = append(m.Snapshots, WeightSnapshot{Iteration: m.Iterations, Weights: toArray(weights)})
		}
		if m.Iterations%opts.ProgressEvery == 0 {
			report()
		}
	}

	m.FinalScore = curr
	m.FinalWeights = toArray(weights)
	m.Evaluator = sess.Stats()
	m.Elapsed = time.Since(start)
	return Result{Best: best, Schedule: snap, Metrics: m}, stopErr
}

// accept is the simulated-annealing criterion, tiered: a worse hard score is
// always rejected, a worse soft score is accepted with probability
// exp(-delta/temp).
func accept(cand, curr score.Score, temp float64, rng *rand.Rand) bool {
	if cand.Compare(curr) >= 0 {
		return true
	}
	if cand.Hard < curr.Hard {
		return false
	}
	delta := float64(curr.Soft - cand.Soft)
	return rng.Float64() < math.Exp(-delta/(temp+1e-9))
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func toArray(w []float64) [numOps]float64 {
	var out [numOps]float64
	copy(out[:], w)
	return out
}

// ToMap flattens m for storage and JSON responses.
func (m Metrics) ToMap() map[string]any {
	selects := map[string]int{}
	weights := map[string]float64{}
	for i, name := range OperatorNames {
		selects[name] = m.OperatorSelects[i]
		weights[name] = m.FinalWeights[i]
	}
	snaps := make([]map[string]any, 0, len(m.Snapshots))
	for _, s := range m.Snapshots {
		w := map[string]float64{}
		for i, name := range OperatorNames {
			w[name] = s.Weights[i]
		}
		snaps = append(snaps, map[string]any{"iteration": s.Iteration, "weights": w})
	}
	return map[string]any{
		"iterations":      m.Iterations,
		"improvements":    m.Improvements,
		"acceptedWorse":   m.AcceptedWorse,
		"rejected":        m.Rejected,
		"seededVisits":    m.SeededVisits,
		"initialScore":    m.InitialScore.String(),
		"bestScore":       m.BestScore.String(),
		"finalScore":      m.FinalScore.String(),
		"operatorSelects": selects,
		"finalWeights":    weights,
		"snapshots":       snaps,
		"evaluator":       m.Evaluator,
		"elapsedMs":       m.Elapsed.Milliseconds(),
	}
}
