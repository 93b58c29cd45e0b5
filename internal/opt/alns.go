package opt

import (
	"context"
	"time"

	"github.com/christofluyten/rinlog/internal/score"
)

// Operator indices into Options.OperatorWeights and Metrics.OperatorSelects.
const (
	OpRelocate = iota
	OpExchange
	OpTwoOpt
	numOps
)

var OperatorNames = [numOps]string{"relocate", "exchange", "two_opt"}

// Options tunes one Solve call. Zero values select the defaults.
type Options struct {
	Seed            int64
	TimeBudget      time.Duration // default 300ms
	MaxIterations   int           // 0: bounded by TimeBudget only
	InitialTemp     float64       // default 10
	Cooling         float64       // per iteration, in (0,1); default 0.995
	OperatorWeights []float64     // [relocate, exchange, two_opt]
	SnapshotEvery   int           // weight snapshot period; default 50
	// ProgressEvery is the iteration period of Progress calls; default 100.
	ProgressEvery int
	Progress      func(context.Context, Progress)
}

// Progress is reported periodically and on every new best score.
type Progress struct {
	Iteration int
	Current   score.Score
	Best      score.Score
	Elapsed   time.Duration
}

func (o Options) withDefaults() Options {
	if o.TimeBudget <= 0 {
		o.TimeBudget = 300 * time.Millisecond
	}
	if o.InitialTemp <= 0 {
		o.InitialTemp = 10
	}
	if o.Cooling <= 0 || o.Cooling >= 1 {
		o.Cooling = 0.995
	}
	if len(o.OperatorWeights) != numOps {
		o.OperatorWeights = []float64{1, 1, 1}
	} else {
		o.OperatorWeights = append([]float64(nil), o.OperatorWeights...)
	}
	if o.SnapshotEvery <= 0 {
		o.SnapshotEvery = 50
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 100
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}
