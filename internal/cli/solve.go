package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/christofluyten/rinlog/internal/opt"
	"github.com/christofluyten/rinlog/internal/scenario"
	"github.com/christofluyten/rinlog/internal/score"
)

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <scenario-file>",
		Short: "Improve the routes of a scenario by local search",
		Long: `Solve plans every unplanned visit, then runs relocate, exchange and 2-opt
moves under simulated annealing until the time budget or iteration cap is
reached. The best schedule found can be written back as a scenario file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetInt64("seed")
			budget, _ := cmd.Flags().GetDuration("budget")
			iters, _ := cmd.Flags().GetInt("iterations")
			temp, _ := cmd.Flags().GetFloat64("temp")
			cooling, _ := cmd.Flags().GetFloat64("cooling")
			weights, _ := cmd.Flags().GetFloat64Slice("weights")
			output, _ := cmd.Flags().GetString("output")
			verbose, _ := cmd.Flags().GetBool("verbose")
			if len(weights) != 0 && len(weights) != len(opt.OperatorNames) {
				return fmt.Errorf("--weights needs %d values (%s)", len(opt.OperatorNames), strings.Join(opt.OperatorNames[:], ", "))
			}

			sc, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}
			built, err := scenario.Build(sc)
			if err != nil {
				return err
			}
			sess, err := built.Session()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			opts := opt.Options{
				Seed: seed, TimeBudget: budget, MaxIterations: iters,
				InitialTemp: temp, Cooling: cooling, OperatorWeights: weights,
			}
			if verbose {
				opts.Progress = func(_ context.Context, p opt.Progress) {
					fmt.Fprintf(cmd.ErrOrStderr(), "iter %6d  current %s  best %s  %s\n", p.Iteration, p.Current, p.Best, p.Elapsed.Round(time.Millisecond))
				}
			}
			res, err := opt.Solve(cmd.Context(), sess, opts)
			if err != nil {
				return err
			}
			m := res.Metrics
			fmt.Fprintf(out, "initial %s  best %s  (%d iterations, %d improvements, %s)\n",
				m.InitialScore, res.Best, m.Iterations, m.Improvements, m.Elapsed.Round(time.Millisecond))

			best := score.NewSession(built.Config)
			if err := best.Reset(res.Schedule); err != nil {
				return err
			}
			ev, err := built.Report(best)
			if err != nil {
				return err
			}
			printEvaluation(out, ev)

			if output == "" {
				return nil
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			asJSON := strings.EqualFold(filepath.Ext(output), ".json")
			if err := scenario.Write(f, built.WithRoutes(res.Schedule), asJSON); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().Int64("seed", 1, "random seed")
	cmd.Flags().Duration("budget", 2*time.Second, "time budget")
	cmd.Flags().Int("iterations", 0, "iteration cap (0: bounded by --budget only)")
	cmd.Flags().Float64("temp", 0, "initial annealing temperature (0: default)")
	cmd.Flags().Float64("cooling", 0, "cooling factor per iteration in (0,1) (0: default)")
	cmd.Flags().Float64Slice("weights", nil, "initial operator weights: relocate,exchange,two_opt")
	cmd.Flags().StringP("output", "o", "", "write the best schedule as a scenario file (.json or .yaml)")
	cmd.Flags().BoolP("verbose", "v", false, "print search progress to stderr")
	return cmd
}
