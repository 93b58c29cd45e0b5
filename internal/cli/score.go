package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/christofluyten/rinlog/internal/model"
	"github.com/christofluyten/rinlog/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario-file>",
		Short: "Check a scenario file for structural errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d vehicles, %d parcels)\n", sc.Name, len(sc.Vehicles), len(sc.Parcels))
			return nil
		},
	}
}

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <scenario-file>",
		Short: "Price the routes of a scenario",
		Long: `Score loads a scenario, prices every vehicle route and prints the hard/soft
score with per-stop completion times and tardiness.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			sc, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}
			ev, err := scenario.Evaluate(sc)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), ev)
			}
			printEvaluation(cmd.OutOrStdout(), ev)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print the evaluation as JSON")
	return cmd
}

func printEvaluation(w io.Writer, ev model.Evaluation) {
	fmt.Fprintf(w, "score: %s feasible=%t\n", ev.Score.Score, ev.Score.Feasible)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VEHICLE\tSTOP\tTRAVEL\tDONE\tTARDINESS")
	for _, r := range ev.Routes {
		for _, st := range r.Stops {
			fmt.Fprintf(tw, "%s\t%s/%s\t%d\t%d\t%d\n", r.VehicleID, st.Parcel, st.Kind, st.TravelTime, st.DoneTime, st.Tardiness)
		}
		fmt.Fprintf(tw, "%s\tdepot\t%d\t%d\t%d\n", r.VehicleID, r.DepotTravel, r.DepotArrival, r.DepotTardiness)
	}
	_ = tw.Flush()
	for _, u := range ev.Unplanned {
		fmt.Fprintf(w, "unplanned: %s/%s\n", u.Parcel, u.Kind)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
