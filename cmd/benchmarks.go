package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/genetune/internal/bench"
)

var benchmarksCmd = &cobra.Command{
	Use:   "benchmarks",
	Short: "List available benchmark cost functions",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDOMAIN\tTYPE")
		for _, name := range bench.Names() {
			bm, _ := bench.Lookup(name)
			kind := "real"
			if bm.Integer {
				kind = "integer"
			}
			fmt.Fprintf(w, "%s\t[%g, %g]\t%s\n", bm.Name, bm.Min, bm.Max, kind)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(benchmarksCmd)
}
