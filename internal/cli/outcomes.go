package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	outcomesLimit int
	outcomesKinds []string
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "List recently journaled call outcomes",
	Run:   runOutcomes,
}

func init() {
	outcomesCmd.Flags().IntVar(&outcomesLimit, "limit", 20, "maximum number of outcomes")
	outcomesCmd.Flags().StringSliceVar(&outcomesKinds, "kind", nil, "only failures of these kinds (e.g. NETWORK,TIMEOUT)")
	rootCmd.AddCommand(outcomesCmd)
}

func runOutcomes(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	ctx := context.Background()

	if cfg.Database.URL == "" {
		slog.Warn("No database configured; the in-memory journal is empty in a new process")
	}

	app := newApp(ctx, cfg)
	defer app.Close()

	kinds := make([]string, 0, len(outcomesKinds))
	for _, k := range outcomesKinds {
		kinds = append(kinds, strings.ToUpper(k))
	}

	recs, err := app.Invoker.Recent(ctx, outcomesLimit, kinds...)
	if err != nil {
		slog.Error("Failed to list outcomes", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STARTED\tNAME\tSTATUS\tDISPOSITION\tKIND\tATTEMPTS\tDURATION")
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%dms\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Name, r.Status, r.Disposition, r.Kind, r.Attempts, r.DurationMs)
	}
	_ = w.Flush()
}
