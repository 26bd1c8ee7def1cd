package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/callcore/internal/infra/rpc/provider"
	"github.com/vietddude/callcore/internal/service"
)

var (
	failuresResolve string
	failuresReplay  bool
)

var failuresCmd = &cobra.Command{
	Use:   "failures [batch]",
	Short: "List, resolve or replay queued failed batch items",
	Args:  cobra.ExactArgs(1),
	Run:   runFailures,
}

func init() {
	failuresCmd.Flags().StringVar(&failuresResolve, "resolve", "", "remove the item with this ID")
	failuresCmd.Flags().BoolVar(&failuresReplay, "replay", false, "re-run every queued item of a batch created by the batch command")
	rootCmd.AddCommand(failuresCmd)
}

func runFailures(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	ctx := context.Background()
	name := args[0]

	app := newApp(ctx, cfg)
	defer app.Close()

	switch {
	case failuresResolve != "":
		if err := app.Batcher.Resolve(ctx, name, failuresResolve); err != nil {
			slog.Error("Failed to resolve item", "id", failuresResolve, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Resolved %s\n", failuresResolve)
		return

	case failuresReplay:
		p := app.HTTP
		if p == nil {
			p = provider.NewHTTPProvider(cfg.HTTP.Name, "", cfg.HTTP.Timeout)
			defer p.Close()
		}
		res, err := service.Replay(ctx, app.Batcher, name, getBody(p))
		if err != nil {
			slog.Error("Failed to replay batch", "batch", name, "error", err)
			os.Exit(1)
		}
		printBatch(res, res.Processed())
		return
	}

	items, err := app.Batcher.Pending(ctx, name)
	if err != nil {
		slog.Error("Failed to list failed items", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTATUS\tRETRYABLE\tPAYLOAD\tERROR")
	for _, it := range items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\t%s\n",
			it.ID, it.Kind, it.HTTPStatus, it.Retryable, string(it.Payload), it.Error)
	}
	_ = w.Flush()
}
