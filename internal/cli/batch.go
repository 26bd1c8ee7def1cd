package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vietddude/callcore/internal/infra/rpc/batch"
	"github.com/vietddude/callcore/internal/infra/rpc/provider"
	"github.com/vietddude/callcore/internal/service"
)

var batchName string

// cliFs is the filesystem batch files are read from.
var cliFs afero.Fs = afero.NewOsFs()

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "GET every path listed in file (one per line) as a bounded-concurrency batch",
	Args:  cobra.ExactArgs(1),
	Run:   runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchName, "name", "cli", "batch name used for metrics and the failed item queue")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	ctx := context.Background()

	paths, err := readLines(cliFs, args[0])
	if err != nil {
		slog.Error("Failed to read batch file", "error", err)
		os.Exit(1)
	}

	app := newApp(ctx, cfg)
	defer app.Close()

	p := app.HTTP
	if p == nil {
		p = provider.NewHTTPProvider(cfg.HTTP.Name, "", cfg.HTTP.Timeout)
		defer p.Close()
	}

	res := service.RunBatch(ctx, app.Batcher, batchName, paths, getBody(p))
	printBatch(res, len(paths))
	if res.HasErrors {
		os.Exit(2)
	}
}

func getBody(p *provider.HTTPProvider) func(context.Context, string) (int, error) {
	return func(ctx context.Context, path string) (int, error) {
		body, err := p.Get(ctx, path)
		return len(body), err
	}
}

func printBatch(res batch.Result[string, int], total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ITEM\tKIND\tSTATUS\tMESSAGE")
	for _, f := range res.Failed {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Item, f.Err.Kind(), f.Err.HTTPStatus(), f.Err.UserMessage())
	}
	_ = w.Flush()

	fmt.Printf("\nsucceeded=%d failed=%d skipped=%d\n",
		len(res.Succeeded), len(res.Failed), total-res.Processed())
}

func readLines(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}
