package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/callcore/internal/infra/rpc/call"
	"github.com/vietddude/callcore/internal/infra/rpc/provider"
	"github.com/vietddude/callcore/internal/service"
)

var (
	probeMethod string
	probeData   string
)

var probeCmd = &cobra.Command{
	Use:   "probe [path or url]",
	Short: "Run one managed HTTP call and print its classified outcome",
	Args:  cobra.ExactArgs(1),
	Run:   runProbe,
}

func init() {
	probeCmd.Flags().StringVarP(&probeMethod, "method", "X", http.MethodGet, "HTTP method")
	probeCmd.Flags().StringVarP(&probeData, "data", "d", "", "JSON request body")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	ctx := context.Background()

	app := newApp(ctx, cfg)
	defer app.Close()

	p := app.HTTP
	if p == nil {
		p = provider.NewHTTPProvider(cfg.HTTP.Name, "", cfg.HTTP.Timeout)
		defer p.Close()
	}

	var body any
	if probeData != "" {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(probeData), &raw); err != nil {
			slog.Error("Invalid --data", "error", err)
			os.Exit(1)
		}
		body = raw
	}

	method := strings.ToUpper(probeMethod)
	m := service.NewCall(app.Invoker, "cli.probe", func(ctx context.Context, target string) ([]byte, error) {
		return p.Do(ctx, method, target, body)
	}, call.WithFailureNotice(func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	}, ""))
	defer m.Close()

	out, ok := m.Execute(ctx, args[0])
	if !ok {
		st := m.State()
		if st.Err != nil {
			slog.Error("Probe failed",
				"kind", st.Err.Kind(),
				"status", st.Err.HTTPStatus(),
				"retryable", st.Err.Retryable(),
				"error", st.Err.InternalMessage(),
			)
			for field, msgs := range st.Err.FieldErrors() {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, strings.Join(msgs, "; "))
			}
		}
		os.Exit(1)
	}
	fmt.Println(string(out))
}
