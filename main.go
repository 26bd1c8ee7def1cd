package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vietddude/callcore/internal/infra/rpc/batch"
	"github.com/vietddude/callcore/internal/infra/rpc/call"
	"github.com/vietddude/callcore/internal/infra/rpc/classify"
	"github.com/vietddude/callcore/internal/infra/rpc/provider"
	"github.com/vietddude/callcore/internal/infra/rpc/retry"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	API_URL := os.Getenv("API_URL")
	if API_URL == "" {
		log.Fatalf("API_URL is not set")
	}

	ctx := context.Background()

	// 1. Create a paced provider
	api := provider.NewHTTPProvider("demo", API_URL, 10*time.Second, provider.WithRateLimit(5, 2))
	defer api.Close()

	// 2. Managed call with retry
	policy := retry.Policy{
		MaxRetries: 2,
		BaseDelay:  200 * time.Millisecond,
		UseBackoff: true,
		OnRetry: func(attempt int, err *classify.Error, delay time.Duration) {
			fmt.Printf("🔁 Retry %d after %s: %s\n", attempt+1, delay, err.Kind())
		},
	}
	m := call.New("demo.get", func(ctx context.Context, path string) ([]byte, error) {
		return api.Get(ctx, path)
	},
		call.WithRetry(policy),
		call.WithFailureNotice(func(msg string) { fmt.Printf("❌ %s\n", msg) }, ""),
		call.WithSettled(func(o call.Outcome) {
			fmt.Printf("Settled %s: %s/%s in %s (%d attempts)\n",
				o.InvocationID, o.Status, o.Disposition, o.Duration.Round(time.Millisecond), o.Attempts)
		}),
	)
	defer m.Close()

	fmt.Println("=== Single call ===")
	if body, ok := m.Execute(ctx, "/"); ok {
		fmt.Printf("Got %d bytes\n", len(body))
	}

	// 3. Batch over several paths
	fmt.Println("\n=== Batch ===")
	paths := []string{"/", "/does-not-exist", "/", "/health"}
	res := batch.Run(ctx, paths, retry.WrapFunc(func(ctx context.Context, path string) (int, error) {
		body, err := api.Get(ctx, path)
		return len(body), err
	}, policy), batch.Options{Concurrency: 2})

	fmt.Printf("Succeeded: %d, Failed: %d\n", len(res.Succeeded), len(res.Failed))
	for _, f := range res.Failed {
		fmt.Printf("  %s -> %s (%s)\n", f.Item, f.Err.Kind(), f.Err.UserMessage())
	}

	// 4. Provider health
	h := api.GetHealth()
	fmt.Printf("\nProvider %s: available=%t error_rate=%.2f latency=%s throttled=%d\n",
		api.GetName(), h.Available, h.ErrorRate, h.Latency, h.Throttled)
}
