package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/productlens/backend/config"
	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/cache"
	"github.com/productlens/backend/internal/infrastructure/logging"
	"github.com/productlens/backend/internal/infrastructure/search"
	"github.com/productlens/backend/internal/infrastructure/trust"
	"github.com/productlens/backend/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	message string
	stdin   bool
	pretty  bool
	timeout time.Duration
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "discover [recommendation text]",
		Short: "Resolve the products named in a recommendation",
		Long: "Extracts product mentions from recommendation text, searches the configured " +
			"provider for each one and prints the discovery response as JSON.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if opts.stdin {
				data, err := io.ReadAll(in)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("recommendation text is required (pass it as arguments or use --stdin)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			resp, err := runDiscover(ctx, &domain.DiscoveryRequest{
				Message:        opts.message,
				Recommendation: text,
			})
			if err != nil {
				return err
			}
			return writeJSON(out, resp, opts.pretty)
		},
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "User message the recommendation answers")
	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Read the recommendation text from stdin")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall discovery timeout")

	return cmd
}

func runDiscover(ctx context.Context, request *domain.DiscoveryRequest) (*domain.DiscoveryResponse, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Logs go to stderr so stdout stays valid JSON
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	table, err := trust.NewWatcher(cfg.Trust.File, logger)
	if err != nil {
		return nil, fmt.Errorf("load trust table: %w", err)
	}

	store := cache.NewMemoryStore(time.Minute)
	defer store.Close()

	client := search.NewClient(search.Config{
		APIKey:            cfg.Search.APIKey,
		EngineID:          cfg.Search.EngineID,
		BaseURL:           cfg.Search.BaseURL,
		SafeSearch:        cfg.Search.SafeSearch,
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
		Burst:             cfg.Search.Burst,
		MaxAttempts:       cfg.Search.MaxAttempts,
	}, logger)

	svc, err := usecase.NewDiscoveryService(
		cache.NewResponseCache(store, logger),
		client,
		table,
		logger,
		usecase.DiscoveryServiceConfig{
			Concurrency:          cfg.Discovery.Concurrency,
			MaxCallsPerRequest:   cfg.Discovery.MaxCallsPerRequest,
			ProviderDownAfter:    cfg.Discovery.ProviderDownAfter,
			InitialDisplay:       cfg.Discovery.InitialDisplay,
			CacheTTL:             cfg.Cache.TTL,
			ExcerptTurns:         cfg.Cache.ExcerptTurns,
			Audience:             cfg.Discovery.Audience,
			Brands:               cfg.Discovery.Brands,
			FallbackSearchURL:    cfg.Discovery.FallbackSearchURL,
			CallTimeout:          cfg.Search.CallTimeout,
			ResultCount:          cfg.Search.ResultCount,
			MaxTiersPerCandidate: cfg.Discovery.MaxTiersPerCandidate,
		},
	)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Discover(ctx, request)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovery finished", zap.Int("products", resp.TotalFound))
	return resp, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
