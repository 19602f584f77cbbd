package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"saree-studio/internal/config"
	"saree-studio/internal/design"
	"saree-studio/internal/gemini"
	"saree-studio/internal/httpclient"
	"saree-studio/internal/render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		out    string
		region string
		zari   string
		pause  time.Duration
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:          "presets",
		Short:        "Render the built-in motif catalog to image files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			regions, err := parseRegions(region)
			if err != nil {
				return err
			}
			z, err := design.ParseZari(zari)
			if err != nil {
				return err
			}

			_ = godotenv.Load()

			g := &generator{out: out, zari: z, dryRun: dryRun, stdout: cmd.OutOrStdout()}
			if dryRun {
				g.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
				_, err := g.run(cmd.Context(), regions)
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			g.logger = logger

			if !cmd.Flags().Changed("pause") {
				pause = cfg.MotifPause
			}

			httpClient := httpclient.New(httpclient.Options{
				PreferIPv4: cfg.PreferIPv4,
				Timeout:    cfg.HTTPTimeout,
			})
			renderer := render.New(render.Options{
				Service: gemini.New(gemini.Options{
					APIKey:     cfg.GeminiAPIKey,
					BaseURL:    cfg.GeminiBaseURL,
					APIVersion: cfg.GeminiAPIVersion,
					HTTPClient: httpClient,
					Logger:     logger,
				}),
				Tiers:  render.Tiers{Preview: cfg.PreviewModel, Motif: cfg.MotifModel},
				Logger: logger,
			})
			g.renderer = paced{discoverer: renderer, limiter: rate.NewLimiter(rate.Every(pause), 1)}

			sum, err := g.run(cmd.Context(), regions)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %d preset(s), %d failed\n", len(sum.Saved), len(sum.Failed))
			for _, f := range sum.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s\n", f)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "presets", "output directory")
	f.StringVarP(&region, "region", "r", "all", "region to render: border, body, pallu or all")
	f.StringVar(&zari, "zari", string(design.ZariGold), "zari type for the prompts")
	f.DurationVar(&pause, "pause", 2*time.Second, "pause between generation calls")
	f.BoolVar(&dryRun, "dry-run", false, "print the prompts without calling the image service")

	return cmd
}

// paced spaces out presets, each of which is a separate single-slot
// discovery call.
type paced struct {
	discoverer
	limiter *rate.Limiter
}

func (p paced) Discover(ctx context.Context, req render.MotifRequest) render.MotifResult {
	if err := p.limiter.Wait(ctx); err != nil {
		return render.MotifResult{Region: req.Brief.Region, Keyword: req.Brief.Keyword, Err: err}
	}
	return p.discoverer.Discover(ctx, req)
}

func parseRegions(value string) ([]design.Region, error) {
	if value == "" || value == "all" {
		return design.Regions(), nil
	}
	r, err := design.ParseRegion(value)
	if err != nil {
		return nil, err
	}
	return []design.Region{r}, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
