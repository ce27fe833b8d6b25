package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/lsprobe/internal/core/config"
	"github.com/vietddude/lsprobe/internal/infra/node"
	rediscache "github.com/vietddude/lsprobe/internal/infra/redis"
	"github.com/vietddude/lsprobe/internal/probe"
	"github.com/vietddude/lsprobe/internal/probe/metrics"
	"github.com/vietddude/lsprobe/internal/render"
)

var (
	networkName    string
	fleetConfig    string
	useExact       bool
	connectTimeout time.Duration
	probeTimeout   time.Duration
	requestTimeout time.Duration
	metricsFile    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe every node in the fleet and show a status table",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&networkName, "network", "n", "", "network profile name (mainnet, testnet, or a custom profile)")
	_ = statusCmd.MarkFlagRequired("network")
	statusCmd.Flags().StringVarP(&fleetConfig, "config", "c", "", "fleet config path or HTTPS URL (JSON), overrides the profile")
	statusCmd.Flags().BoolVar(&useExact, "exact", false, "use precise archive depth check (slower)")
	statusCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", time.Second, "per-node connect timeout")
	statusCmd.Flags().DurationVar(&probeTimeout, "probe-timeout", 90*time.Second, "per-node probe deadline, 0 disables")
	statusCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 15*time.Second, "per-request timeout after connect")
	statusCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	profiles, err := config.LoadProfiles(profilesPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load profiles", "error", err)
		os.Exit(1)
	}

	profile, ok := profiles[networkName]
	if !ok {
		stylelog.InitDefault()
		slog.Error("Unknown network profile", "network", networkName)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || profile.LogLevel == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	log := slog.With("run_id", uuid.NewString())
	ctx := context.Background()

	var cache config.DocumentCache
	if url := os.Getenv("REDIS_URL"); url != "" {
		rc, err := rediscache.NewCache(url)
		if err != nil {
			log.Warn("Config cache unavailable, fetching directly", "error", err)
		} else {
			cache = rc
			defer func() { _ = rc.Close() }()
		}
	}

	resolver := config.NewResolver(cache, log)
	nodes, err := resolver.Fleet(ctx, profile, fleetConfig)
	if err != nil {
		log.Error("Failed to resolve fleet", "network", networkName, "error", err)
		os.Exit(1)
	}

	if len(nodes) == 0 {
		fmt.Println("No nodes configured.")
		os.Exit(1)
	}

	color.New(color.FgYellow, color.Bold).Println("Probing fleet, this may take some time...")
	log.Debug("Fleet resolved", "network", networkName, "nodes", len(nodes))

	clients := make([]node.Client, len(nodes))
	for i, addr := range nodes {
		clients[i] = node.NewHTTPClient(addr.Host, addr.Port, requestTimeout)
	}

	prober := probe.NewProber(connectTimeout, useExact, log)
	orch := probe.NewOrchestrator(prober, probeTimeout, log)

	start := time.Now()
	statuses := orch.Run(ctx, clients)
	elapsed := time.Since(start)

	probe.Annotate(statuses)

	render.StatusTable(os.Stdout, statuses)
	if legend := probe.BuildLegend(statuses); len(legend) > 0 {
		fmt.Println()
		render.LegendTable(os.Stdout, legend)
	}

	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			log.Warn("Failed to write metrics file", "path", metricsFile, "error", err)
		}
	}

	color.New(color.FgGreen, color.Bold).Printf("Probing completed in %s\n", formatElapsed(elapsed))
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	total := int(d.Seconds())
	h := total / 3600
	total %= 3600
	m := total / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
