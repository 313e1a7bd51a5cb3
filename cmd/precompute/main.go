package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/brackethq/circuit-metrics/internal/app"
	"github.com/brackethq/circuit-metrics/internal/config"
	"github.com/brackethq/circuit-metrics/internal/domain/tournament"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
	"github.com/brackethq/circuit-metrics/internal/usecase"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			*l = append(*l, trimmed)
		}
	}
	return nil
}

func main() {
	var states stringList
	var nameContains stringList
	var slugContains stringList
	flag.Var(&states, "state", "region to precompute (repeatable, e.g. -state GA -state NC)")
	flag.Var(&nameContains, "name-contains", "restrict to tournaments whose name contains a term (repeatable)")
	flag.Var(&slugContains, "slug-contains", "restrict to tournaments whose slug contains a term (repeatable)")
	game := flag.Int("game", 0, "videogame id (default from DEFAULT_VIDEOGAME_ID)")
	months := flag.Int("months", 0, "lookback window in months")
	character := flag.String("character", "", "target character for usage metrics")
	assumeMain := flag.Bool("assume-main", false, "treat players without character data as mains of the target character")
	autoSeries := flag.Bool("auto-series", false, "restrict collection to detected recurring series")
	seriesTopN := flag.Int("series-top-n", 0, "series to keep when -auto-series is set")
	offline := flag.Bool("offline", false, "serve everything from the local store, no remote calls")
	flag.Parse()

	if len(states) == 0 {
		fmt.Fprintln(os.Stderr, "at least one -state is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if *offline {
		cfg.RemoteEnabled = false
	}

	logger := logging.NewJSON(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	videogameID := *game
	if videogameID <= 0 {
		videogameID = cfg.DefaultVideogameID
	}

	for _, state := range states {
		summary, err := application.Pipeline.PrecomputeRegion(ctx, usecase.PipelineParams{
			Filter: tournament.Filter{
				AddrState:    state,
				VideogameID:  videogameID,
				MonthsBack:   *months,
				NameContains: nameContains,
				SlugContains: slugContains,
			},
			TargetCharacter:  *character,
			AssumeTargetMain: *assumeMain,
			AutoSeries:       *autoSeries,
			SeriesTopN:       *seriesTopN,
		})
		if err != nil {
			logger.Error("precompute failed", "state", state, "error", err)
			os.Exit(1)
		}

		logger.Info("precompute finished",
			"state", summary.AddrState,
			"tournaments", summary.Tournaments,
			"players", summary.Players,
			"series", summary.Series,
			"duration_ms", summary.Duration.Milliseconds(),
		)
	}
}
