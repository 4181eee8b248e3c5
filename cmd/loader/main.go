package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/anlukk/gbifmap/internal/config"
	"github.com/anlukk/gbifmap/internal/gbif"
	"github.com/anlukk/gbifmap/internal/logger"
	"github.com/anlukk/gbifmap/internal/processor"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"       env:"CONFIG_FILE"  description:"Path to configuration file" default:"config.yaml"`
	APIBase     string   `short:"u" long:"api-base"     env:"GBIF_API"     description:"GBIF API base URL"`
	Limit       []string `short:"l" long:"limit"        env:"LIMIT_NAMES"  description:"Limit processing to specific dataset names"`
	Concurrency int      `short:"p" long:"concurrency"  env:"CONCURRENCY"  description:"Tile download concurrency" default:"50"`
	ZoomLimit   int      `short:"z" long:"zoom-limit"   env:"ZOOM_LIMIT"   description:"Density tiles zoom limit" default:"6"`
	TilesOnly   bool     `short:"t" long:"tiles-only"   description:"Download density tiles only"`
	GeoJSONOnly bool     `short:"g" long:"geojson-only" description:"Prepare occurrence GeoJSON only"`
	Force       bool     `short:"f" long:"force"        description:"Force overwrite of existing files"`
	FastCheck   bool     `short:"F" long:"fast-check"   description:"Skip processing if cache exist"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	processTiles := true
	processGeo := true
	if opts.TilesOnly && !opts.GeoJSONOnly {
		processGeo = false
	} else if opts.GeoJSONOnly && !opts.TilesOnly {
		processTiles = false
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}
	api := gbif.NewClient(opts.APIBase, client)

	if opts.Concurrency <= 0 {
		opts.Concurrency = 50
	}

	if cfg.ZoomLimit <= 0 {
		if opts.ZoomLimit <= 0 {
			cfg.ZoomLimit = 6
		} else {
			cfg.ZoomLimit = opts.ZoomLimit
		}
	}

	// Filter datasets if limit is set
	datasetsToProcess := cfg.Datasets
	if len(opts.Limit) > 0 {
		datasetsToProcess = make([]config.Dataset, 0)
		availableDatasets := make(map[string]config.Dataset)
		for _, d := range cfg.Datasets {
			availableDatasets[d.Name] = d
		}

		seen := make(map[string]bool)

		for _, limitName := range opts.Limit {
			if seen[limitName] {
				continue
			}
			seen[limitName] = true

			if d, ok := availableDatasets[limitName]; ok {
				datasetsToProcess = append(datasetsToProcess, d)
			} else {
				log.Error().
					Str("name", limitName).
					Msg("Dataset specified in --limit not found in configuration")
			}
		}
	}

	log.Info().
		Int("datasets_total", len(cfg.Datasets)).
		Int("datasets_queued", len(datasetsToProcess)).
		Bool("fast_check", opts.FastCheck).
		Msg("Starting loader")

	ctx := context.Background()

	for _, dataset := range datasetsToProcess {
		if processGeo {
			if err := processor.ProcessOccurrences(ctx, api, dataset, opts.Force); err != nil {
				log.Error().Err(err).Str("dataset", dataset.Name).Msg("Failed to process occurrences")
				continue
			}
		}

		if !processTiles || !dataset.Density {
			continue
		}

		processor.ProcessDensityTiles(
			client,
			api,
			dataset,
			opts.Concurrency,
			cfg.ZoomLimit,
			opts.Force,
			opts.FastCheck)
	}

	log.Info().Msg("Loader finished successfully")
}
