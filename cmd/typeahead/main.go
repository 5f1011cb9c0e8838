// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the typeahead completion server and CLI.

typeahead answers autocomplete queries over a collection of scored strings.
The last term of a query is treated as a prefix and every earlier term must
match a dictionary term exactly. Prefix search returns completions that
start with the query; conjunctive search returns completions that contain
every query term anywhere.

# Usage

Serve completions over stdin/stdout using the configured collection:

	typeahead

Build the index once and save it, then serve from the saved file:

	typeahead -build -collection data/queries.txt -index data/queries.tacx
	typeahead -index data/queries.tacx

Run the interactive CLI:

	typeahead -c -k 20 -mode prefix

Measure how many more completions conjunctive search finds than prefix
search for a query log:

	typeahead -effectiveness -percentage 0.5 < queries.txt

# Collection

A collection is a text file of "<score> <text>" lines sorted by text.
On first use it is split into <basename>.dict, <basename>.forward and
<basename>.stats next to it.

# Configuration

Runtime configuration is read from a TOML file, by default
~/.config/typeahead/config.toml, created with defaults when missing:

	[index]
	basename = "data/collection.txt"
	sorted_codec = "ef"
	pointers = "ef"

	[query]
	default_k = 10
	max_k = 100
	mode = "conjunctive"

	[server]
	rate_limit = 1000.0
	burst = 100
	metrics_addr = ":9464"

Setting metrics_addr exposes Prometheus metrics on /metrics.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/typeahead/internal/cli"
	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/internal/metrics"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/engine"
	"github.com/bastiangx/typeahead/pkg/server"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Version = "0.3.0"
	AppName = "typeahead"
	gh      = "https://github.com/bastiangx/typeahead"
)

// sigHandler cancels the returned context on SIGINT/SIGTERM and exits,
// since a blocking stdin read cannot observe the cancellation.
func sigHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		cancel()
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
	return ctx
}

// main wires the packages for the selected mode.
func main() {
	ctx := sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	configPath := flag.String("config", "", "Path to a custom config.toml")
	collectionPath := flag.String("collection", "", "Collection basename (overrides [index] basename)")
	indexPath := flag.String("index", "", "Saved index file; built from the collection when missing")
	buildOnly := flag.Bool("build", false, "Build the index, save it to -index and exit")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	effectiveness := flag.Bool("effectiveness", false, "Compare prefix and conjunctive search over queries read from stdin")
	limit := flag.Int("k", 0, "Number of completions to return (default from config)")
	modeFlag := flag.String("mode", "", "Search mode: conjunctive or prefix (default from config)")
	wireFlag := flag.String("wire", "msgpack", "Server message encoding: msgpack or json")
	maxQueries := flag.Int("max-queries", 0, "Maximum queries read in effectiveness mode (0 for all)")
	percentage := flag.Float64("percentage", 1, "Fraction of the last query term kept in effectiveness mode")
	verbose := flag.Bool("verbose", false, "Print per-query scores in effectiveness mode")
	showStats := flag.Bool("stats", false, "Print index space usage after loading")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, usedPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(usedPath))

	if *collectionPath != "" {
		cfg.Index.Basename = *collectionPath
	}
	if *limit > 0 {
		cfg.CLI.DefaultLimit = *limit
		cfg.Query.DefaultK = min(*limit, cfg.Query.MaxK)
	}
	if *modeFlag != "" {
		if _, err := suggest.ParseMode(*modeFlag); err != nil {
			log.Fatalf("Invalid -mode: %v", err)
		}
		cfg.Query.Mode = *modeFlag
	}

	if *buildOnly && *indexPath == "" {
		log.Fatal("-build requires -index")
	}
	eng, err := openEngine(cfg, *indexPath, *buildOnly)
	if err != nil {
		log.Fatalf("Failed to open index: %v", err)
	}
	if *showStats || *debugMode {
		eng.LogStats(logger.NewWithConfig("stats", log.InfoLevel, false, false, log.TextFormatter))
	}

	switch {
	case *buildOnly:
		if err := eng.SaveFile(*indexPath); err != nil {
			log.Fatalf("Failed to save index: %v", err)
		}
		log.Infof("Index saved to %s", *indexPath)

	case *effectiveness:
		runEffectiveness(ctx, cfg, eng, *maxQueries, *percentage, *verbose)

	case *cliMode:
		log.SetReportTimestamp(false)
		out := logger.NewWithConfig("", log.GetLevel(), false, false, log.TextFormatter)
		handler := cli.NewInputHandler(eng.Searcher(), eng.Dictionary(), cfg.Mode(),
			cfg.CLI.DefaultLimit, cfg.CLI.ShowIDs, os.Stdin, out)
		if err := handler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}

	default:
		wire, err := server.ParseWire(*wireFlag)
		if err != nil {
			log.Fatalf("Invalid -wire: %v", err)
		}
		var opts []server.Option
		opts = append(opts, server.WithWire(wire))
		if addr := cfg.Server.MetricsAddr; addr != "" {
			m := metrics.New(prometheus.NewRegistry())
			opts = append(opts, server.WithMetrics(m))
			go func() {
				if err := server.ServeMetrics(ctx, addr, m.Handler()); err != nil {
					log.Errorf("Metrics endpoint stopped: %v", err)
				}
			}()
		}
		srv := server.NewServer(eng, cfg, opts...)
		showStartupInfo(cfg, eng)
		if err := srv.Start(ctx); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}

// openEngine loads a saved index when one exists and otherwise builds from
// the collection.
func openEngine(cfg *config.Config, indexPath string, rebuild bool) (*engine.Engine, error) {
	if indexPath != "" && !rebuild && utils.FileExists(indexPath) {
		log.Debugf("Loading index from %s", indexPath)
		return engine.LoadFile(indexPath)
	}

	basename, err := utils.NewPathResolver(AppName).Find(cfg.Index.Basename)
	if err != nil {
		return nil, err
	}
	log.Debugf("Building index from %s", basename)
	return engine.Build(basename, engine.Options{
		SortedCodec: cfg.SortedKind(),
		Pointers:    cfg.PointersKind(),
		Separator:   cfg.Query.Separator,
	})
}

func runEffectiveness(ctx context.Context, cfg *config.Config, eng *engine.Engine, maxQueries int, keep float64, verbose bool) {
	queries, err := cli.LoadQueries(os.Stdin, maxQueries, keep, eng.Separator())
	if err != nil {
		log.Fatalf("Reading queries: %v", err)
	}
	out := logger.NewWithConfig("effectiveness", log.InfoLevel, false, false, log.TextFormatter)
	var perQuery *log.Logger
	if verbose {
		perQuery = out
	}
	report, err := cli.Effectiveness(ctx, eng.Searcher(), queries, cfg.Query.DefaultK, cfg.Query.Workers, perQuery)
	if err != nil {
		log.Fatalf("Effectiveness: %v", err)
	}
	report.Log(out)
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ typeahead ] conjunctive top-k completions over succinct indexes")
	l.Print("", "version", Version)
	l.Print("", "codecs", fmt.Sprintf("%s, %s", codec.KindEliasFano, codec.KindCompact))
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config, eng *engine.Engine) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	st := eng.Stats()
	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, " typeahead ")
	fmt.Fprintln(os.Stderr, "===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("completions: %s, terms: %s",
		utils.FormatWithCommas(int64(st.NumCompletions)), utils.FormatWithCommas(int64(st.NumTerms)))
	log.Infof("mode: %s, k: %d (max %d)", cfg.Mode(), cfg.Query.DefaultK, cfg.Query.MaxK)
	if cfg.Server.MetricsAddr != "" {
		log.Infof("metrics: http://%s/metrics", cfg.Server.MetricsAddr)
	}
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")
}
