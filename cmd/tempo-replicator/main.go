package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/grafana/tempo-replicator/cmd/tempo-replicator/app"
	"github.com/grafana/tempo-replicator/pkg/replicate/task"
	utillog "github.com/grafana/tempo-replicator/pkg/util/log"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}

	logger, err := utillog.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed building logger: %v\n", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(":3201", nil); err != nil {
			level.Warn(logger).Log("msg", "metrics server exited", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := app.Build(ctx, *cfg, logger, reg, task.NewInMemoryOffsetStorage())
	if err != nil {
		level.Error(logger).Log("msg", "failed building replication flow", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "tempo-replicator starting", "source", cfg.SourceClusterAlias, "target", cfg.TargetClusterAlias)
	if err := r.Run(ctx); err != nil {
		level.Error(logger).Log("msg", "runner exited with error", "err", err)
		os.Exit(1)
	}
}

func loadConfig() (*app.Config, error) {
	const configFileOption = "config.file"

	var configFile string

	args := os.Args[1:]
	cfg := &app.Config{}

	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configFile, configFileOption, "", "")

	// Scan for -config.file the same tolerant way
	// cmd/tempo-federated-querier does: flag.Parse stops at the first
	// unknown flag, so retry against each remaining suffix of args.
	for len(args) > 0 {
		_ = fs.Parse(args)
		args = args[1:]
	}

	cfg.RegisterFlagsAndApplyDefaults("", flag.CommandLine)

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read configFile %s", configFile)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse configFile %s", configFile)
		}
	}

	flagext.IgnoredFlag(flag.CommandLine, configFileOption, "Configuration file to load")
	flag.Parse()

	return cfg, nil
}
