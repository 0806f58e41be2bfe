// Package log builds the process-wide structured logger, the same
// logfmt-to-stdout-with-level-filter shape cmd/tempo-federated-querier
// constructs inline, factored out of cmd/tempo-replicator's main.
package log

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New builds a logfmt logger writing to stdout, timestamped, filtered to
// levelName ("debug", "info", "warn", or "error"; an empty name means
// "info", and anything else is rejected).
func New(levelName string) (log.Logger, error) {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	allowed, err := levelOption(levelName)
	if err != nil {
		return nil, err
	}
	return level.NewFilter(logger, allowed), nil
}

func levelOption(levelName string) (level.Option, error) {
	switch levelName {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	default:
		return nil, fmt.Errorf("util/log: unknown log level %q", levelName)
	}
}
