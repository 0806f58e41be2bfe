// Package kafkaclient builds the *kgo.Client instances this repo needs
// (a manually-assigned source consumer, an offset-syncs producer, and the
// store's tailing consumer) from one shared Config, the way
// modules/blockbuilder.starting builds its reader client from
// ingest.Config.
package kafkaclient

import (
	"flag"
	"fmt"
)

// Config is the connection block every kgo.Client this repo constructs is
// built from. It is intentionally small: TLS/SASL material beyond a
// plaintext SASL passthrough is expected to come from the host process'
// broader secret store, out of scope here exactly as config-file loading
// is out of scope per spec.md §1.
type Config struct {
	Brokers  []string `yaml:"brokers"`
	ClientID string   `yaml:"client_id"`

	SASL SASLConfig `yaml:"sasl"`
}

// SASLConfig configures SASL/PLAIN authentication. Username is left empty
// to disable SASL.
type SASLConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RegisterFlagsAndApplyDefaults registers prefix-scoped flags for cfg, in
// the same per-sub-config convention cmd/tempo/app/config.go uses for
// every module's Config.
func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.Func(prefix+".brokers", "Comma-separated list of Kafka bootstrap brokers.", func(v string) error {
		c.Brokers = splitNonEmpty(v, ',')
		return nil
	})
	f.StringVar(&c.ClientID, prefix+".client-id", "tempo-replicator", "Client ID reported to the Kafka brokers.")
	f.StringVar(&c.SASL.Username, prefix+".sasl-username", "", "SASL/PLAIN username; empty disables SASL.")
	f.StringVar(&c.SASL.Password, prefix+".sasl-password", "", "SASL/PLAIN password.")
}

// Validate reports a config that cannot possibly build a client.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafkaclient: at least one broker is required")
	}
	return nil
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
