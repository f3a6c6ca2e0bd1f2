package node

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the node's runtime settings, built from the CLI surface
// (--port, --seed-server, --verbose/--quiet) and defaulted otherwise.
type Config struct {
	Port         int    `json:"port"`
	SeedServer   string `json:"seed_server"`
	DataDir      string `json:"data_dir"`
	LogLevel     string `json:"log_level"`
	MinerAddress string `json:"miner_address"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".somechain"
	}
	return filepath.Join(home, ".somechain")
}

func DefaultConfig() Config {
	return Config{
		Port:       19121,
		SeedServer: "",
		DataDir:    DefaultDataDir(),
		LogLevel:   "info",
	}
}

// LogLevelFromVerbosity maps the CLI's --verbose/--quiet flags onto a
// log/slog level name, --verbose taking precedence when both are set.
func LogLevelFromVerbosity(verbose, quiet bool) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "error"
	default:
		return "info"
	}
}

func ValidateConfig(cfg Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if cfg.SeedServer != "" {
		if err := validateHostPort(cfg.SeedServer); err != nil {
			return fmt.Errorf("invalid seed_server: %w", err)
		}
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}

// validateHostPort sanity-checks a host:port address; ValidateConfig uses
// it for the --seed-server value.
func validateHostPort(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}

// NormalizePeerList deduplicates and trims a raw list of peer addresses as
// returned by the seed registry, preserving first-seen order.
func NormalizePeerList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
