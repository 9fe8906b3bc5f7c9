// Package config parses the daemon's command-line flags and environment
// variables (§4.8, §4.9, §4.10). It uses only flag/os/strconv, matching the
// teacher's own config layer: this daemon's settings (interface filters, a
// database path, a gRPC port) are small enough that a third-party flags
// library would be overkill relative to what the rest of the pack reaches
// for it on.
package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the daemon's bootstrap configuration.
type Config struct {
	// AllowPatterns/BlockPatterns are shell-glob name filters restricting
	// which netdevs the orchestrator manages (§4.8).
	AllowPatterns []string
	BlockPatterns []string

	DBPath   string
	GRPCAddr string
	Debug    bool
}

// Load parses command-line flags and environment variables into a Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	allowStr := getEnv("WIRED_ALLOW", "")
	blockStr := getEnv("WIRED_BLOCK", "")
	cfg.DBPath = getEnv("WIRED_DB", defaultDBPath())
	cfg.GRPCAddr = getEnv("WIRED_GRPC_ADDR", ":9100")

	flag.StringVar(&allowStr, "allow", allowStr, "Comma-separated interface allow-patterns (shell glob)")
	flag.StringVar(&blockStr, "block", blockStr, "Comma-separated interface block-patterns (shell glob)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite config-store database")
	flag.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC control-surface listen address")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	flag.Parse()

	cfg.AllowPatterns = splitPatterns(allowStr)
	cfg.BlockPatterns = splitPatterns(blockStr)

	return cfg
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// defaultDBPath returns ~/.wired/wired.db, creating the directory if needed.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("warning: could not get user home directory, using current dir: %v", err)
		return "wired.db"
	}
	dir := filepath.Join(home, ".wired")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("warning: could not create .wired directory, using current dir: %v", err)
		return "wired.db"
	}
	return filepath.Join(dir, "wired.db")
}
