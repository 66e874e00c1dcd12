// Package config loads process configuration from a .env file, command-line
// flags and environment variables, in that order of precedence from lowest
// to highest.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/cryguy/renderworker/internal/artifact"
	"github.com/cryguy/renderworker/internal/core"
)

type Config struct {
	Port     string
	LogLevel slog.Level
	Worker   core.WorkerConfig
	Artifact artifact.S3Config
}

// Load reads .env when present, parses args with fs and applies environment
// overrides. fs may already carry flags of its own.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()
	return load(fs, args, os.Getenv)
}

func load(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	def := core.DefaultConfig()
	port := fs.String("port", ":8080", "server port")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fetchTimeout := fs.Int("fetch-timeout-ms", def.FetchTimeoutMs, "shared timeout for one resource batch")
	evalTimeout := fs.Int("eval-timeout-ms", def.EvalTimeoutMs, "sandbox evaluation timeout")
	cacheSize := fs.Int("resource-cache-size", def.ResourceCacheSize, "LRU resource cache capacity, 0 disables")
	cachePath := fs.String("resource-cache-path", "", "SQLite resource cache path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{Port: normalizePort(*port), Worker: def}
	cfg.Worker.FetchTimeoutMs = *fetchTimeout
	cfg.Worker.EvalTimeoutMs = *evalTimeout
	cfg.Worker.ResourceCacheSize = *cacheSize
	cfg.Worker.ResourceCachePath = *cachePath

	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		cfg.Port = normalizePort(v)
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		*level = v
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(*level)); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"FETCH_TIMEOUT_MS", &cfg.Worker.FetchTimeoutMs},
		{"EVAL_TIMEOUT_MS", &cfg.Worker.EvalTimeoutMs},
		{"MEMORY_LIMIT_MB", &cfg.Worker.MemoryLimitMB},
		{"POOL_SIZE", &cfg.Worker.PoolSize},
		{"MAX_RESPONSE_BYTES", &cfg.Worker.MaxResponseBytes},
		{"RESOURCE_CACHE_SIZE", &cfg.Worker.ResourceCacheSize},
	}
	for _, e := range ints {
		if err := envInt(getenv, e.name, e.dst); err != nil {
			return nil, err
		}
	}
	bools := []struct {
		name string
		dst  *bool
	}{
		{"THROW_ON_ERROR", &cfg.Worker.ThrowOnError},
		{"SSRF_PROTECTION", &cfg.Worker.SSRFProtection},
	}
	for _, e := range bools {
		if err := envBool(getenv, e.name, e.dst); err != nil {
			return nil, err
		}
	}
	if v := strings.TrimSpace(getenv("RESOURCE_CACHE_PATH")); v != "" {
		cfg.Worker.ResourceCachePath = v
	}

	cfg.Artifact = loadArtifactConfig(getenv)
	return cfg, nil
}

func loadArtifactConfig(getenv func(string) string) artifact.S3Config {
	return artifact.S3Config{
		Endpoint:  strings.TrimSpace(getenv("ARTIFACT_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(getenv("ARTIFACT_S3_BUCKET")), "renders"),
		UseSSL:    parseBoolDefault(getenv("ARTIFACT_S3_USE_SSL"), true),
	}
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func envInt(getenv func(string) string, name string, dst *int) error {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}

func envBool(getenv func(string) string, name string, dst *bool) error {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}

func parseBoolDefault(raw string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
