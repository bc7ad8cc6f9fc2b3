package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"pwabuilder/internal/depgraph"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	OutputDir   string
	TraceDir    string
	Strict      bool
	ImportStyle string
	CORSOrigins []string
	Output      OutputConfig
}

// OutputConfig describes the S3-compatible bucket generated files go to.
type OutputConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CanUseS3 reports whether every field needed to reach the bucket is set.
func (c OutputConfig) CanUseS3() bool {
	return c.Enabled &&
		strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

// Load reads .env (if present), the -port flag from args and the environment.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		*port = envPort
	}
	if !strings.HasPrefix(*port, ":") && !strings.Contains(*port, ":") {
		*port = ":" + *port
	}

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	strict, err := parseBool("GENERATION_STRICT", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        *port,
		Env:         env,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		OutputDir:   strings.TrimSpace(os.Getenv("OUTPUT_DIR")),
		TraceDir:    strings.TrimSpace(os.Getenv("RUN_TRACE_DIR")),
		Strict:      strict,
		ImportStyle: firstNonEmpty(strings.TrimSpace(os.Getenv("IMPORT_STYLE")), "dart"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		Output:      loadOutputConfig(env),
	}
	if cfg.IsLocal() {
		applyLocalDefaults(cfg)
	}
	if _, err := cfg.ImportFormatter(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsLocal() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "local")
}

// ImportFormatter resolves IMPORT_STYLE: "dart" for relative imports or
// "package:<name>" for package imports rooted at lib/.
func (c *Config) ImportFormatter() (depgraph.ImportFormatter, error) {
	style := strings.TrimSpace(c.ImportStyle)
	switch {
	case style == "" || strings.EqualFold(style, "dart") || strings.EqualFold(style, "relative"):
		return depgraph.RelativeImport, nil
	case strings.HasPrefix(style, "package:"):
		name := strings.TrimSpace(strings.TrimPrefix(style, "package:"))
		if name == "" {
			return nil, fmt.Errorf("IMPORT_STYLE %q: package name is required", style)
		}
		return depgraph.PackageImport(name), nil
	default:
		return nil, fmt.Errorf("IMPORT_STYLE %q: want dart or package:<name>", style)
	}
}

func loadOutputConfig(env string) OutputConfig {
	endpoint := strings.TrimSpace(os.Getenv("OUTPUT_S3_ENDPOINT"))
	if strings.EqualFold(env, "local") {
		endpoint = firstNonEmpty(strings.TrimSpace(os.Getenv("OUTPUT_MINIO_ENDPOINT")), endpoint)
	}
	return OutputConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("OUTPUT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("OUTPUT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("OUTPUT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("OUTPUT_S3_BUCKET")), "pwabuilder-output"),
		UseSSL:    resolveUseSSL(env),
	}
}

func resolveUseSSL(env string) bool {
	if strings.EqualFold(env, "local") {
		return false
	}
	v, err := parseBool("OUTPUT_S3_USE_SSL", true)
	if err != nil {
		return true
	}
	return v
}

func parseBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
