package config

import "path/filepath"

// applyLocalDefaults fills what docker-compose provides for local
// development: MinIO credentials when a MinIO endpoint is set, and on-disk
// output and traces under tmp/ otherwise.
func applyLocalDefaults(cfg *Config) {
	if cfg.Output.Enabled {
		cfg.Output.AccessKey = firstNonEmpty(cfg.Output.AccessKey, "pwabuilder")
		cfg.Output.SecretKey = firstNonEmpty(cfg.Output.SecretKey, "pwabuilder123")
	}
	if cfg.DatabaseURL == "" && !cfg.Output.Enabled {
		cfg.OutputDir = firstNonEmpty(cfg.OutputDir, filepath.Join("tmp", "output"))
	}
	cfg.TraceDir = firstNonEmpty(cfg.TraceDir, filepath.Join("tmp", "run_logs"))
}
