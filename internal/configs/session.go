package configs

import (
	"errors"

	"github.com/born-ml/xform/internal/dispatch"
)

// Schema declares the fields of a session configuration file.
const Schema = `
seed?: int & >=0
fallback_warnings?: bool
log_level?: "debug" | "info" | "warn" | "error"
randomness?: "error" | "same" | "different"
`

// Load builds a session configuration from filePaths on top of
// dispatch.DefaultConfig. When several files set a field, the first one
// wins.
func Load(filePaths ...string) (dispatch.Config, error) {
	cfg := dispatch.DefaultConfig()
	if len(filePaths) == 0 {
		return cfg, nil
	}
	loader := NewLoader(filePaths, Schema)
	for path, target := range map[string]any{
		"seed":              &cfg.Seed,
		"fallback_warnings": &cfg.FallbackWarnings,
		"log_level":         &cfg.LogLevel,
		"randomness":        &cfg.Randomness,
	} {
		if err := loader.AssignFirst(path, target); err != nil && !errors.Is(err, ErrValueNotFound) {
			return dispatch.Config{}, err
		}
	}
	return cfg, nil
}
