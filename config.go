package twincache

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is spec §6's enumerated configuration surface. providerInterface
// (the reflective provider-endpoint description) is the out-of-scope
// collaborator spec.md names and is intentionally not modeled here; an
// embedder wires its own RequestDescriptor producer against Cache and
// Pipeline directly.
type Config struct {
	CacheDirectory                     string
	UseExpiredDataIfLoaderNotAvailable bool
	MaxMBPersistenceCache              float64
}

const (
	defaultMaxMB = 100

	envPrefix = "TWINCACHE"
)

// LoadConfig populates a Config from environment variables (prefixed
// TWINCACHE_, e.g. TWINCACHE_CACHE_DIRECTORY) and from whatever config
// file v has been pointed at, applying the documented defaults and
// validating the one required field. LoadConfig sets no config file name
// or search path itself; a missing or unset config file is not an error. This is the library's
// one concrete on-ramp for the "CLI-free configuration API" spec.md
// otherwise treats as an out-of-scope collaborator.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cache_directory", "")
	v.SetDefault("use_expired_data_if_loader_not_available", false)
	v.SetDefault("max_mb_persistence_cache", defaultMaxMB)

	_ = v.ReadInConfig() // optional: missing config file is not an error

	cfg := Config{
		CacheDirectory:                     v.GetString("cache_directory"),
		UseExpiredDataIfLoaderNotAvailable: v.GetBool("use_expired_data_if_loader_not_available"),
		MaxMBPersistenceCache:              v.GetFloat64("max_mb_persistence_cache"),
	}
	if cfg.CacheDirectory == "" {
		return Config{}, newInvalidConfigError("cacheDirectory")
	}
	return cfg, nil
}
