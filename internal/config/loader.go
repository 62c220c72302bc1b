package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AppName identifies the service in the config file search paths.
const AppName = "datadictd"

// EnvPrefix is prepended to every environment-variable key Viper binds,
// matching the DD_ prefix used throughout the external interface contract.
const EnvPrefix = "DD"

// configSearchPaths returns config file search paths in ascending priority.
func configSearchPaths() []string {
	paths := []string{filepath.Join("/etc", AppName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", AppName))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}
	return paths
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configSearchPaths() {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads datadictd configuration from defaults, an optional config
// file, and DD_-prefixed environment variables, in that order of
// increasing precedence.
func Load(cfgFile string) (*ServiceConfig, error) {
	v := newViper()
	setViperDefaults(v, DefaultServiceConfig())

	// Bind every DD_* variable named in the external interface contract
	// directly, since their key shapes (flat, no nesting) don't match the
	// nested mapstructure keys Viper would otherwise derive.
	bindEnv(v, map[string]string{
		"database.params":                 "DATABASE_PARAMS",
		"pubsub.project_id":               "GCP_PROJECT_ID",
		"pubsub.topic_name":               "TOPIC_NAME",
		"pubsub.subscription_name":        "SUBSCRIPTION_NAME",
		"pubsub.service_endpoint":         "PUBSUB_SERVICE",
		"pubsub.max_messages":             "TOPIC_MAX_MESSAGES",
		"storage.service_endpoint":        "STORAGE_SERVICE",
		"storage.bucket_name_private":     "BUCKET_NAME_PRIVATE",
		"storage.bucket_name_public":      "BUCKET_NAME_PUBLIC",
		"storage.bucket_name_sensitive":   "BUCKET_NAME_SENSITIVE",
		"storage.bucket_name_confidential": "BUCKET_NAME_CONFIDENTIAL",
		"manager_email_domain":            "MANAGER_EMAIL_DOMAIN",
	})

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg ServiceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper, keys map[string]string) {
	for key, suffix := range keys {
		_ = v.BindEnv(key, EnvPrefix+"_"+suffix)
	}
}

func setViperDefaults(v *viper.Viper, cfg *ServiceConfig) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age_days", cfg.Log.MaxAgeDays)
	v.SetDefault("log.redact_fields", cfg.Log.RedactFields)
	v.SetDefault("http.listen_addr", cfg.HTTP.ListenAddr)
	v.SetDefault("database.params", cfg.Database.Params)
	v.SetDefault("database.min_idle", cfg.Database.MinIdle)
	v.SetDefault("database.max_size", cfg.Database.MaxSize)
	v.SetDefault("pubsub.max_messages", cfg.Pubsub.MaxMessages)
	v.SetDefault("pubsub.poll_interval", cfg.Pubsub.PollInterval)
}

// validate enforces the external interface contract's required fields and
// the pool-bound invariant from the concurrency model (min_idle >= 1,
// max_size >= min_idle).
func (c *ServiceConfig) validate() error {
	var missing []string
	if c.Pubsub.ProjectID == "" {
		missing = append(missing, "DD_GCP_PROJECT_ID")
	}
	if c.Pubsub.TopicName == "" {
		missing = append(missing, "DD_TOPIC_NAME")
	}
	if c.Pubsub.SubscriptionName == "" {
		missing = append(missing, "DD_SUBSCRIPTION_NAME")
	}
	if c.Pubsub.ServiceEndpoint == "" {
		missing = append(missing, "PUBSUB_SERVICE")
	}
	if c.Storage.ServiceEndpoint == "" {
		missing = append(missing, "DD_STORAGE_SERVICE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Database.MinIdle < 1 {
		return fmt.Errorf("database.min_idle must be >= 1, got %d", c.Database.MinIdle)
	}
	if c.Database.MaxSize < c.Database.MinIdle {
		return fmt.Errorf("database.max_size (%d) must be >= database.min_idle (%d)", c.Database.MaxSize, c.Database.MinIdle)
	}
	return nil
}
