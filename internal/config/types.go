// Package config loads datadictd's runtime configuration from built-in
// defaults, a config file, and environment variables, in that order of
// increasing precedence, using Viper.
package config

import "time"

// LogConfig controls structured logging output and rotation.
type LogConfig struct {
	Level        string   `mapstructure:"level"`         // debug, info, warn, error
	Format       string   `mapstructure:"format"`        // text, json, pretty
	Output       string   `mapstructure:"output"`        // stdout, stderr, or file path
	FilePath     string   `mapstructure:"file_path"`     // additional file output path
	MaxSizeMB    int      `mapstructure:"max_size_mb"`   // rotate after this many MB
	MaxBackups   int      `mapstructure:"max_backups"`   // old log files to retain
	MaxAgeDays   int      `mapstructure:"max_age_days"`  // days to retain old log files
	EnableCaller bool     `mapstructure:"enable_caller"` // include source file/line
	NoColor      bool     `mapstructure:"no_color"`      // passed to the pretty console handler, which does not apply it
	RedactFields []string `mapstructure:"redact_fields"` // field names to scrub from log output
}

// HTTPConfig controls the C5 HTTP API listener.
type HTTPConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// DatabaseConfig controls the C1 catalog store connection and pool bounds.
type DatabaseConfig struct {
	Params  string `mapstructure:"params"`   // DD_DATABASE_PARAMS, a libpq connection string
	MinIdle int32  `mapstructure:"min_idle"` // default 5
	MaxSize int32  `mapstructure:"max_size"` // default 30
}

// PubsubConfig controls the C3 ingest loop's notification subscription.
type PubsubConfig struct {
	ProjectID         string        `mapstructure:"project_id"`         // DD_GCP_PROJECT_ID
	TopicName         string        `mapstructure:"topic_name"`         // DD_TOPIC_NAME
	SubscriptionName  string        `mapstructure:"subscription_name"`  // DD_SUBSCRIPTION_NAME
	ServiceEndpoint   string        `mapstructure:"service_endpoint"`   // PUBSUB_SERVICE
	MaxMessages       int           `mapstructure:"max_messages"`       // DD_TOPIC_MAX_MESSAGES
	PollInterval      time.Duration `mapstructure:"poll_interval"`      // default 1s
}

// StorageConfig controls the C4 blob coordinator's upload endpoint and the
// per-classification bucket names it writes descriptors to.
type StorageConfig struct {
	ServiceEndpoint       string `mapstructure:"service_endpoint"`        // DD_STORAGE_SERVICE
	BucketNamePrivate     string `mapstructure:"bucket_name_private"`     // DD_BUCKET_NAME_PRIVATE
	BucketNamePublic      string `mapstructure:"bucket_name_public"`      // DD_BUCKET_NAME_PUBLIC
	BucketNameSensitive   string `mapstructure:"bucket_name_sensitive"`   // DD_BUCKET_NAME_SENSITIVE
	BucketNameConfidential string `mapstructure:"bucket_name_confidential"` // DD_BUCKET_NAME_CONFIDENTIAL
	BearerToken           string `mapstructure:"bearer_token"`            // token sent to the storage service
}

// ServiceConfig is the complete configuration for the datadictd daemon.
type ServiceConfig struct {
	Log           LogConfig      `mapstructure:"log"`
	HTTP          HTTPConfig     `mapstructure:"http"`
	Database      DatabaseConfig `mapstructure:"database"`
	Pubsub        PubsubConfig   `mapstructure:"pubsub"`
	Storage       StorageConfig  `mapstructure:"storage"`
	ManagerDomain string         `mapstructure:"manager_email_domain"` // DD_MANAGER_EMAIL_DOMAIN
}

// DefaultServiceConfig returns sensible defaults for datadictd, matching
// the env-var defaults named in the external interface contract.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			Output:       "stdout",
			MaxSizeMB:    100,
			MaxBackups:   3,
			MaxAgeDays:   28,
			EnableCaller: false,
			RedactFields: []string{"password", "hash", "salt", "api_key", "authorization", "bearer"},
		},
		HTTP: HTTPConfig{
			ListenAddr: "127.0.0.1:8080",
		},
		Database: DatabaseConfig{
			Params:  "host=127.0.0.1 user=postgres port=5432",
			MinIdle: 5,
			MaxSize: 30,
		},
		Pubsub: PubsubConfig{
			MaxMessages:  100,
			PollInterval: time.Second,
		},
	}
}
