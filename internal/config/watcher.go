package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher watches the config file for changes and re-unmarshals it,
// notifying registered callbacks with the new ServiceConfig. The daemon
// in cmd/datadictd does not create one; a change to the config file has
// no effect on a running daemon.
type Watcher struct {
	v       *viper.Viper
	mu      sync.RWMutex
	current *ServiceConfig
	callbacks []func(*ServiceConfig)
}

// NewWatcher builds a Watcher bound to the same search paths as Load,
// with Viper's automatic DD_-prefixed environment lookup. The flat DD_*
// variable names that Load binds explicitly (DD_DATABASE_PARAMS,
// DD_BUCKET_NAME_*, and the rest) are not bound here, and a reload does
// not run Load's validation.
func NewWatcher(cfgFile string, current *ServiceConfig) (*Watcher, error) {
	v := newViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			_ = notFound
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return &Watcher{v: v, current: current}, nil
}

// OnChange registers a callback invoked with the freshly reloaded config
// whenever the underlying file changes. Callbacks run synchronously on
// viper's watcher goroutine; they must not block.
func (w *Watcher) OnChange(cb func(*ServiceConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching the config file via fsnotify. Safe to call once.
func (w *Watcher) Start() {
	w.v.OnConfigChange(func(fsnotify.Event) {
		w.reload()
	})
	w.v.WatchConfig()
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *ServiceConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) reload() {
	setViperDefaults(w.v, DefaultServiceConfig())

	var cfg ServiceConfig
	if err := w.v.Unmarshal(&cfg); err != nil {
		return
	}

	w.mu.Lock()
	w.current = &cfg
	callbacks := make([]func(*ServiceConfig), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(&cfg)
	}
}
