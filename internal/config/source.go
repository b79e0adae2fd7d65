package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ModelSettings is the generative-model part of the configuration. It is
// never cached by callers: every generation asks the Source again.
type ModelSettings struct {
	APIKey string
	Model  string
}

// Source owns the active configuration snapshot. Environment variables are
// consulted at read time; the optional config file is re-read into a fresh
// snapshot whenever it changes on disk.
type Source struct {
	path string
	log  *zap.Logger
	cur  atomic.Pointer[viper.Viper]
}

// NewSource loads defaults, the optional config file and the environment.
// An empty path falls back to the CONFIG_FILE environment variable.
func NewSource(path string) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	s := &Source{path: strings.TrimSpace(path), log: zap.NewNop()}

	v, err := s.read()
	if err != nil {
		return nil, err
	}
	s.cur.Store(v)
	return s, nil
}

// SetLogger attaches a logger used for reload diagnostics.
func (s *Source) SetLogger(log *zap.Logger) {
	if log != nil {
		s.log = log
	}
}

func (s *Source) read() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if s.path != "" {
		v.SetConfigFile(s.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", s.path, err)
		}
	}
	return v, nil
}

// Config returns the startup configuration from the current snapshot.
func (s *Source) Config() *Config {
	return fromViper(s.cur.Load())
}

// Model reads the model credential and identifier. Both may be empty.
func (s *Source) Model() ModelSettings {
	v := s.cur.Load()
	return ModelSettings{
		APIKey: strings.TrimSpace(v.GetString("gemini_api_key")),
		Model:  strings.TrimSpace(v.GetString("gemini_model")),
	}
}

// Reload re-reads the config file and swaps the snapshot. A failed read
// keeps the previous snapshot.
func (s *Source) Reload() error {
	v, err := s.read()
	if err != nil {
		return err
	}
	s.cur.Store(v)
	return nil
}

// Watch reloads the config file on change until ctx is done. It is a no-op
// without a config file. The parent directory is watched because editors
// usually replace the file instead of writing it in place.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.log.Warn("config reload failed", zap.String("path", target), zap.Error(err))
					continue
				}
				s.log.Info("config reloaded", zap.String("path", target))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if !errors.Is(err, fsnotify.ErrEventOverflow) {
					s.log.Warn("config watcher error", zap.Error(err))
				}
			}
		}
	}()
	return nil
}
