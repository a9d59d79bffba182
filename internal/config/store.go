package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// WebhookRegistration is the persisted identity of the remote webhook
// subscription: the id Up assigned, the locally generated callback id the
// ingress route is keyed on, and the shared secret used to authenticate
// inbound callbacks.
type WebhookRegistration struct {
	RemoteID   string
	CallbackID string
	Secret     string
}

// Store is the durable home of the Config. Webhook registration updates are
// written back to the config file atomically so a crash never leaves a
// half-written file behind.
type Store struct {
	mutex sync.Mutex
	path  string
	cfg   *Config
}

func NewStore(path string, cfg *Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return *s.cfg
}

// Registration returns the persisted webhook registration, zero-valued when
// no webhook has been provisioned yet.
func (s *Store) Registration() WebhookRegistration {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return WebhookRegistration{
		RemoteID:   s.cfg.Webhook.RemoteID,
		CallbackID: s.cfg.Webhook.CallbackID,
		Secret:     s.cfg.Webhook.Secret,
	}
}

// SaveRegistration updates the webhook section and persists the whole config
// in one write, so the triple lands on disk together with the entry data.
func (s *Store) SaveRegistration(reg WebhookRegistration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cfg.Webhook.RemoteID = reg.RemoteID
	s.cfg.Webhook.CallbackID = reg.CallbackID
	s.cfg.Webhook.Secret = reg.Secret

	return s.write()
}

// ClearRegistration drops the persisted triple, used after a successful
// remote deletion at teardown.
func (s *Store) ClearRegistration() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cfg.Webhook.RemoteID = ""
	s.cfg.Webhook.CallbackID = ""
	s.cfg.Webhook.Secret = ""

	return s.write()
}

// write marshals the config to a temp file in the target directory and
// renames it into place. Callers must hold the mutex.
func (s *Store) write() error {
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".up-bridge-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp config: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}
