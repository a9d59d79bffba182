package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/up-bridge/internal/config"
	"github.com/carson-networks/up-bridge/internal/upapi"
)

// probeMaxTries bounds liveness-probe retries before a failing probe is
// treated as "webhook absent" and the subscription is recreated.
const probeMaxTries = 3

var errWebhookAbsent = errors.New("webhook: remote webhook confirmed absent")

// apiClient is the slice of the API client the manager needs.
type apiClient interface {
	CreateWebhook(ctx context.Context, callbackURL string) (*upapi.Webhook, error)
	WebhookExists(ctx context.Context, webhookID string) (bool, error)
	DeleteWebhook(ctx context.Context, webhookID string) error
}

// registrationStore persists the webhook registration triple.
type registrationStore interface {
	Registration() config.WebhookRegistration
	SaveRegistration(reg config.WebhookRegistration) error
	ClearRegistration() error
}

// Manager ensures exactly one live remote webhook subscription backs the
// locally generated callback id, idempotently across restarts.
type Manager struct {
	client      apiClient
	store       registrationStore
	externalURL string
	logger      *logrus.Logger

	probeInterval time.Duration
}

func NewManager(client apiClient, store registrationStore, externalURL string, logger *logrus.Logger) *Manager {
	return &Manager{
		client:        client,
		store:         store,
		externalURL:   externalURL,
		logger:        logger,
		probeInterval: 500 * time.Millisecond,
	}
}

// CallbackURL is the externally reachable URL Up delivers events to for the
// given callback id.
func (m *Manager) CallbackURL(callbackID string) string {
	return fmt.Sprintf("%s/v1/webhooks/up/%s", m.externalURL, callbackID)
}

// Ensure reuses the persisted remote webhook when it is still alive, and
// otherwise creates a new one and persists its id, the local callback id
// and the shared secret in one atomic config write.
func (m *Manager) Ensure(ctx context.Context) (config.WebhookRegistration, error) {
	reg := m.store.Registration()

	callbackID := reg.CallbackID
	if callbackID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return config.WebhookRegistration{}, fmt.Errorf("webhook: generating callback id: %w", err)
		}
		callbackID = id.String()
	}
	callbackURL := m.CallbackURL(callbackID)

	if reg.RemoteID != "" {
		alive, err := m.probe(ctx, reg.RemoteID)
		if alive {
			m.logger.Debugf("Manager.Ensure.existing webhook %v still alive, reusing", reg.RemoteID)
			return reg, nil
		}
		if errors.Is(err, errWebhookAbsent) {
			m.logger.Infof("Manager.Ensure.webhook %v gone, recreating", reg.RemoteID)
		} else {
			// Probe kept failing. Recreating keeps event delivery alive at
			// the risk of orphaning the old remote subscription.
			m.logger.WithError(err).Warnf("Manager.Ensure.probe of webhook %v failed, recreating", reg.RemoteID)
		}
	}

	created, err := m.client.CreateWebhook(ctx, callbackURL)
	if err != nil {
		return config.WebhookRegistration{}, fmt.Errorf("webhook: creating remote webhook: %w", err)
	}

	reg = config.WebhookRegistration{
		RemoteID:   created.ID,
		CallbackID: callbackID,
		Secret:     created.Attributes.SecretKey,
	}
	if err := m.store.SaveRegistration(reg); err != nil {
		return config.WebhookRegistration{}, fmt.Errorf("webhook: persisting registration: %w", err)
	}

	m.logger.Infof("Manager.Ensure.created webhook %v for %v", created.ID, callbackURL)
	return reg, nil
}

// probe pings the remote webhook, retrying transient failures with
// exponential backoff so a momentary fault does not trigger recreation.
// Returns (false, errWebhookAbsent) only when the remote confirms the
// webhook is gone.
func (m *Manager) probe(ctx context.Context, remoteID string) (bool, error) {
	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.InitialInterval = m.probeInterval

	return backoff.Retry(ctx, func() (bool, error) {
		exists, err := m.client.WebhookExists(ctx, remoteID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, backoff.Permanent(errWebhookAbsent)
		}
		return true, nil
	},
		backoff.WithBackOff(expBackOff),
		backoff.WithMaxTries(probeMaxTries),
	)
}

// Delete removes the remote webhook and clears the persisted registration.
// Best-effort: failures are logged and never block teardown.
func (m *Manager) Delete(ctx context.Context) {
	reg := m.store.Registration()
	if reg.RemoteID == "" {
		return
	}

	if err := m.client.DeleteWebhook(ctx, reg.RemoteID); err != nil {
		m.logger.WithError(err).Warnf("Manager.Delete.failed deleting webhook %v", reg.RemoteID)
		return
	}
	if err := m.store.ClearRegistration(); err != nil {
		m.logger.WithError(err).Warn("Manager.Delete.failed clearing registration")
		return
	}
	m.logger.Infof("Manager.Delete.deleted webhook %v", reg.RemoteID)
}
