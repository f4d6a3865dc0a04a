// Package integrations pushes lead and activity events to HubSpot and Slack
// and manages their webhook configuration.
package integrations

import (
	"context"
	"fmt"

	"crm_backend/internal/access"
	"crm_backend/internal/events"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
)

type slackPoster interface {
	Post(ctx context.Context, webhookURL string, msg SlackMessage) error
}

type hubSpotAPI interface {
	CreateContact(ctx context.Context, apiKey string, properties map[string]string) error
	Ping(ctx context.Context, apiKey string) error
}

// Service reads the stored configuration on every call, so changes take
// effect without a restart.
type Service struct {
	store   ConfigStore
	slack   slackPoster
	hubspot hubSpotAPI
	log     *logger.Logger
}

func NewService(store ConfigStore, slack slackPoster, hubspot hubSpotAPI, log *logger.Logger) *Service {
	return &Service{store: store, slack: slack, hubspot: hubspot, log: log}
}

// Notify renders event for kind and delivers it. Events the integration does
// not handle and disabled integrations are silent no-ops.
func (s *Service) Notify(ctx context.Context, kind Kind, event events.Event) error {
	payload, ok := BuildPayload(kind, event)
	if !ok {
		return nil
	}
	return s.Deliver(ctx, payload)
}

// Deliver sends a rendered payload if its integration is enabled.
func (s *Service) Deliver(ctx context.Context, p Payload) error {
	cfg, err := s.store.Get(ctx, p.Kind)
	if err != nil {
		return err
	}
	if !cfg.Enabled || cfg.Secret == "" {
		return nil
	}

	switch p.Kind {
	case KindSlack:
		if p.Slack == nil {
			return nil
		}
		if err := s.slack.Post(ctx, cfg.Secret, *p.Slack); err != nil {
			return err
		}
		s.log.Info("notification sent to slack", "event", p.Event)
	case KindHubSpot:
		if p.Contact == nil {
			return nil
		}
		if err := s.hubspot.CreateContact(ctx, cfg.Secret, p.Contact); err != nil {
			return err
		}
		s.log.Info("lead synced to hubspot", "event", p.Event)
	default:
		return fmt.Errorf("unknown integration %q", p.Kind)
	}
	return nil
}

// ConfigureInput enables or disables one integration. Secret is the HubSpot
// API key or the Slack webhook URL.
type ConfigureInput struct {
	Kind    Kind
	Enabled bool
	Secret  string
}

// Configure stores the configuration for one integration. Disabling drops the
// stored secret.
func (s *Service) Configure(ctx context.Context, actor access.Actor, in ConfigureInput) error {
	if !access.CanManageIntegrations(actor) {
		return apperr.Forbidden("Access denied")
	}
	if in.Enabled && in.Secret == "" {
		return apperr.BadRequest(missingSecretMessage(in.Kind))
	}

	cfg := Config{Kind: in.Kind, Enabled: in.Enabled, UpdatedBy: &actor.ID}
	if in.Enabled {
		cfg.Secret = in.Secret
	}
	if err := s.store.Set(ctx, cfg); err != nil {
		s.log.DatabaseError("integrations.configure", err)
		return err
	}

	s.log.Info("integration configured", "kind", in.Kind, "enabled", in.Enabled, "user_id", actor.ID)
	return nil
}

// Status reports which integrations are enabled.
func (s *Service) Status(ctx context.Context, actor access.Actor) (map[Kind]bool, error) {
	if !access.CanManageIntegrations(actor) {
		return nil, apperr.Forbidden("Access denied")
	}

	out := make(map[Kind]bool, 2)
	for _, kind := range []Kind{KindHubSpot, KindSlack} {
		cfg, err := s.store.Get(ctx, kind)
		if err != nil {
			return nil, err
		}
		out[kind] = cfg.Enabled
	}
	return out, nil
}

// Test checks connectivity of an enabled integration. Upstream error details
// are logged, not returned.
func (s *Service) Test(ctx context.Context, actor access.Actor, name string) (string, error) {
	if !access.CanManageIntegrations(actor) {
		return "", apperr.Forbidden("Access denied")
	}

	notEnabled := apperr.BadRequest(fmt.Sprintf("%s integration is not enabled or configured", name))
	kind, ok := ParseKind(name)
	if !ok {
		return "", notEnabled
	}
	cfg, err := s.store.Get(ctx, kind)
	if err != nil {
		return "", err
	}
	if !cfg.Enabled || cfg.Secret == "" {
		return "", notEnabled
	}

	switch kind {
	case KindHubSpot:
		if err := s.hubspot.Ping(ctx, cfg.Secret); err != nil {
			s.log.DeliveryFailed("hubspot", "integration.test", err)
			return "", apperr.BadRequest("HubSpot connection failed")
		}
		return "HubSpot connection successful", nil
	default:
		if err := s.slack.Post(ctx, cfg.Secret, testSlackMessage()); err != nil {
			s.log.DeliveryFailed("slack", "integration.test", err)
			return "", apperr.BadRequest("Slack webhook test failed")
		}
		return "Slack webhook test successful", nil
	}
}

func missingSecretMessage(kind Kind) string {
	if kind == KindHubSpot {
		return "HubSpot API key is required"
	}
	return "Slack webhook URL is required"
}

func configuredMessage(kind Kind, enabled bool) string {
	name := "Slack"
	if kind == KindHubSpot {
		name = "HubSpot"
	}
	if enabled {
		return name + " webhook configured"
	}
	return name + " webhook disabled"
}
