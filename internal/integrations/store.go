package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm_backend/internal/integrations/secret"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind names a third-party integration.
type Kind string

const (
	KindHubSpot Kind = "hubspot"
	KindSlack   Kind = "slack"
)

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindHubSpot, KindSlack:
		return Kind(s), true
	}
	return "", false
}

// Config is the stored configuration of one integration. Secret holds the
// HubSpot API key or the Slack webhook URL in plaintext.
type Config struct {
	Kind      Kind
	Enabled   bool
	Secret    string
	UpdatedBy *uuid.UUID
	UpdatedAt time.Time
}

// ConfigStore persists integration configuration. Get returns a disabled
// Config when nothing has been stored for kind.
type ConfigStore interface {
	Get(ctx context.Context, kind Kind) (Config, error)
	Set(ctx context.Context, cfg Config) error
}

type storedSettings struct {
	Secret string `json:"secret,omitempty"`
}

// PGStore keeps configurations in integration_configs with secrets sealed by box.
type PGStore struct {
	pool *pgxpool.Pool
	box  *secret.Box
}

func NewPGStore(pool *pgxpool.Pool, box *secret.Box) *PGStore {
	return &PGStore{pool: pool, box: box}
}

func (s *PGStore) Get(ctx context.Context, kind Kind) (Config, error) {
	cfg := Config{Kind: kind}
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT enabled, settings, updated_by, updated_at
		FROM integration_configs
		WHERE kind = $1`, string(kind),
	).Scan(&cfg.Enabled, &raw, &cfg.UpdatedBy, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{Kind: kind}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load %s config: %w", kind, err)
	}

	var settings storedSettings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return Config{}, fmt.Errorf("decode %s settings: %w", kind, err)
		}
	}
	cfg.Secret, err = s.box.Open(settings.Secret)
	if err != nil {
		return Config{}, fmt.Errorf("open %s secret: %w", kind, err)
	}
	return cfg, nil
}

func (s *PGStore) Set(ctx context.Context, cfg Config) error {
	sealed, err := s.box.Seal(cfg.Secret)
	if err != nil {
		return fmt.Errorf("seal %s secret: %w", cfg.Kind, err)
	}
	raw, err := json.Marshal(storedSettings{Secret: sealed})
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO integration_configs (kind, enabled, settings, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (kind) DO UPDATE
		SET enabled = EXCLUDED.enabled,
			settings = EXCLUDED.settings,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()`,
		string(cfg.Kind), cfg.Enabled, raw, cfg.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("save %s config: %w", cfg.Kind, err)
	}
	return nil
}

var _ ConfigStore = (*PGStore)(nil)
