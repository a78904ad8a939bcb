package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/redis"
)

var (
	ErrAlreadyProcessed = errors.New("alert already processed")
	ErrCoolingDown      = errors.New("alert suppressed during cooldown")
)

type AlertGuardConfig struct {
	// Cooldown is how long one product in one stock status stays silent
	// after an alert was delivered.
	Cooldown time.Duration

	ProcessedTTL time.Duration

	CooldownKeyPrefix string

	ProcessedKeyPrefix string
}

func DefaultAlertGuardConfig() AlertGuardConfig {
	return AlertGuardConfig{
		Cooldown:           time.Hour,
		ProcessedTTL:       24 * time.Hour,
		CooldownKeyPrefix:  "alert:cooldown:",
		ProcessedKeyPrefix: "alert:processed:",
	}
}

// AlertGuard drops redelivered alerts and rate limits repeats for the same
// product. Both checks live in Redis so every processor instance shares them.
type AlertGuard struct {
	redis  redis.RedisAdapter
	config AlertGuardConfig
}

func NewAlertGuard(redisAdapter redis.RedisAdapter, config AlertGuardConfig) *AlertGuard {
	defaults := DefaultAlertGuardConfig()
	if config.Cooldown <= 0 {
		config.Cooldown = defaults.Cooldown
	}
	if config.ProcessedTTL <= 0 {
		config.ProcessedTTL = defaults.ProcessedTTL
	}
	if config.CooldownKeyPrefix == "" {
		config.CooldownKeyPrefix = defaults.CooldownKeyPrefix
	}
	if config.ProcessedKeyPrefix == "" {
		config.ProcessedKeyPrefix = defaults.ProcessedKeyPrefix
	}
	return &AlertGuard{redis: redisAdapter, config: config}
}

// Slot is a held cooldown window. Release gives it back when delivery failed.
type Slot struct {
	AlertID uuid.UUID
	key     string
	held    bool
}

// Acquire returns ErrAlreadyProcessed for a redelivered alert and
// ErrCoolingDown when the product already alerted in the same status within
// the cooldown.
func (g *AlertGuard) Acquire(ctx context.Context, alertID, storeID, productID uuid.UUID, status string) (*Slot, error) {
	processed, err := g.redis.Exist(ctx, g.processedKey(alertID))
	if err != nil {
		// a failed lookup only risks a duplicate notification
		logger.Warn("[alerts] processed check failed", "alert_id", alertID, "error", err)
	} else if processed > 0 {
		return nil, ErrAlreadyProcessed
	}

	key := g.cooldownKey(storeID, productID, status)
	acquired, err := g.redis.SetNX(ctx, key, []byte(alertID.String()), g.config.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("acquire cooldown: %w", err)
	}
	if !acquired {
		return nil, ErrCoolingDown
	}

	return &Slot{AlertID: alertID, key: key, held: true}, nil
}

// MarkProcessed records the alert so redeliveries are skipped.
func (g *AlertGuard) MarkProcessed(ctx context.Context, slot *Slot) error {
	if err := g.redis.Set(ctx, g.processedKey(slot.AlertID), []byte("1"), g.config.ProcessedTTL); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	slot.held = false
	return nil
}

func (g *AlertGuard) Release(ctx context.Context, slot *Slot) {
	if slot == nil || !slot.held {
		return
	}
	if err := g.redis.Del(ctx, slot.key); err != nil {
		logger.Warn("[alerts] release cooldown failed", "alert_id", slot.AlertID, "error", err)
		return
	}
	slot.held = false
}

func (g *AlertGuard) processedKey(alertID uuid.UUID) string {
	return g.config.ProcessedKeyPrefix + alertID.String()
}

func (g *AlertGuard) cooldownKey(storeID, productID uuid.UUID, status string) string {
	return fmt.Sprintf("%s%s:%s:%s", g.config.CooldownKeyPrefix, storeID, productID, status)
}
