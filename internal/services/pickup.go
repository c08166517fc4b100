package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodorder/internal/models"
)

// DefaultPickupCodeStart is the first code handed out on an empty database.
const DefaultPickupCodeStart = 100000

const pickupSequenceName = "pickup_code"

// PickupSequence hands out unique pickup codes. tx is the order transaction.
type PickupSequence interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

func formatPickupCode(n int64) string {
	return fmt.Sprintf("%06d", n)
}

// lastPickupCode returns the highest numeric pickup code persisted so far, or 0.
func lastPickupCode(ctx context.Context, db *gorm.DB) (int64, error) {
	var order models.Order
	err := db.WithContext(ctx).
		Select("pickup_code").
		Where("pickup_code IS NOT NULL").
		Order("length(pickup_code) desc, pickup_code desc").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load last pickup code: %w", err)
	}
	if order.PickupCode == nil {
		return 0, nil
	}

	n, err := strconv.ParseInt(*order.PickupCode, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func seedValue(last, start int64) int64 {
	if last >= start {
		return last
	}
	return start - 1
}

// RedisPickupSequence increments a Redis counter. The counter is seeded once from the database.
type RedisPickupSequence struct {
	client *redis.Client
	key    string
	start  int64
}

// NewRedisPickupSequence constructs a RedisPickupSequence.
func NewRedisPickupSequence(client *redis.Client, key string, start int64) *RedisPickupSequence {
	if key == "" {
		key = "foodorder:" + pickupSequenceName
	}
	if start <= 0 {
		start = DefaultPickupCodeStart
	}
	return &RedisPickupSequence{client: client, key: key, start: start}
}

func (s *RedisPickupSequence) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	exists, err := s.client.Exists(ctx, s.key).Result()
	if err != nil {
		return "", fmt.Errorf("check pickup counter: %w", err)
	}
	if exists == 0 {
		last, err := lastPickupCode(ctx, tx)
		if err != nil {
			return "", err
		}
		if err := s.client.SetNX(ctx, s.key, seedValue(last, s.start), 0).Err(); err != nil {
			return "", fmt.Errorf("seed pickup counter: %w", err)
		}
	}

	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return "", fmt.Errorf("increment pickup counter: %w", err)
	}
	return formatPickupCode(n), nil
}

// DBPickupSequence keeps the counter in the sequences table, locked for the rest of tx.
type DBPickupSequence struct {
	start int64
}

// NewDBPickupSequence constructs a DBPickupSequence.
func NewDBPickupSequence(start int64) *DBPickupSequence {
	if start <= 0 {
		start = DefaultPickupCodeStart
	}
	return &DBPickupSequence{start: start}
}

func (s *DBPickupSequence) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	db := tx.WithContext(ctx)

	var seq models.Sequence
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", pickupSequenceName).
		First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		last, err := lastPickupCode(ctx, tx)
		if err != nil {
			return "", err
		}
		seq = models.Sequence{Name: pickupSequenceName, Value: seedValue(last, s.start) + 1}
		if err := db.Create(&seq).Error; err != nil {
			return "", fmt.Errorf("create pickup sequence: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("lock pickup sequence: %w", err)
	default:
		seq.Value++
		if err := db.Model(&models.Sequence{}).
			Where("name = ?", pickupSequenceName).
			UpdateColumn("value", seq.Value).Error; err != nil {
			return "", fmt.Errorf("advance pickup sequence: %w", err)
		}
	}

	return formatPickupCode(seq.Value), nil
}
