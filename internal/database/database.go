package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/foodorder/internal/models"
)

const (
	bootstrapTimeout = 10 * time.Second
	maxOpenConns     = 25
	maxIdleConns     = 5
	connMaxLifetime  = 30 * time.Minute
)

// Connect opens the Postgres connection, creating the database when missing, and runs migrations.
func Connect(dsn string, production bool, log *zap.Logger) (*gorm.DB, error) {
	if err := ensureDatabase(dsn); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	level := logger.Info
	if production {
		level = logger.Warn
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Warn("failed to ensure uuid-ossp extension", zap.Error(err))
	}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return conn, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.Category{},
		&models.DishStatus{},
		&models.Dish{},
		&models.DishVariant{},
		&models.DishModifier{},
		&models.Branch{},
		&models.Zone{},
		&models.PromoCode{},
		&models.User{},
		&models.BonusTransaction{},
		&models.Order{},
		&models.OrderItem{},
		&models.Sequence{},
	}

	for _, model := range migrations {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("%T: %w", model, err)
		}
	}
	return nil
}

// ensureDatabase connects to the maintenance database of the same server and creates the
// target database when it does not exist yet. Non-URL DSNs are left alone.
func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	target, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	name := strings.TrimPrefix(target.Path, "/")
	if name == "" {
		return nil
	}

	maintenance := *target
	maintenance.Path = "/postgres"
	connector, err := pq.NewConnector(maintenance.String())
	if err != nil {
		return err
	}
	admin := sql.OpenDB(connector)
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	var exists bool
	err = admin.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	if err != nil || exists {
		return err
	}

	_, err = admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	return err
}
