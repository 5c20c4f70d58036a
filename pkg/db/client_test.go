package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig(nil, 0))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := NewFromConn(newTestDB(t))
	ctx := context.Background()
	if err := client.AutoMigrate(ctx); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	orgID := uuid.New()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Technician{OrganizationID: orgID, Name: "committed", Color: "#3b82f6", IsActive: true}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := client.DB().Model(&models.Technician{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Technician{OrganizationID: orgID, Name: "rolled", Color: "#000000"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := client.DB().Model(&models.Technician{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	client := NewFromConn(newTestDB(t))
	ctx := context.Background()
	if err := client.AutoMigrate(ctx); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Create(&models.Technician{OrganizationID: uuid.New(), Name: "ghost", Color: "#111111"}).Error; err != nil {
				return err
			}
			panic("kaboom")
		})
	}()

	var count int64
	if err := client.DB().Model(&models.Technician{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic rollback to leave 0 records, got %d", count)
	}
}

func TestPing(t *testing.T) {
	client := NewFromConn(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWaitReachableGivesUpAfterRetries(t *testing.T) {
	orig := connectBackoff
	t.Cleanup(func() { connectBackoff = orig })
	connectBackoff = func() *backoff.ExponentialBackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Millisecond
		b.MaxInterval = time.Millisecond
		return b
	}

	sqlDB, err := newTestDB(t).DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if err := waitReachable(context.Background(), sqlDB, 2, nil); err != nil {
		t.Fatalf("open database should answer: %v", err)
	}

	_ = sqlDB.Close()
	if err := waitReachable(context.Background(), sqlDB, 2, nil); err == nil {
		t.Fatal("expected closed database to stay unreachable")
	}
}

func TestNewOpensSQLite(t *testing.T) {
	cfg := config.DBConfig{DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())}
	client, err := New(context.Background(), cfg, true, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer client.Close()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, err := New(context.Background(), config.DBConfig{}, true, nil); err == nil {
		t.Fatal("expected missing DSN error")
	}
}
