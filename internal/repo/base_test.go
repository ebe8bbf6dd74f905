package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seatRow struct {
	ID   string `gorm:"primaryKey"`
	Seat string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&seatRow{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	if got := base.DB(ctx).Statement.Context; got != ctx {
		t.Fatalf("expected context to flow through, got %v", got)
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestLockedAddsLockingClauseOnlyWhenRequested(t *testing.T) {
	base := NewBase(newTestDB(t))
	ctx := context.Background()

	if _, ok := base.Locked(ctx, true).Statement.Clauses["FOR"]; !ok {
		t.Fatalf("expected FOR UPDATE clause")
	}
	if _, ok := base.Locked(ctx, false).Statement.Clauses["FOR"]; ok {
		t.Fatalf("unexpected locking clause")
	}

	var rows []seatRow
	if err := base.Locked(ctx, true).Find(&rows).Error; err != nil {
		t.Fatalf("locked query should run on sqlite: %v", err)
	}
}

func TestUpsertByIDOverwritesExistingRow(t *testing.T) {
	base := NewBase(newTestDB(t))
	ctx := context.Background()

	q := base.UpsertByID(ctx, "id")
	if _, ok := q.Statement.Clauses[clause.OnConflict{}.Name()]; !ok {
		t.Fatalf("expected ON CONFLICT clause")
	}

	if err := base.UpsertByID(ctx, "id").Create(&seatRow{ID: "m-1", Seat: "A1"}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := base.UpsertByID(ctx, "id").Create(&seatRow{ID: "m-1", Seat: "B2"}).Error; err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var rows []seatRow
	if err := base.DB(ctx).Find(&rows).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 || rows[0].Seat != "B2" {
		t.Fatalf("expected single updated row, got %+v", rows)
	}
}
