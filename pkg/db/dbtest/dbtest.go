// Package dbtest opens isolated sqlite databases carrying the aggregator schema.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/events-aggregator/pkg/db/models"
)

// Open returns a private in-memory database. The pool is capped at a single
// connection so every transaction is serialized, the way row locks serialize
// writers on Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := conn.AutoMigrate(
		&models.Place{},
		&models.Event{},
		&models.Member{},
		&models.SyncMeta{},
		&models.OutboxItem{},
		&models.InboxItem{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}
