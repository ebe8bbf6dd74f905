package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Locked returns a query that takes row locks when forUpdate is set.
// Dialects without row locking (sqlite) drop the clause.
func (b Base) Locked(ctx context.Context, forUpdate bool) *gorm.DB {
	q := b.DB(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return q
}

// UpsertByID returns a query that overwrites every column when the primary
// key already exists.
func (b Base) UpsertByID(ctx context.Context, pk string) *gorm.DB {
	return b.DB(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: pk}},
			UpdateAll: true,
		})
}
