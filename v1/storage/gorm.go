package storage

import (
	"context"
	stdErrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	softlockerrors "github.com/mirkobrombin/go-softlock/v1/errors"
)

const (
	defaultGormTableName = "softlock_kv"
	defaultGormOpTimeout = 5 * time.Second
)

// gormKV is the internal model used to store key-value pairs in the database.
type gormKV struct {
	Key   string `gorm:"primaryKey;column:key_id"`
	Value string `gorm:"column:value"`
}

// GormBackend implements Backend on top of a relational table, for lock
// families that should live next to application data.
type GormBackend struct {
	db        *gorm.DB
	tableName string
	timeout   time.Duration
}

// GormOption configures a GormBackend.
type GormOption func(*gormOptions)

type gormOptions struct {
	tableName string
	timeout   time.Duration
}

// WithGormTableName sets the table name for the GormBackend.
func WithGormTableName(name string) GormOption {
	return func(o *gormOptions) {
		o.tableName = name
	}
}

// WithGormTimeout sets the operation timeout for GORM calls.
func WithGormTimeout(d time.Duration) GormOption {
	return func(o *gormOptions) {
		o.timeout = d
	}
}

// NewGormBackend returns a new GormBackend using the provided DB connection.
func NewGormBackend(db *gorm.DB, opts ...GormOption) *GormBackend {
	o := gormOptions{
		tableName: defaultGormTableName,
		timeout:   defaultGormOpTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Ensure the table exists
	if !db.Migrator().HasTable(o.tableName) {
		_ = db.Table(o.tableName).AutoMigrate(&gormKV{})
	}

	return &GormBackend{db: db, tableName: o.tableName, timeout: o.timeout}
}

// Get implements Backend.Get.
func (b *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, gormErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var kv gormKV
	err := b.db.WithContext(cctx).Table(b.tableName).First(&kv, "key_id = ?", key).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, gormErr(err)
	}
	return kv.Value, true, nil
}

// Set implements Backend.Set.
func (b *GormBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return gormErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	kv := gormKV{Key: key, Value: value}
	err := b.db.WithContext(cctx).Table(b.tableName).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&kv).Error
	if err != nil {
		return gormErr(err)
	}
	return nil
}

// Delete implements Backend.Delete.
func (b *GormBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return gormErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.db.WithContext(cctx).Table(b.tableName).Delete(&gormKV{}, "key_id = ?", key).Error; err != nil {
		return gormErr(err)
	}
	return nil
}

func gormErr(err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return softlockerrors.ErrTimeout
	}
	return err
}
