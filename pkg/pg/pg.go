package pg

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

type txContextKey string

const txKey txContextKey = "trx"

// DB routes reads and writes to separate pools. Inside WithinTransaction both
// resolve to the same transaction handle carried by the context.
type DB struct {
	read  *gorm.DB
	write *gorm.DB
}

// New wraps already opened handles. read and write may be the same handle.
func New(read, write *gorm.DB) *DB {
	return &DB{read: read, write: write}
}

func Create(config Config, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()),
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				SingularTable: true,
			},
			TranslateError: true,
			Logger:         log,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	return db, nil
}

func CreateReadWrite(readConfig Config, writeConfig Config, log gormlogger.Interface) (*DB, error) {
	read, err := Create(readConfig, log)
	if err != nil {
		return nil, fmt.Errorf("open read pool: %w", err)
	}
	write, err := Create(writeConfig, log)
	if err != nil {
		return nil, fmt.Errorf("open write pool: %w", err)
	}
	return New(read, write), nil
}

// WithinTransaction runs fn inside a transaction on the write pool. A call made
// while a transaction is already bound to ctx joins it instead of opening a
// second one, so composed operations commit or roll back as one unit.
func (r *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	return r.write.WithContext(ctx)
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	return r.read.WithContext(ctx)
}

// Ping checks both pools.
func (r *DB) Ping(ctx context.Context) error {
	for _, g := range []*gorm.DB{r.write, r.read} {
		sqlDB, err := g.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}
