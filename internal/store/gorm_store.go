package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shpluspower/backend/internal/config"
)

// kvRecord is the single table behind the durable store
type kvRecord struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte
	UpdatedAt time.Time
}

func (kvRecord) TableName() string {
	return "kv_records"
}

// InitDB opens the Postgres connection with pool settings applied
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dbConfig.URL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// GormStore is the Postgres-backed Store implementation
type GormStore struct {
	db *gorm.DB
}

// NewGormStore runs migrations and returns a Store over db
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createKVRecordsTable(),
	})
	if err := m.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &GormStore{db: db}, nil
}

func createKVRecordsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_kv_records",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS kv_records (
					key VARCHAR(255) PRIMARY KEY,
					value BYTEA,
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("kv_records")
		},
	}
}

func (s *GormStore) Get(key string) ([]byte, bool, error) {
	var rec kvRecord
	err := s.db.First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return rec.Value, true, nil
}

func (s *GormStore) Set(key string, value []byte) error {
	rec := kvRecord{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Remove(key string) error {
	return s.db.Delete(&kvRecord{}, "key = ?", key).Error
}

func (s *GormStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.Model(&kvRecord{}).
		Where("key LIKE ?", prefix+"%").
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list keys %s*: %w", prefix, err)
	}
	return keys, nil
}
