package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sparkscan/internal/logging"
	"sparkscan/internal/record"
)

type recordRow struct {
	EntryID     int           `gorm:"column:entry_id;primaryKey;autoIncrement:false"`
	EntryHash   string        `gorm:"column:entry_hash;type:text;uniqueIndex;not null"`
	Name        string        `gorm:"column:name;type:text;not null"`
	Score       int           `gorm:"column:score;not null;default:0"`
	LastUpdated time.Time     `gorm:"column:last_updated"`
	Data        record.Record `gorm:"column:data;type:text;serializer:json"`
}

func (recordRow) TableName() string {
	return "records"
}

type conflictRow struct {
	Hash     string        `gorm:"column:hash;primaryKey"`
	Position int           `gorm:"column:position;index;not null"`
	Existing record.Record `gorm:"column:existing;type:text;serializer:json"`
	New      record.Record `gorm:"column:new;type:text;serializer:json"`
}

func (conflictRow) TableName() string {
	return "pending_conflicts"
}

// SQLStore keeps the library in a SQLite database.
type SQLStore struct {
	db  *gorm.DB
	log *logging.Logger
}

// OpenSQL opens (and migrates) the database at dsn.
func OpenSQL(ctx context.Context, dsn string, log *logging.Logger) (*SQLStore, error) {
	if err := ensureSQLiteDirectory(dsn); err != nil {
		return nil, fmt.Errorf("ensure sqlite directory: %w", err)
	}
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&recordRow{}, &conflictRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}
	log = logging.OrNop(log)
	log.Info("library database opened", "dsn", dsn)
	return &SQLStore{db: db, log: log}, nil
}

func ensureSQLiteDirectory(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads every record ordered by entry id and every pending conflict in
// detection order.
func (s *SQLStore) Load(ctx context.Context) (Snapshot, error) {
	var rows []recordRow
	if err := s.db.WithContext(ctx).Order("entry_id").Find(&rows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("query records: %w", err)
	}
	var conflicts []conflictRow
	if err := s.db.WithContext(ctx).Order("position").Find(&conflicts).Error; err != nil {
		return Snapshot{}, fmt.Errorf("query pending conflicts: %w", err)
	}

	var snap Snapshot
	for _, r := range rows {
		rec := r.Data
		rec.EntryID = r.EntryID
		rec.EntryHash = r.EntryHash
		snap.Records = append(snap.Records, rec)
	}
	for _, c := range conflicts {
		snap.Pending = append(snap.Pending, Conflict{Hash: c.Hash, Existing: c.Existing, New: c.New})
	}
	return snap, nil
}

// Save replaces the stored state with snap in a single transaction.
func (s *SQLStore) Save(ctx context.Context, snap Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&recordRow{}).Error; err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&conflictRow{}).Error; err != nil {
			return fmt.Errorf("clear pending conflicts: %w", err)
		}

		if len(snap.Records) > 0 {
			rows := make([]recordRow, len(snap.Records))
			for i, r := range snap.Records {
				rows[i] = recordRow{
					EntryID:     r.EntryID,
					EntryHash:   r.EntryHash,
					Name:        r.Name,
					Score:       r.Score,
					LastUpdated: r.LastUpdated,
					Data:        r,
				}
			}
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return fmt.Errorf("insert records: %w", err)
			}
		}
		if len(snap.Pending) > 0 {
			rows := make([]conflictRow, len(snap.Pending))
			for i, c := range snap.Pending {
				rows[i] = conflictRow{Hash: c.Hash, Position: i, Existing: c.Existing, New: c.New}
			}
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return fmt.Errorf("insert pending conflicts: %w", err)
			}
		}
		return nil
	})
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
