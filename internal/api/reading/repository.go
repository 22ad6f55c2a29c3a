package reading

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	commonerrors "sensor-monitor-server/internal/api/common/errors"
	"sensor-monitor-server/internal/models"
	"sensor-monitor-server/internal/utils"
)

type readingRepository struct {
	db *gorm.DB

	// Single-writer discipline: commit order defines id order regardless of
	// how many ingestion requests are in flight. Reads do not take this lock.
	writeMu sync.Mutex
}

var _ ReadingRepository = (*readingRepository)(nil)

// NewReadingRepository migrates the readings table and returns the store.
func NewReadingRepository(db *gorm.DB) (ReadingRepository, error) {
	if err := db.AutoMigrate(&models.Reading{}); err != nil {
		return nil, commonerrors.StorageErr("migrate", err)
	}
	return &readingRepository{
		db: db,
	}, nil
}

// Append inserts one reading and fills in its assigned id. The timestamp
// defaults to the insertion time in the reference timezone when the caller
// did not resolve one.
func (r *readingRepository) Append(ctx context.Context, row *models.Reading) error {
	if row.DeviceID == "" {
		return commonerrors.StorageErr("append", errors.New("device_id must not be empty"))
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = utils.Now()
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return commonerrors.StorageErr("append", err)
	}
	return nil
}

// QueryRecent returns up to limit most recent readings in ascending order.
// The dashboard renders oldest-to-newest, so the newest-first query result
// is reversed before returning.
func (r *readingRepository) QueryRecent(ctx context.Context, limit int) ([]models.Reading, error) {
	var rows []models.Reading
	err := r.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, commonerrors.StorageErr("query recent", err)
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// QueryByDate returns every reading whose timestamp falls on the given
// calendar date in the reference timezone, ascending with id as tie-break.
// A day with no readings yields an empty slice, not an error.
func (r *readingRepository) QueryByDate(ctx context.Context, day time.Time) ([]models.Reading, error) {
	start, end := utils.DayBounds(day)

	var rows []models.Reading
	err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp ASC, id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, commonerrors.StorageErr("query by date", err)
	}
	return rows, nil
}

// Ping reports whether the store is reachable.
func (r *readingRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return commonerrors.StorageErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return commonerrors.StorageErr("ping", err)
	}
	return nil
}
