package database

import (
	"time"

	"github.com/pkg/errors"

	"gorm.io/gorm"

	"streampresence/internal/models"
)

// Repository handles all database operations for watch history
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// StartSession inserts a new open session
func (r *Repository) StartSession(session *models.WatchSession) error {
	session.EndedAt = nil
	result := r.db.Create(session)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert watch session")
	}
	return nil
}

// RecordRefresh stores the refresh count of an open session and advances
// its duration to at.
func (r *Repository) RecordRefresh(id uint, refreshes int, at time.Time) error {
	var session models.WatchSession
	if err := r.db.First(&session, id).Error; err != nil {
		return errors.Wrapf(err, "failed to get watch session %d", id)
	}
	result := r.db.Model(&session).Updates(map[string]interface{}{
		"refreshes": refreshes,
		"duration":  seconds(session.StartedAt, at),
	})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update watch session")
	}
	return nil
}

// EndOpenSessions closes every open session at the given time and returns
// how many were closed.
func (r *Repository) EndOpenSessions(at time.Time) (int64, error) {
	var open []*models.WatchSession
	if err := r.db.Where("ended_at IS NULL").Find(&open).Error; err != nil {
		return 0, errors.Wrap(err, "failed to query open sessions")
	}

	var closed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, s := range open {
			result := tx.Model(s).Updates(map[string]interface{}{
				"ended_at": at,
				"duration": seconds(s.StartedAt, at),
			})
			if result.Error != nil {
				return result.Error
			}
			closed += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to end open sessions")
	}
	return closed, nil
}

// GetOpenSession retrieves the most recent open session, or nil
func (r *Repository) GetOpenSession() (*models.WatchSession, error) {
	var session models.WatchSession
	result := r.db.Where("ended_at IS NULL").Order("started_at DESC").First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get open session")
	}
	return &session, nil
}

// ListSessions returns the most recent sessions, newest first
func (r *Repository) ListSessions(limit int) ([]*models.WatchSession, error) {
	var sessions []*models.WatchSession
	q := r.db.Order("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list watch sessions")
	}
	return sessions, nil
}

// GetTitleSummarySince returns watch time per service and title since a
// given time
func (r *Repository) GetTitleSummarySince(since time.Time) ([]models.TitleSummary, error) {
	var summaries []models.TitleSummary

	result := r.db.Model(&models.WatchSession{}).
		Select("service, title, SUM(duration) as total_seconds, COUNT(*) as session_count").
		Where("started_at >= ?", since).
		Group("service, title").
		Order("total_seconds DESC, service, title").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query title summary")
	}

	return summaries, nil
}

// GetServiceSummarySince returns watch time per service since a given time
func (r *Repository) GetServiceSummarySince(since time.Time) ([]models.ServiceSummary, error) {
	var summaries []models.ServiceSummary

	result := r.db.Model(&models.WatchSession{}).
		Select("service, SUM(duration) as total_seconds, COUNT(*) as session_count").
		Where("started_at >= ?", since).
		Group("service").
		Order("total_seconds DESC, service").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query service summary")
	}

	return summaries, nil
}

// DeleteOldSessions deletes sessions started before a specified date (soft delete)
func (r *Repository) DeleteOldSessions(before time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", before).Delete(&models.WatchSession{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old sessions")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentErrors returns the latest error logs, newest first
func (r *Repository) RecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	if err := r.db.Order("timestamp DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query error logs")
	}
	return logs, nil
}

func seconds(from, to time.Time) int64 {
	d := int64(to.Sub(from) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
