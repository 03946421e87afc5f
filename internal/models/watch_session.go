package models

import (
	"time"

	"gorm.io/gorm"
)

// WatchSession is one continuous broadcast of the same content. EndedAt is
// nil while the session is open.
type WatchSession struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Service      string         `gorm:"not null;index" json:"service"`
	Title        string         `gorm:"not null;index" json:"title"`
	MediaType    string         `gorm:"not null;default:unknown" json:"media_type"`
	Season       int            `gorm:"not null;default:0" json:"season,omitempty"`
	Episode      int            `gorm:"not null;default:0" json:"episode,omitempty"`
	EpisodeTitle string         `json:"episode_title,omitempty"`
	ImageURL     string         `json:"image_url,omitempty"`
	StartedAt    time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt      *time.Time     `gorm:"index" json:"ended_at,omitempty"`
	Duration     int64          `gorm:"not null;default:0" json:"duration"` // Duration in seconds
	Refreshes    int            `gorm:"not null;default:0" json:"refreshes"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Open reports whether the session has not ended yet.
func (s *WatchSession) Open() bool {
	return s.EndedAt == nil
}

type TitleSummary struct {
	Service      string  `json:"service"`
	Title        string  `json:"title"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	SessionCount int     `json:"session_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ServiceSummary struct {
	Service      string  `json:"service"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalHours   float64 `json:"total_hours"`
	SessionCount int     `json:"session_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod     `json:"period"`
	Titles       []TitleSummary   `json:"titles"`
	Services     []ServiceSummary `json:"services"`
	TotalSeconds int64            `json:"total_seconds"`
	TotalMinutes float64          `json:"total_minutes"`
	TotalHours   float64          `json:"total_hours"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
