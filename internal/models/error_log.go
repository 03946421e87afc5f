package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog is a failure recorded by the poll loop. Op names the presence
// operation that failed (connect, clear, reconnect).
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Op        string         `gorm:"index" json:"op"`
	Service   string         `json:"service,omitempty"`
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
