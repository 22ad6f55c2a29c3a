package models

import (
	"time"
)

// Reading is one persisted sensor sample. Rows are insert-only: the alert
// flag is computed once at ingestion time and never recomputed, even if the
// thresholds change in a later build.
type Reading struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Temperature float64   `gorm:"column:temperature;not null" json:"temperature"`
	Humidity    *float64  `gorm:"column:humidity" json:"humidity"`
	DeviceID    string    `gorm:"column:device_id;not null;index" json:"device_id"`
	Alert       bool      `gorm:"column:alert" json:"alert"`
	Timestamp   time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (Reading) TableName() string {
	return "readings"
}
