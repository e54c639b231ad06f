package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionEvent is one stored prediction. Rows are never updated.
type PredictionEvent struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AppointmentID     string    `gorm:"column:appointment_id;index" json:"appointment_id"`
	PredictionTime    time.Time `gorm:"column:prediction_time;index" json:"prediction_time"`
	NoShowProbability float64   `gorm:"column:no_show_probability" json:"no_show_probability"`
	RiskLevel         string    `gorm:"column:risk_level" json:"risk_level"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PredictionEvent) TableName() string { return "predictions" }

// PredictionEventPayload is the wire shape accepted by the ingest endpoint
// and the MQTT topic, and sent by the reporter.
type PredictionEventPayload struct {
	AppointmentID     string   `json:"appointment_id"`
	PredictionTime    string   `json:"prediction_time,omitempty"`
	NoShowProbability *float64 `json:"no_show_probability"`
	RiskLevel         string   `json:"risk_level,omitempty"`
}
