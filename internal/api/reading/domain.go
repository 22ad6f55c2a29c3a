package reading

import (
	"context"
	"time"

	commonerrors "sensor-monitor-server/internal/api/common/errors"
	"sensor-monitor-server/internal/api/common/query"
	"sensor-monitor-server/internal/hub"
	"sensor-monitor-server/internal/models"
	"sensor-monitor-server/internal/utils"
)

// ReadingRepository is the durable append-only store of sensor readings.
// Append serializes concurrent writers; queries may run concurrently with an
// in-flight write and see read-committed state.
type ReadingRepository interface {
	Append(ctx context.Context, row *models.Reading) error
	QueryRecent(ctx context.Context, limit int) ([]models.Reading, error)
	QueryByDate(ctx context.Context, day time.Time) ([]models.Reading, error)
	Ping(ctx context.Context) error
}

// ReadingService is the per-reading ingestion pipeline plus the history
// queries a connecting dashboard reconciles from.
type ReadingService interface {
	Ingest(ctx context.Context, in ReadingInput) (*IngestResult, error)
	IngestAndNotify(ctx context.Context, in ReadingInput) (*IngestResult, error)
	History(ctx context.Context, q query.History) ([]*Reading, error)
	Recent(ctx context.Context) ([]*Reading, error)
	Health(ctx context.Context) *HealthStatus
}

// Broadcaster is the slice of the live hub the service depends on.
type Broadcaster interface {
	Broadcast(event hub.Event)
	Count() int
}

// ReadingInput is the device-submitted payload. Temperature is a pointer so
// a missing field can be told apart from a legitimate 0 °C sample.
type ReadingInput struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	DeviceID    string   `json:"device_id"`
}

func (in ReadingInput) validate(humidityRequired bool) error {
	if in.Temperature == nil {
		return commonerrors.ValidationErr("temperature", "required and must be a number")
	}
	if in.DeviceID == "" {
		return commonerrors.ValidationErr("device_id", "required")
	}
	if humidityRequired && in.Humidity == nil {
		return commonerrors.ValidationErr("humidity", "required and must be a number")
	}
	return nil
}

// Reading is the API-facing shape of one stored sample.
type Reading struct {
	ID            int64     `json:"id"`
	Temperature   float64   `json:"temperature"`
	Humidity      *float64  `json:"humidity"`
	DeviceID      string    `json:"device_id"`
	Alert         bool      `json:"alert"`
	Timestamp     time.Time `json:"timestamp"`
	FormattedTime string    `json:"formatted_time"`
}

func fromModel(m *models.Reading) *Reading {
	return &Reading{
		ID:            m.ID,
		Temperature:   m.Temperature,
		Humidity:      m.Humidity,
		DeviceID:      m.DeviceID,
		Alert:         m.Alert,
		Timestamp:     m.Timestamp,
		FormattedTime: utils.FormatDisplay(m.Timestamp),
	}
}

func fromModels(rows []models.Reading) []*Reading {
	readings := make([]*Reading, 0, len(rows))
	for i := range rows {
		readings = append(readings, fromModel(&rows[i]))
	}
	return readings
}

// AlertPayload is the data half of an alert-raised event.
type AlertPayload struct {
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	DeviceID    string   `json:"device_id"`
	Message     string   `json:"message"`
	Timestamp   string   `json:"timestamp"`
}

// IngestResult reports one completed ingestion. RelayErr carries a failed
// best-effort notification; the reading itself is already durable by then.
type IngestResult struct {
	Reading  *Reading
	Alert    bool
	Message  string
	Notified bool
	RelayErr error
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	ServerTime  string `json:"server_time"`
	Timezone    string `json:"timezone"`
	Subscribers int    `json:"subscribers"`
}
