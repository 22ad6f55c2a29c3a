package reading

import (
	"context"
	"time"

	"go.uber.org/zap"

	commonerrors "sensor-monitor-server/internal/api/common/errors"
	"sensor-monitor-server/internal/api/common/query"
	"sensor-monitor-server/internal/cache"
	"sensor-monitor-server/internal/hub"
	"sensor-monitor-server/internal/models"
	"sensor-monitor-server/internal/relay"
	"sensor-monitor-server/internal/utils"
)

const (
	// initial page load / historical browse bound
	historyLimit = 200
	// authenticated dashboard feed bound
	recentLimit = 100
	// outer bound on one notification, independent of the request deadline
	notifyTimeout = 15 * time.Second
)

type readingService struct {
	repository ReadingRepository
	hub        Broadcaster
	relay      relay.Notifier
	cache      *cache.Cache
	logger     *zap.Logger
}

var _ ReadingService = (*readingService)(nil)

func NewReadingService(
	repository ReadingRepository,
	broadcaster Broadcaster,
	notifier relay.Notifier,
	cache *cache.Cache,
	logger *zap.Logger) ReadingService {
	return &readingService{
		repository: repository,
		hub:        broadcaster,
		relay:      notifier,
		cache:      cache,
		logger:     logger,
	}
}

// Ingest runs the device-facing pipeline for one reading:
// validate → evaluate → persist → broadcast. A validation failure performs
// no work at all; a storage failure broadcasts nothing. Fan-out happens
// strictly after the append commits, so a live subscriber can never observe
// a reading that the history endpoints do not yet serve.
func (s *readingService) Ingest(ctx context.Context, in ReadingInput) (*IngestResult, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	alert := EvaluateAlert(*in.Temperature, in.Humidity)
	row := &models.Reading{
		Temperature: *in.Temperature,
		Humidity:    in.Humidity,
		DeviceID:    in.DeviceID,
		Alert:       alert,
		Timestamp:   utils.Now(),
	}

	if err := s.repository.Append(ctx, row); err != nil {
		s.logger.Error("failed to persist reading",
			zap.String("device_id", in.DeviceID),
			zap.Float64("temperature", *in.Temperature),
			zap.Error(err))
		return nil, err
	}

	stored := fromModel(row)
	s.logger.Debug("reading stored",
		zap.Int64("id", stored.ID),
		zap.Bool("alert", alert))

	s.hub.Broadcast(hub.Event{
		Type: hub.EventReadingUpdate,
		Data: stored,
	})

	message := "Reading normal"
	if alert {
		message = "ALERT TRIGGERED"
		s.hub.Broadcast(hub.Event{
			Type: hub.EventAlertRaised,
			Data: AlertPayload{
				Temperature: stored.Temperature,
				Humidity:    stored.Humidity,
				DeviceID:    stored.DeviceID,
				Message:     alertMessage(stored.Temperature, stored.Humidity),
				Timestamp:   stored.FormattedTime,
			},
		})
	}

	return &IngestResult{
		Reading: stored,
		Alert:   alert,
		Message: message,
	}, nil
}

// IngestAndNotify is the authenticated pipeline. It refuses outright when
// the messaging relay is disconnected (nothing is written), then runs the
// normal pipeline, and finally pushes a notification for alerting readings.
// A failed or timed-out notification degrades the result instead of rolling
// back the committed reading.
func (s *readingService) IngestAndNotify(ctx context.Context, in ReadingInput) (*IngestResult, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if !s.relay.IsConnected() {
		return nil, commonerrors.RelayUnavailableErr()
	}

	result, err := s.Ingest(ctx, in)
	if err != nil {
		return nil, err
	}

	if result.Alert {
		notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		message := alertMessage(result.Reading.Temperature, result.Reading.Humidity)
		if nerr := s.relay.Notify(notifyCtx, in.DeviceID, message); nerr != nil {
			s.logger.Warn("alert notification failed",
				zap.Int64("id", result.Reading.ID),
				zap.String("device_id", in.DeviceID),
				zap.Error(nerr))
			result.RelayErr = nerr
		} else {
			result.Notified = true
		}
	}

	return result, nil
}

// History serves the snapshot a connecting client reconstructs state from:
// the most recent readings when no date is given, or a full calendar day.
// Fully elapsed days are immutable and served through the cache.
func (s *readingService) History(ctx context.Context, q query.History) ([]*Reading, error) {
	if !q.HasDate {
		rows, err := s.repository.QueryRecent(ctx, historyLimit)
		if err != nil {
			s.logger.Error("failed to query recent readings", zap.Error(err))
			return nil, err
		}
		return fromModels(rows), nil
	}

	key := "history:" + q.Day.In(utils.Location()).Format("2006-01-02")
	cacheable := !utils.SameDay(q.Day, utils.Now()) && q.Day.Before(utils.Now())
	if cacheable {
		if item, exist := s.cache.Get(key); exist {
			return item.([]*Reading), nil
		}
	}

	rows, err := s.repository.QueryByDate(ctx, q.Day)
	if err != nil {
		s.logger.Error("failed to query readings by date",
			zap.Time("day", q.Day),
			zap.Error(err))
		return nil, err
	}

	readings := fromModels(rows)
	if cacheable {
		s.cache.Set(key, readings)
	}
	return readings, nil
}

// Recent is the bounded feed behind the authenticated dashboard endpoint.
func (s *readingService) Recent(ctx context.Context) ([]*Reading, error) {
	rows, err := s.repository.QueryRecent(ctx, recentLimit)
	if err != nil {
		s.logger.Error("failed to query recent readings", zap.Error(err))
		return nil, err
	}
	return fromModels(rows), nil
}

// Health reports liveness: store reachability, current reference time and
// the number of live subscribers.
func (s *readingService) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:      "online",
		Store:       "reachable",
		ServerTime:  utils.FormatDisplay(utils.Now()),
		Timezone:    utils.Location().String(),
		Subscribers: s.hub.Count(),
	}
	if err := s.repository.Ping(ctx); err != nil {
		s.logger.Error("store unreachable", zap.Error(err))
		status.Status = "degraded"
		status.Store = "unreachable"
	}
	return status
}
