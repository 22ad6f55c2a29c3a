package reading

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	commonerrors "sensor-monitor-server/internal/api/common/errors"
	"sensor-monitor-server/internal/api/common/query"
)

type ReadingHandler struct {
	rs     ReadingService
	mode   string
	logger *zap.Logger
}

// Router wires the sensor API. The auth middleware guards only the
// relay-backed alert endpoint and the dashboard feed; the device endpoints
// stay public so firmware does not carry the token.
func Router(route fiber.Router, rs ReadingService, authGuard fiber.Handler, mode string, logger *zap.Logger) {
	handler := &ReadingHandler{
		rs:     rs,
		mode:   mode,
		logger: logger,
	}

	route.Get("/health", handler.health)
	route.Get("/sensor-data", handler.getSensorData)
	route.Post("/leitura", handler.createReading)

	route.Get("/dados", authGuard, handler.getRecent)
	route.Post("/alerta", authGuard, handler.createAlert)
}

// errorResponse maps the error taxonomy onto HTTP statuses. Outside release
// mode the response also carries the human-readable detail.
func (h *ReadingHandler) errorResponse(c *fiber.Ctx, err error) error {
	var (
		status int
		kind   string
	)

	switch err.(type) {
	case commonerrors.ValidationError:
		status, kind = fiber.StatusBadRequest, "validation"
	case commonerrors.StorageError:
		status, kind = fiber.StatusInternalServerError, "storage"
	case commonerrors.RelayUnavailableError:
		status, kind = fiber.StatusServiceUnavailable, "relay_unavailable"
	default:
		status, kind = fiber.StatusInternalServerError, "internal"
	}

	body := fiber.Map{"error": kind}
	if h.mode != "release" {
		body["details"] = err.Error()
	}
	return c.Status(status).JSON(body)
}

// @Summary Historical readings for the dashboard
// @Description Most recent readings ascending, or a full calendar day when ?date= is given.
// @Produce json
// @Param date query string false "calendar date (YYYY-MM-DD)"
// @Router /api/sensor-data [get]
func (h *ReadingHandler) getSensorData(c *fiber.Ctx) error {
	q, err := query.ParseHistory(c)
	if err != nil {
		h.logger.Debug("bad history query", zap.Error(err))
		return h.errorResponse(c, err)
	}

	readings, err := h.rs.History(c.Context(), q)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(readings)
}

// @Summary Register one sensor reading (device-facing)
// @Accept json
// @Produce json
// @Router /api/leitura [post]
func (h *ReadingHandler) createReading(c *fiber.Ctx) error {
	var in ReadingInput
	if err := c.BodyParser(&in); err != nil {
		return h.errorResponse(c, commonerrors.ValidationErr("body", err.Error()))
	}

	result, err := h.rs.Ingest(c.Context(), in)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"alert":     result.Alert,
		"message":   result.Message,
		"timestamp": result.Reading.FormattedTime,
	})
}

// @Summary Register a reading and relay critical alerts (authenticated)
// @Accept json
// @Produce json
// @Router /api/alerta [post]
func (h *ReadingHandler) createAlert(c *fiber.Ctx) error {
	var in ReadingInput
	if err := c.BodyParser(&in); err != nil {
		return h.errorResponse(c, commonerrors.ValidationErr("body", err.Error()))
	}

	result, err := h.rs.IngestAndNotify(c.Context(), in)
	if err != nil {
		return h.errorResponse(c, err)
	}

	body := fiber.Map{
		"success":   true,
		"alert":     result.Alert,
		"record_id": result.Reading.ID,
		"timestamp": result.Reading.FormattedTime,
	}
	if result.RelayErr != nil {
		// the reading is committed and broadcast; only the notification failed
		body["warning"] = "alert notification was not delivered"
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// @Summary Recent readings feed (authenticated)
// @Produce json
// @Router /api/dados [get]
func (h *ReadingHandler) getRecent(c *fiber.Ctx) error {
	readings, err := h.rs.Recent(c.Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(readings)
}

// @Summary Liveness and diagnostics
// @Produce json
// @Router /api/health [get]
func (h *ReadingHandler) health(c *fiber.Ctx) error {
	status := h.rs.Health(c.Context())
	code := fiber.StatusOK
	if status.Store != "reachable" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}
