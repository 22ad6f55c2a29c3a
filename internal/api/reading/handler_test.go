package reading

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensor-monitor-server/internal/api/common/auth"
)

const testToken = "test-token"

type handlerFixture struct {
	*serviceFixture
	app *fiber.App
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	fx := &handlerFixture{
		serviceFixture: newServiceFixture(t),
		app:            fiber.New(),
	}
	Router(fx.app.Group("/api"), fx.service, auth.NewMiddleware(testToken), "debug", zap.NewNop())
	return fx
}

func (fx *handlerFixture) request(t *testing.T, method, target, body, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := fx.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func (fx *handlerFixture) requestList(t *testing.T, target, token string) (int, []map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("GET", target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := fx.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var list []map[string]interface{}
	if resp.StatusCode == fiber.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	}
	return resp.StatusCode, list
}

func TestPostLeituraWithoutHumidityTriggersAlert(t *testing.T) {
	fx := newHandlerFixture(t)

	status, body := fx.request(t, "POST", "/api/leitura",
		`{"temperature": 27.5, "device_id": "X"}`, "")

	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["alert"])
	assert.Contains(t, body["message"], "ALERT")
	assert.NotEmpty(t, body["timestamp"])

	// the stored row is immediately visible through the history endpoint
	status, rows := fx.requestList(t, "/api/sensor-data", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, rows, 1)
	assert.Equal(t, 27.5, rows[0]["temperature"])
	assert.Equal(t, true, rows[0]["alert"])
	assert.Nil(t, rows[0]["humidity"])
	assert.NotEmpty(t, rows[0]["formatted_time"])
}

func TestPostLeituraNormalReading(t *testing.T) {
	fx := newHandlerFixture(t)

	status, body := fx.request(t, "POST", "/api/leitura",
		`{"temperature": 23.0, "humidity": 70, "device_id": "X"}`, "")

	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, false, body["alert"])
	assert.Equal(t, "Reading normal", body["message"])
}

func TestPostLeituraValidation(t *testing.T) {
	fx := newHandlerFixture(t)

	for _, body := range []string{
		`{"device_id": "X"}`,
		`{"temperature": 23.0}`,
		`{"temperature": "hot", "device_id": "X"}`,
		`not json`,
	} {
		status, resp := fx.request(t, "POST", "/api/leitura", body, "")
		assert.Equal(t, fiber.StatusBadRequest, status, "body: %s", body)
		assert.Equal(t, "validation", resp["error"])
	}
	assert.Zero(t, fx.store.count(), "validation failures must not write")
}

func TestPostAlertaWithoutTokenIsRejectedWithNoSideEffects(t *testing.T) {
	fx := newHandlerFixture(t)

	status, _ := fx.request(t, "POST", "/api/alerta",
		`{"temperature": 27.5, "humidity": 96, "device_id": "X"}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = fx.request(t, "POST", "/api/alerta",
		`{"temperature": 27.5, "humidity": 96, "device_id": "X"}`, "wrong-token")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	assert.Zero(t, fx.store.count())
	assert.Empty(t, fx.hub.types())
	assert.Empty(t, fx.relay.sent())
}

func TestPostAlertaHappyPath(t *testing.T) {
	fx := newHandlerFixture(t)

	status, body := fx.request(t, "POST", "/api/alerta",
		`{"temperature": 27.5, "humidity": 96, "device_id": "X"}`, testToken)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["alert"])
	assert.Equal(t, float64(1), body["record_id"])
	assert.NotContains(t, body, "warning")
	require.Len(t, fx.relay.sent(), 1)
}

func TestPostAlertaRelayDisconnected(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.relay.connected = false

	status, body := fx.request(t, "POST", "/api/alerta",
		`{"temperature": 27.5, "humidity": 96, "device_id": "X"}`, testToken)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "relay_unavailable", body["error"])
	assert.Zero(t, fx.store.count())
}

func TestPostAlertaRelayFailureDegradesResponse(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.relay.err = assert.AnError

	status, body := fx.request(t, "POST", "/api/alerta",
		`{"temperature": 27.5, "humidity": 96, "device_id": "X"}`, testToken)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["warning"])
	assert.Equal(t, 1, fx.store.count(), "the reading stays committed")
}

func TestGetSensorDataRejectsBadDate(t *testing.T) {
	fx := newHandlerFixture(t)

	status, body := fx.request(t, "GET", "/api/sensor-data?date=yesterdayish", "", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "validation", body["error"])
}

func TestGetDadosRequiresToken(t *testing.T) {
	fx := newHandlerFixture(t)

	status, _ := fx.requestList(t, "/api/dados", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	fx.request(t, "POST", "/api/leitura", `{"temperature": 23.0, "humidity": 70, "device_id": "X"}`, "")

	status, rows := fx.requestList(t, "/api/dados", testToken)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, rows, 1)
}

func TestConcurrentPostsGetDistinctIncreasingIDs(t *testing.T) {
	fx := newHandlerFixture(t)

	done := make(chan float64, 2)
	for i := 0; i < 2; i++ {
		go func() {
			status, body := fx.request(t, "POST", "/api/alerta",
				`{"temperature": 23.0, "humidity": 70, "device_id": "X"}`, testToken)
			if assert.Equal(t, fiber.StatusOK, status) {
				id, _ := body["record_id"].(float64)
				done <- id
				return
			}
			done <- -1
		}()
	}
	first, second := <-done, <-done

	assert.NotEqual(t, first, second)
	assert.Greater(t, first, 0.0)
	assert.Greater(t, second, 0.0)
	status, rows := fx.requestList(t, "/api/sensor-data", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, rows, 2)
}

func TestHealthEndpoint(t *testing.T) {
	fx := newHandlerFixture(t)

	status, body := fx.request(t, "GET", "/api/health", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "reachable", body["store"])
	assert.NotEmpty(t, body["server_time"])
	assert.NotEmpty(t, body["timezone"])
}
