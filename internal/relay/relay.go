package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	commonerrors "sensor-monitor-server/internal/api/common/errors"
	"sensor-monitor-server/internal/utils"
)

// Notifier is the narrow contract the ingestion pipeline holds on the
// messaging channel.
type Notifier interface {
	IsConnected() bool
	Notify(ctx context.Context, deviceID, message string) error
}

type envConfig struct {
	BrokerHost    string        `env:"RELAY_BROKER_HOST" envDefault:"localhost"`
	BrokerPort    int           `env:"RELAY_BROKER_PORT" envDefault:"1883"`
	BrokerUser    string        `env:"RELAY_BROKER_USER"`
	BrokerPass    string        `env:"RELAY_BROKER_PASS,unset"`
	ClientID      string        `env:"RELAY_CLIENT_ID" envDefault:"sensor-monitor-relay"`
	Topic         string        `env:"RELAY_TOPIC" envDefault:"alerts/notify"`
	PublishWindow time.Duration `env:"RELAY_TIMEOUT" envDefault:"10s"`
}

func NewConfig() (*envConfig, error) {
	cfg := &envConfig{}
	if err := env.Parse(cfg, env.Options{}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MQTTRelay publishes alert notifications to a broker topic consumed by the
// phone-gateway bridge. Delivery is best effort: a publish that cannot be
// confirmed inside the configured window is reported as a relay failure, and
// the reading it belongs to stays committed.
type MQTTRelay struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ Notifier = (*MQTTRelay)(nil)

// NewMQTTRelay builds the relay client and starts connecting in the
// background. A broker that is down at boot leaves the relay in the
// disconnected state; the rest of the server keeps working.
func NewMQTTRelay(logger *zap.Logger) (*MQTTRelay, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.BrokerHost, cfg.BrokerPort)).
		SetClientID(cfg.ClientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.BrokerUser != "" {
		opts.SetUsername(cfg.BrokerUser)
		opts.SetPassword(cfg.BrokerPass)
	}

	opts.OnConnect = func(mqtt.Client) {
		logger.Info("relay broker connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("relay broker connection lost", zap.Error(err))
	}

	r := &MQTTRelay{
		client:  mqtt.NewClient(opts),
		topic:   cfg.Topic,
		timeout: cfg.PublishWindow,
		logger:  logger,
	}

	// ConnectRetry keeps trying in the background, so the returned token is
	// intentionally not waited on.
	r.client.Connect()

	return r, nil
}

func (r *MQTTRelay) IsConnected() bool {
	return r.client.IsConnectionOpen()
}

type notification struct {
	DeviceID  string `json:"device_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Notify publishes one notification at QoS 1 and waits for broker
// confirmation, bounded by both the caller's context and the relay's own
// publish window. One retry covers transient publish failures.
func (r *MQTTRelay) Notify(ctx context.Context, deviceID, message string) error {
	payload, err := json.Marshal(notification{
		DeviceID:  deviceID,
		Message:   message,
		Timestamp: utils.FormatDisplay(utils.Now()),
	})
	if err != nil {
		return commonerrors.RelayFailureErr(err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return commonerrors.RelayTimeoutErr(r.timeout.String())
		}
		lastErr = r.publish(payload)
		if lastErr == nil {
			return nil
		}
		r.logger.Warn("relay publish failed",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}

	if _, ok := lastErr.(commonerrors.RelayTimeoutError); ok {
		return lastErr
	}
	return commonerrors.RelayFailureErr(lastErr)
}

func (r *MQTTRelay) publish(payload []byte) error {
	token := r.client.Publish(r.topic, 1, false, payload)
	if !token.WaitTimeout(r.timeout) {
		return commonerrors.RelayTimeoutErr(r.timeout.String())
	}
	return token.Error()
}

// Close disconnects from the broker, allowing in-flight publishes a short
// grace period.
func (r *MQTTRelay) Close() {
	if r.client.IsConnectionOpen() {
		r.client.Disconnect(500)
	}
}
