package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/metrics"
	"github.com/usazehan/healthcare-admin-dashboard/models"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

// Collector ingests prediction events published on an MQTT topic.
type Collector struct {
	ingestor *services.Ingestor
	topic    string
	log      *zap.Logger
}

func New(ingestor *services.Ingestor, topic string, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{ingestor: ingestor, topic: topic, log: log}
}

// ClientOptions builds paho options for url with auto-reconnect. onConnect
// runs after every (re)connect.
func ClientOptions(url, clientPrefix string, log *zap.Logger, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(url)
	opts.SetClientID(clientPrefix + "-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.OnConnect = onConnect
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	}
	return opts
}

// Connect dials the broker and waits up to timeout for the first connection.
func Connect(opts *mqtt.ClientOptions, timeout time.Duration) (mqtt.Client, error) {
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect timed out after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}

// Run subscribes and ingests until ctx is cancelled.
func (c *Collector) Run(ctx context.Context, url string) error {
	opts := ClientOptions(url, "analytics-collector", c.log, func(client mqtt.Client) {
		token := client.Subscribe(c.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			c.ProcessMessage(ctx, msg.Payload())
		})
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Error("mqtt subscribe failed", zap.String("topic", c.topic), zap.Error(err))
			return
		}
		c.log.Info("collector subscribed", zap.String("topic", c.topic))
	})

	client, err := Connect(opts, 10*time.Second)
	if err != nil {
		return err
	}
	c.log.Info("collector running", zap.String("mqtt", url))

	<-ctx.Done()
	c.log.Info("collector shutting down")
	client.Disconnect(250)
	return nil
}

// ProcessMessage ingests one raw payload. Bad payloads are logged and counted,
// never retried.
func (c *Collector) ProcessMessage(ctx context.Context, raw []byte) bool {
	var payload models.PredictionEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		metrics.EventsRejected.WithLabelValues("mqtt").Inc()
		c.log.Warn("invalid mqtt payload", zap.Error(err))
		return false
	}
	if _, err := c.ingestor.Ingest(ctx, "mqtt", payload); err != nil {
		c.log.Warn("mqtt event rejected", zap.String("appointment_id", payload.AppointmentID), zap.Error(err))
		return false
	}
	return true
}

// PublishTopic turns a subscription pattern such as "healthcare/predictions/+"
// into a concrete topic for source.
func PublishTopic(pattern, source string) string {
	topic := strings.Replace(pattern, "+", source, 1)
	return strings.TrimSuffix(strings.TrimSuffix(topic, "#"), "/")
}
