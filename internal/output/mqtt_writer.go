package output

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/track"
)

const mqttPublishTimeout = 5 * time.Second

// mqttClient is the subset of mqtt.Client the writer uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTWriter publishes every row as JSON on <topic>/<device_id>.
type MQTTWriter struct {
	ctx    context.Context
	client mqttClient
	topic  string
	runID  string
}

// NewMQTTWriter connects to broker (e.g. tcp://localhost:1883).
func NewMQTTWriter(ctx context.Context, broker, clientID, topic, runID string) (*MQTTWriter, error) {
	if clientID == "" {
		clientID = "cruisetrack"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, eris.Wrapf(token.Error(), "output: mqtt connect %s", broker)
	}
	logging.FromContext(ctx).Info("mqtt sink connected", "broker", broker, "topic", topic)
	return newMQTTWriter(ctx, client, topic, runID), nil
}

func newMQTTWriter(ctx context.Context, client mqttClient, topic, runID string) *MQTTWriter {
	if topic == "" {
		topic = "cruisetrack/position"
	}
	return &MQTTWriter{ctx: ctx, client: client, topic: topic, runID: runID}
}

// Topic returns the topic a row for device is published on.
func (w *MQTTWriter) Topic(device string) string { return w.topic + "/" + device }

// Write publishes one row with QoS 0.
func (w *MQTTWriter) Write(c track.Combined) error {
	payload, err := json.Marshal(toJSON(c, w.runID))
	if err != nil {
		return eris.Wrap(err, "output: mqtt payload")
	}
	token := w.client.Publish(w.Topic(c.DeviceID), 0, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return eris.Errorf("output: mqtt publish to %s timed out", w.Topic(c.DeviceID))
	}
	if err := token.Error(); err != nil {
		logging.FromContext(w.ctx).Error("mqtt publish failed", "device_id", c.DeviceID, "err", err)
		return eris.Wrap(err, "output: mqtt publish")
	}
	return nil
}

// Close disconnects from the broker.
func (w *MQTTWriter) Close() error {
	w.client.Disconnect(250)
	return nil
}
