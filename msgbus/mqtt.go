// SPDX-License-Identifier: EPL-2.0

package msgbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/ik5/audacq/writer"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// MQTTOptions configures DialMQTT.
type MQTTOptions struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string // generated when empty
	QoS      byte
	Timeout  time.Duration
	Logger   *zap.Logger
}

// client is the part of mqtt.Client the bus uses.
type client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// wireMessage is the JSON payload on the log topic.
type wireMessage struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Text   string    `json:"text"`
}

// MQTT publishes log messages through a broker and queues the messages it
// receives on its server's log topic in a local Bus.
type MQTT struct {
	*Bus

	client  client
	qos     byte
	timeout time.Duration
	log     *zap.Logger
}

// DialMQTT connects to the broker and subscribes to the log topic of
// server. The subscription is renewed after reconnects.
func DialMQTT(ctx context.Context, server string, opts MQTTOptions) (*MQTT, error) {
	if opts.ClientID == "" {
		opts.ClientID = "audacq-" + uuid.NewString()[:8]
	}

	m := newMQTT(nil, server, opts)

	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(m.timeout).
		SetMaxReconnectInterval(30 * time.Second)
	co.SetOnConnectHandler(func(mqtt.Client) {
		m.log.Info("mqtt connected", zap.String("broker", opts.Broker))
		m.client.Subscribe(m.Topic(), m.qos, m.receive)
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.log.Warn("mqtt connection lost", zap.String("broker", opts.Broker), zap.Error(err))
	})
	m.client = mqtt.NewClient(co)

	if err := m.wait(ctx, m.client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	if err := m.wait(ctx, m.client.Subscribe(m.Topic(), m.qos, m.receive)); err != nil {
		m.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt subscribe %s: %w", m.Topic(), err)
	}
	return m, nil
}

func newMQTT(c client, server string, opts MQTTOptions) *MQTT {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTT{
		Bus:     NewBus(server),
		client:  c,
		qos:     opts.QoS,
		timeout: opts.Timeout,
		log:     log.Named("msgbus").With(zap.String("server", server)),
	}
}

func (m *MQTT) wait(ctx context.Context, tok mqtt.Token) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Publish sends a message to the server's log topic.
func (m *MQTT) Publish(source, text string) error {
	payload, err := json.Marshal(wireMessage{Source: source, Time: time.Now().UTC(), Text: text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := m.wait(context.Background(), m.client.Publish(m.Topic(), m.qos, false, payload)); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func (m *MQTT) receive(_ mqtt.Client, msg mqtt.Message) {
	var w wireMessage
	if err := json.Unmarshal(msg.Payload(), &w); err != nil {
		m.log.Warn("dropping malformed log message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}
	if w.Time.IsZero() {
		w.Time = time.Now()
	}
	if err := m.Bus.publish(writer.Message{Source: w.Source, Time: w.Time, Text: w.Text}); err != nil {
		m.log.Debug("log message after close", zap.Error(err))
	}
}

// Close disconnects from the broker and closes the local queue.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return m.Bus.Close()
}
