package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/zeu5/dist-qlearning/types"
)

var ErrPublishTimeout = errors.New("mqtt publish timeout")

// MQTTSink publishes every transition as JSON on <prefix>/agent/<id>
type MQTTSink struct {
	client  mqtt.Client
	prefix  string
	qos     byte
	timeout time.Duration
}

var _ Sink = &MQTTSink{}

// NewMQTTSink connects to the broker
func NewMQTTSink(broker, clientID, prefix string, qos byte) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(5 * time.Second)

	c := mqtt.NewClient(opts)
	if t := c.Connect(); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}
	return NewMQTTSinkWithClient(c, prefix, qos), nil
}

func NewMQTTSinkWithClient(c mqtt.Client, prefix string, qos byte) *MQTTSink {
	return &MQTTSink{
		client:  c,
		prefix:  prefix,
		qos:     qos,
		timeout: 5 * time.Second,
	}
}

func (m *MQTTSink) Topic(t types.Transition) string {
	return fmt.Sprintf("%s/agent/%d", m.prefix, t.AgentID)
}

func (m *MQTTSink) Write(_ context.Context, t types.Transition) error {
	bs, err := json.Marshal(t)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.Topic(t), m.qos, false, bs)
	if !token.WaitTimeout(m.timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

func (m *MQTTSink) Close() error {
	m.client.Disconnect(250)
	return nil
}
