package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

var ErrPublishTimeout = errors.New("telemetry: publish timed out")

// Publisher delivers snapshots somewhere. Publish must not block for
// long; it is called from the reporter loop.
type Publisher interface {
	Publish(Snapshot) error
}

const defaultPublishTimeout = time.Second

// MQTTPublisher sends each snapshot as JSON to
// <prefix>/<group>/telemetry.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
	log     *log.Entry
}

func NewMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		prefix:  prefix,
		timeout: defaultPublishTimeout,
		log:     log.WithField("subsystem", "telemetry.mqtt"),
	}
}

// DialMQTT connects to broker (for example tcp://localhost:1883) and
// returns a publisher on it.
func DialMQTT(broker, clientID, prefix string, timeout time.Duration) (*MQTTPublisher, error) {
	entry := log.WithField("subsystem", "telemetry.mqtt").WithField("broker", broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(timeout)
	opts.OnConnect = func(mqtt.Client) {
		entry.Info("connected to broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		entry.WithError(err).Error("broker connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect %s: timed out after %v", broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, err)
	}
	return NewMQTTPublisher(client, prefix), nil
}

func (p *MQTTPublisher) Topic(group string) string {
	return p.prefix + "/" + group + "/telemetry"
}

func (p *MQTTPublisher) Publish(s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(s.Group), 0, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, p.Topic(s.Group))
	}
	return token.Error()
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
