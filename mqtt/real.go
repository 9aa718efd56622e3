package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client      paho.Client
	statusTopic string
}

// NewRealPublisher connects to broker and announces "online" on the status
// topic. The broker publishes "offline" there if we drop off.
func NewRealPublisher(broker, clientID, statusTopic string) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(statusTopic, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			mlog().Info().Str("broker", broker).Msg("Connected to MQTT broker")
			c.Publish(statusTopic, 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			mlog().Warn().Err(err).Msg("Lost MQTT connection")
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client:      client,
		statusTopic: statusTopic,
	}, nil
}

func (p *RealPublisher) Publish(topic string, payload []byte, retained bool) error {
	token := p.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close marks us offline and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Publish(p.statusTopic, 1, true, "offline").WaitTimeout(time.Second)
	p.client.Disconnect(1000)
	return nil
}
