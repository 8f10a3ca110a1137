package queue

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// MQTTConfig represents MQTT v5 broker configuration
type MQTTConfig struct {
	URL      string        // Broker URL: mqtt://, tcp://, mqtts:// or ssl://
	ClientID string        // Client identifier (default: unitmetrics-<hostname>-<random>)
	Username string        // Optional authentication
	Password string        // Optional authentication
	QoS      byte          // Delivery QoS for publish and subscribe (default: 1)
	Timeout  time.Duration // Connect timeout (default: 10s)
}

// MQTTQueue implements Queue interface on an MQTT v5 broker
type MQTTQueue struct {
	client   *paho.Client
	config   MQTTConfig
	handlers map[string]MessageHandler
	closed   bool
	logger   *logging.Logger
	mu       sync.RWMutex
}

// newMQTTQueue dials the broker and opens an MQTT session
func newMQTTQueue(cfg MQTTConfig, logger *logging.Logger) (*MQTTQueue, error) {
	if logger == nil {
		logger = logging.Global()
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid MQTT QoS: %d", cfg.QoS)
	}
	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("unitmetrics-%s-%s", hostname, uuid.NewString()[:8])
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	conn, err := dialMQTT(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}

	q := &MQTTQueue{
		config:   cfg,
		handlers: make(map[string]MessageHandler),
		logger:   logger,
	}

	q.client = paho.NewClient(paho.ClientConfig{
		ClientID: cfg.ClientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			q.route,
		},
		OnClientError: func(err error) {
			logger.Error("MQTT client error", "error", err)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			logger.Warn("MQTT server disconnected", "reason_code", int(d.ReasonCode))
		},
	})

	connect := &paho.Connect{
		ClientID:     cfg.ClientID,
		CleanStart:   true,
		KeepAlive:    30,
		Username:     cfg.Username,
		UsernameFlag: cfg.Username != "",
		Password:     []byte(cfg.Password),
		PasswordFlag: cfg.Password != "",
	}

	ack, err := q.client.Connect(ctx, connect)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	if ack.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("MQTT broker refused connection: reason code %d", ack.ReasonCode)
	}

	logger.Info("Connected to MQTT broker", "url", cfg.URL, "client_id", cfg.ClientID)
	return q, nil
}

// dialMQTT opens the network connection for a broker URL
func dialMQTT(ctx context.Context, rawURL string) (net.Conn, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "mqtt://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL %q: %w", rawURL, err)
	}

	host := u.Host
	var useTLS bool
	switch u.Scheme {
	case "mqtt", "tcp":
		if u.Port() == "" {
			host = net.JoinHostPort(u.Hostname(), "1883")
		}
	case "mqtts", "ssl", "tls":
		useTLS = true
		if u.Port() == "" {
			host = net.JoinHostPort(u.Hostname(), "8883")
		}
	default:
		return nil, fmt.Errorf("unsupported MQTT scheme: %s", u.Scheme)
	}

	if useTLS {
		d := tls.Dialer{Config: &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return nil, fmt.Errorf("failed to dial MQTT broker %s: %w", host, err)
		}
		return conn, nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("failed to dial MQTT broker %s: %w", host, err)
	}
	return conn, nil
}

// route hands an incoming publish to the subscription whose filter matches.
// MQTT has no negative acknowledgment, so a failing handler is retried in
// place before the message is dropped.
func (q *MQTTQueue) route(pr paho.PublishReceived) (bool, error) {
	topic := pr.Packet.Topic

	q.mu.RLock()
	var handler MessageHandler
	for filter, h := range q.handlers {
		if topicMatches(filter, topic) {
			handler = h
			break
		}
	}
	q.mu.RUnlock()

	if handler == nil {
		return false, nil
	}

	var err error
	for attempt := 1; attempt <= utils.DefaultMaxRetries; attempt++ {
		if err = handler(pr.Packet.Payload); err == nil {
			return true, nil
		}
	}
	q.logger.Error("Dropping MQTT message after retries",
		"topic", topic,
		"attempts", utils.DefaultMaxRetries,
		"error", err)
	return true, nil
}

// Publish publishes a message to a topic at the configured QoS
func (q *MQTTQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	_, err := q.client.Publish(ctx, &paho.Publish{
		Topic:   subject,
		QoS:     q.config.QoS,
		Payload: data,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to MQTT topic %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes each message in turn
func (q *MQTTQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			if ctx.Err() != nil {
				return successCount, err
			}
			q.logger.Warn("Failed to publish batch message", "topic", msg.Subject, "error", err)
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Subscribe subscribes to a topic filter
func (q *MQTTQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, exists := q.handlers[subject]; exists {
		q.mu.Unlock()
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}
	q.handlers[subject] = handler
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), q.config.Timeout)
	defer cancel()

	suback, err := q.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic: subject,
			QoS:   q.config.QoS,
		}},
	})
	if err == nil && len(suback.Reasons) > 0 && suback.Reasons[0] >= 0x80 {
		err = fmt.Errorf("reason code %d", suback.Reasons[0])
	}
	if err != nil {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
		return fmt.Errorf("failed to subscribe to MQTT topic %s: %w", subject, err)
	}

	return nil
}

// Unsubscribe unsubscribes from a topic filter
func (q *MQTTQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	if _, exists := q.handlers[subject]; !exists {
		q.mu.Unlock()
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	delete(q.handlers, subject)
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), q.config.Timeout)
	defer cancel()

	if _, err := q.client.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{subject}}); err != nil {
		return fmt.Errorf("failed to unsubscribe from MQTT topic %s: %w", subject, err)
	}
	return nil
}

// Close disconnects from the broker
func (q *MQTTQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.handlers = make(map[string]MessageHandler)
	q.mu.Unlock()

	return q.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}

// topicMatches reports whether an MQTT topic filter matches a topic name.
// '+' matches exactly one level and a trailing '#' matches the rest.
func topicMatches(filter, topic string) bool {
	if filter == topic {
		return true
	}

	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, level := range fl {
		if level == "#" {
			return i == len(fl)-1
		}
		if i >= len(tl) {
			return false
		}
		if level != "+" && level != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
