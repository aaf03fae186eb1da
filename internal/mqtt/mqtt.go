// Package mqtt subscribes to the three Frigate topic families and feeds
// normalized payloads into the bus. It carries over the teacher's
// mqtt_adapter.go connection conventions (client id, keepalive, auto
// reconnect, OnConnect re-subscribe, OnConnectionLost logging) and drops
// everything specific to zigbee2mqtt and virtual devices, which have no
// home in this daemon.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/alufers/frigate-ingestor/internal/bus"
	"github.com/alufers/frigate-ingestor/internal/normalize"
)

const (
	connectTimeout = 10 * time.Second
	subTimeout     = 5 * time.Second
)

// topicFilters are the three exact filter strings spec.md §4.1 specifies.
// Each is subscribed independently (not collapsed into one "frigate/#"
// wildcard) so a per-filter subscribe failure is individually observable.
var topicFilters = []string{
	"frigate/events/#",
	"frigate/reviews/#",
	"frigate/available/#",
}

// Options configures Subscriber.
type Options struct {
	BrokerURL string
	Username  string
	Password  string
	ClientID  string // optional; a unique id is generated if empty
}

// dropCounter is the subset of internal/metrics.Collector the subscriber
// needs to report messages dropped before ever reaching the bus (kept as
// an interface here so this package doesn't import internal/metrics).
type dropCounter interface {
	IncDropped(kind string)
}

// Subscriber owns the paho client and routes decoded messages to the bus.
type Subscriber struct {
	opts    Options
	bus     *bus.Bus
	logger  *log.Logger
	client  mqtt.Client
	metrics dropCounter
}

// New constructs a Subscriber. Call Start to connect.
func New(opts Options, b *bus.Bus, logger *log.Logger) *Subscriber {
	if logger == nil {
		logger = log.Default()
	}
	return &Subscriber{opts: opts, bus: b, logger: logger}
}

// SetMetrics attaches a drop counter, polled whenever handleMessage
// discards a payload before it ever reaches the bus (undecodable JSON, an
// unrecognized topic, or a normalizer rejection). Optional; nil-safe.
func (s *Subscriber) SetMetrics(m dropCounter) {
	s.metrics = m
}

// Start connects to the broker and subscribes to the three filters in
// topicFilters, returning only once connect AND every subscription
// acknowledgement has arrived (or failing if either does not), per
// spec.md §4.1's contract: "returns only after subscription
// acknowledgements arrive (or fails if any topic filter rejects)". The
// same three filters are re-subscribed from OnConnect on every
// reconnect; that path logs rather than returning an error since there's
// no caller left to return to by then.
func (s *Subscriber) Start() error {
	clientID := s.opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("frigate-ingestor-%d", time.Now().UnixNano())
	}

	broker := s.opts.BrokerURL
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetKeepAlive(30 * time.Second).
		SetConnectTimeout(8 * time.Second).
		SetOrderMatters(false)

	if s.opts.Username != "" {
		opts.SetUsername(s.opts.Username)
	}
	if s.opts.Password != "" {
		opts.SetPassword(s.opts.Password)
	}

	opts.OnConnect = func(c mqtt.Client) {
		s.logger.Printf("[mqtt] connected to %s", broker)
		if err := s.subscribeAll(c); err != nil {
			s.logger.Printf("[mqtt] re-subscribe after connect failed: %v", err)
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		s.logger.Printf("[mqtt] connection lost: %v", err)
	}

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("mqtt_unreachable: connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt_unreachable: %w", err)
	}

	if err := s.subscribeAll(s.client); err != nil {
		return fmt.Errorf("mqtt_unreachable: %w", err)
	}
	return nil
}

// subscribeAll issues one Subscribe call per entry in topicFilters and
// waits for every acknowledgement, returning the first failure (timeout
// or broker-rejected filter) encountered.
func (s *Subscriber) subscribeAll(c mqtt.Client) error {
	for _, filter := range topicFilters {
		token := c.Subscribe(filter, 0, s.handleMessage)
		if !token.WaitTimeout(subTimeout) {
			return fmt.Errorf("subscription timeout for %s", filter)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", filter, err)
		}
	}
	return nil
}

// handleMessage decodes the payload, normalizes it against the topic, and
// publishes the result to the bus. Per spec.md §4.1, a payload that is not
// a JSON object is wrapped as a bare string (the availability topic can
// legitimately carry "online"/"offline" with no JSON envelope at all)
// before normalization is attempted; a body that starts with '{' but does
// not decode is dropped as undecodable.
func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	kind := topicKind(topic)

	payload, err := decodePayload(msg.Payload())
	if err != nil {
		s.logger.Printf("[mqtt] dropping undecodable payload on %s: %v", topic, err)
		s.incDropped(kind)
		return
	}

	normalized := normalize.Normalize(payload, topic)
	if normalized == nil {
		if kind == "" {
			s.logger.Printf("[mqtt] dropping message on unrecognized topic %s", topic)
		} else {
			s.logger.Printf("[mqtt] dropping invalid %s payload on %s", kind, topic)
		}
		s.incDropped(kind)
		return
	}

	ctx := context.Background()
	switch v := normalized.(type) {
	case *normalize.NormalizedEvent:
		s.bus.PublishEvent(ctx, v)
	case *normalize.NormalizedReview:
		s.bus.PublishReview(ctx, v)
	case *normalize.NormalizedAvailable:
		s.bus.PublishAvailable(ctx, v)
	}
}

// topicKind maps a topic to its metrics kind label, or "" if it matches
// none of the three subscribed filters.
func topicKind(topic string) string {
	switch normalize.ParseTopic(topic).Filter {
	case normalize.FilterEvents:
		return "event"
	case normalize.FilterReviews:
		return "review"
	case normalize.FilterAvailable:
		return "available"
	default:
		return ""
	}
}

func (s *Subscriber) incDropped(kind string) {
	if s.metrics == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	s.metrics.IncDropped(kind)
}

// Stop disconnects the client, allowing in-flight QoS 0 deliveries to
// drain for up to 250 milliseconds.
func (s *Subscriber) Stop() {
	if s.client != nil && s.client.IsConnectionOpen() {
		s.client.Disconnect(250)
		s.logger.Printf("[mqtt] disconnected")
	}
}

// IsConnected reports whether the underlying client currently has an open
// connection.
func (s *Subscriber) IsConnected() bool {
	return s.client != nil && s.client.IsConnectionOpen()
}
