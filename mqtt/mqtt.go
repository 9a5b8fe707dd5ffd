// Package mqtt carries door commands and pushed messages over an MQTT
// broker.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"coopdoor/logging"
)

// Topic suffixes under the client's base topic.
const (
	topicCommand = "command"
	topicEvent   = "event"
	topicStatus  = "status"
	topicReply   = "reply"
)

const (
	plainPort     = 1883
	tlsPort       = 8883
	keepAlive     = time.Minute
	quiesceMillis = 250
)

// Config holds MQTT connection settings. An empty Host disables the client.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	BaseTopic  string `yaml:"base_topic"` // default coopdoor/<client_id>
}

// Handlers are the link callbacks. Any of them may be nil.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnMessage    func(topic string, payload []byte)
}

// Client is the door's broker link. A disabled Client accepts every call
// and sends nothing.
type Client struct {
	conn paho.Client
	base string
	h    Handlers
	log  *logging.Logger
}

// New builds a client for cfg. Nothing is dialed until Connect.
func New(cfg Config, clientID string, h Handlers, log *logging.Logger) (*Client, error) {
	c := &Client{
		base: strings.TrimSuffix(cfg.BaseTopic, "/"),
		h:    h,
		log:  logging.OrDiscard(log).With("component", "mqtt"),
	}
	if c.base == "" {
		c.base = "coopdoor/" + clientID
	}
	if cfg.Host == "" {
		c.log.Info("broker link disabled, no host")
		return c, nil
	}

	url, tlsCfg, err := brokerURL(cfg)
	if err != nil {
		return nil, err
	}
	c.log.Info("broker configured", "broker", url, "tls", tlsCfg != nil)

	opts := paho.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(keepAlive).
		SetWill(c.Topic(topicEvent), fmt.Sprintf("(%s)-offline", clientID), 0, false).
		SetOnConnectHandler(func(paho.Client) {
			c.log.Info("broker link up")
			c.connected()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warn("broker link lost", "error", err)
			if c.h.OnDisconnect != nil {
				c.h.OnDisconnect()
			}
		}).
		SetDefaultPublishHandler(func(_ paho.Client, m paho.Message) {
			if c.h.OnMessage != nil {
				c.h.OnMessage(m.Topic(), m.Payload())
			}
		})
	if tlsCfg != nil {
		opts.SetTLSConfig(tlsCfg)
	}
	c.conn = paho.NewClient(opts)

	lh := c.log.Handler()
	paho.ERROR = slog.NewLogLogger(lh, slog.LevelError)
	paho.CRITICAL = slog.NewLogLogger(lh, slog.LevelError)
	paho.WARN = slog.NewLogLogger(lh, slog.LevelWarn)
	return c, nil
}

// brokerURL picks the scheme and port for cfg. Any certificate setting
// selects ssl; the returned tls.Config is nil for plain tcp.
func brokerURL(cfg Config) (string, *tls.Config, error) {
	if cfg.CACert == "" && cfg.ClientCert == "" {
		port := cfg.Port
		if port == 0 {
			port = plainPort
		}
		return fmt.Sprintf("tcp://%s:%d", cfg.Host, port), nil, nil
	}

	port := cfg.Port
	if port == 0 {
		port = tlsPort
	}
	tlsCfg := &tls.Config{}
	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return "", nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return "", nil, errors.New("CA cert: no certificates found")
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		pair, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return "", nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{pair}
	}
	return fmt.Sprintf("ssl://%s:%d", cfg.Host, port), tlsCfg, nil
}

func (c *Client) connected() {
	if c.h.OnConnect != nil {
		c.h.OnConnect()
	}
}

// Topic returns the full topic for suffix under the base topic.
func (c *Client) Topic(suffix string) string {
	return c.base + "/" + suffix
}

// CommandTopic is the topic command packets arrive on.
func (c *Client) CommandTopic() string {
	return c.Topic(topicCommand)
}

// IsEnabled reports whether a broker host is configured.
func (c *Client) IsEnabled() bool {
	return c.conn != nil
}

// Connect dials the broker and waits for the first session. A disabled
// client reports itself connected at once so the indicator settles.
func (c *Client) Connect() error {
	if c.conn == nil {
		c.connected()
		return nil
	}
	tok := c.conn.Connect()
	if tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("connect: %w", tok.Error())
	}
	return nil
}

// Disconnect closes the broker session.
func (c *Client) Disconnect() {
	if c.conn != nil {
		c.conn.Disconnect(quiesceMillis)
	}
}

// Subscribe registers for topic at QoS 0.
func (c *Client) Subscribe(topic string) error {
	if c.conn == nil {
		return nil
	}
	tok := c.conn.Subscribe(topic, 0, nil)
	if tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, tok.Error())
	}
	return nil
}

// Publish sends payload on topic without waiting for delivery.
func (c *Client) Publish(topic, payload string) {
	if c.conn != nil {
		c.conn.Publish(topic, 0, false, payload)
	}
}

// Notify publishes a pushed message on the event topic.
func (c *Client) Notify(msg string) {
	c.Publish(c.Topic(topicEvent), msg)
}

// Reply publishes a command answer and the status line that follows it.
func (c *Client) Reply(reply, status string) {
	if reply != "" {
		c.Publish(c.Topic(topicReply), reply)
	}
	if status != "" {
		c.Publish(c.Topic(topicStatus), status)
	}
}
