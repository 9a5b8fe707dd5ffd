// Package telemetry records door state and moves to InfluxDB.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"coopdoor/door"
	"coopdoor/logging"
	"coopdoor/protocol"
)

// Sentinel errors for telemetry setup.
var (
	// ErrDisabled indicates telemetry is disabled in config.
	ErrDisabled = errors.New("telemetry: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultBatchSize      = 20
	defaultFlushSeconds   = 10

	measurementStatus = "door_status"
	measurementMove   = "door_move"
)

// Config holds InfluxDB connection settings.
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// Client writes door telemetry through the non-blocking write API.
// All methods are safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	log      *logging.Logger

	mu        sync.RWMutex
	connected bool
}

// Connect creates the client and verifies the server with a ping.
func Connect(cfg Config, log *logging.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushSeconds
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flush)*1000))

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		log:       logging.OrDiscard(log).With("component", "telemetry"),
		connected: true,
	}
	go c.handleWriteErrors(c.writeAPI.Errors())
	return c, nil
}

func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.log.Warn("telemetry write failed", "error", err)
	}
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// RecordStatus writes one status snapshot.
func (c *Client) RecordStatus(s protocol.Status) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statusPoint(s, time.Now()))
}

// RecordMove writes one completed move. automatic distinguishes poll
// decisions from remote commands.
func (c *Client) RecordMove(id byte, dir door.Direction, automatic bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(movePoint(id, dir, automatic, time.Now()))
}

// Close flushes pending points and closes the client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

func statusPoint(s protocol.Status, ts time.Time) *write.Point {
	return write.NewPoint(measurementStatus,
		map[string]string{
			"door_id": strconv.Itoa(int(s.ID)),
		},
		map[string]interface{}{
			"state":     int(s.State),
			"position":  int(s.Position),
			"top":       int(s.TopPosition),
			"light":     int(s.Light),
			"open_min":  s.OpenMinute,
			"close_min": s.CloseMinute,
		},
		ts)
}

func movePoint(id byte, dir door.Direction, automatic bool, ts time.Time) *write.Point {
	source := "command"
	if automatic {
		source = "automation"
	}
	return write.NewPoint(measurementMove,
		map[string]string{
			"door_id":   strconv.Itoa(int(id)),
			"direction": dir.String(),
			"source":    source,
		},
		map[string]interface{}{
			"count": 1,
		},
		ts)
}
