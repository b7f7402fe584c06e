package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/rssimon/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize    = 100
	defaultFlushSeconds = 10
)

// Client records RSSI readings in an InfluxDB v2 bucket.
//
// Points are buffered and sent in batches by the client library, so
// WriteRSSI never waits on the network. Failed batches are reported to the
// callback installed with SetOnError. Safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	mu      sync.RWMutex
	open    bool
	onError func(err error)
}

// Connect pings the server at cfg.URL and returns a client writing to
// cfg.Org/cfg.Bucket.
//
// Returns ErrDisabled when cfg.Enabled is false, and an error wrapping
// ErrConnectionFailed when the server cannot be reached.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize, flushMillis := batchSettings(cfg)
	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize).
		SetFlushInterval(flushMillis)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
		open:     true,
	}
	go c.forwardErrors(c.writeAPI.Errors())

	return c, nil
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// batchSettings returns the batch size and the flush interval in
// milliseconds. Non-positive config values use the defaults.
func batchSettings(cfg config.InfluxDBConfig) (batchSize, flushMillis uint) {
	batchSize, flushSeconds := uint(defaultBatchSize), uint(defaultFlushSeconds)
	if cfg.BatchSize > 0 {
		batchSize = uint(cfg.BatchSize)
	}
	if cfg.FlushInterval > 0 {
		flushSeconds = uint(cfg.FlushInterval)
	}
	return batchSize, flushSeconds * uint(time.Second/time.Millisecond)
}

// forwardErrors runs until the write API closes its error channel.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		onError := c.onError
		c.mu.RUnlock()

		if onError != nil {
			onError(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetOnError installs the callback for failed batch writes.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// IsConnected reports whether the client is open. It does not contact the
// server; HealthCheck does.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush sends buffered readings now. No-op once closed.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}

// Close sends buffered readings and releases the client.
// Safe to call on a nil client and more than once.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	if wasOpen {
		c.writeAPI.Flush()
		c.client.Close()
	}
	return nil
}
