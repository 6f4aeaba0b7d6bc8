package redisstream

import (
	"fmt"
	"os"
	"time"

	"github.com/trickstertwo/xtheme"
)

// Config for the Redis Streams transport.
type Config struct {
	// Connection
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string

	// Streams and consumers
	StreamPrefix    string
	Consumer        string
	BatchSize       int
	Block           time.Duration
	AutoCreate      bool
	EphemeralGroups bool

	// Acknowledgment and trimming
	AutoDeleteOnAck bool
	DeadLetter      string
	MaxLenApprox    int64

	// Executor runs deliveries; nil runs them on the poller goroutine.
	Executor xtheme.Executor
}

// Defaults returns a Config suited to a local preview.
func Defaults() Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "xtheme"
	}
	return Config{
		Addr:            "127.0.0.1:6379",
		StreamPrefix:    "xtheme:",
		Consumer:        fmt.Sprintf("xtheme-%s-%d", hostname, os.Getpid()),
		BatchSize:       64,
		Block:           2 * time.Second,
		AutoCreate:      true,
		EphemeralGroups: true,
	}
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	if c.Consumer == "" {
		return fmt.Errorf("config: consumer required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config: batch_size must be >= 1, got %d", c.BatchSize)
	}
	if c.Block <= 0 {
		return fmt.Errorf("config: block must be > 0, got %v", c.Block)
	}
	return nil
}

// toMap converts Config to the generic map for the transport factory.
func (c Config) toMap() map[string]any {
	m := map[string]any{
		"addr":               c.Addr,
		"username":           c.Username,
		"password":           c.Password,
		"db":                 c.DB,
		"tls":                c.TLS,
		"tls_server_name":    c.TLSServerName,
		"stream_prefix":      c.StreamPrefix,
		"consumer":           c.Consumer,
		"batch_size":         c.BatchSize,
		"block":              c.Block,
		"auto_create":        c.AutoCreate,
		"ephemeral_groups":   c.EphemeralGroups,
		"auto_delete_on_ack": c.AutoDeleteOnAck,
		"dead_letter":        c.DeadLetter,
		"max_len_approx":     c.MaxLenApprox,
	}
	if c.Executor != nil {
		m["executor"] = c.Executor
	}
	return m
}

// ConfigFromMap converts a generic map to Config, starting from Defaults.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	if v, ok := m["addr"].(string); ok && v != "" {
		c.Addr = v
	}
	if v, ok := m["username"].(string); ok {
		c.Username = v
	}
	if v, ok := m["password"].(string); ok {
		c.Password = v
	}
	if v, ok := m["db"].(int); ok {
		c.DB = v
	}
	if v, ok := m["tls"].(bool); ok {
		c.TLS = v
	}
	if v, ok := m["tls_server_name"].(string); ok {
		c.TLSServerName = v
	}
	if v, ok := m["stream_prefix"].(string); ok {
		c.StreamPrefix = v
	}
	if v, ok := m["consumer"].(string); ok && v != "" {
		c.Consumer = v
	}
	if v, ok := m["batch_size"].(int); ok && v > 0 {
		c.BatchSize = v
	}
	switch v := m["block"].(type) {
	case time.Duration:
		if v > 0 {
			c.Block = v
		}
	case string:
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Block = d
		}
	}
	if v, ok := m["auto_create"].(bool); ok {
		c.AutoCreate = v
	}
	if v, ok := m["ephemeral_groups"].(bool); ok {
		c.EphemeralGroups = v
	}
	if v, ok := m["auto_delete_on_ack"].(bool); ok {
		c.AutoDeleteOnAck = v
	}
	if v, ok := m["dead_letter"].(string); ok {
		c.DeadLetter = v
	}
	if v, ok := m["max_len_approx"].(int64); ok && v > 0 {
		c.MaxLenApprox = v
	}
	if v, ok := m["executor"].(xtheme.Executor); ok {
		c.Executor = v
	}
	return c
}
