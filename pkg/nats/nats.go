package nats

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Config is read with envconfig under the NATS_ prefix. Publishing is disabled when URL is empty.
type Config struct {
	URL         string `split_words:"true"`
	Subject     string `split_words:"true" default:"callcenter.turns.completed"`
	DialTimeout int    `split_words:"true" default:"5"`
}

func (c *Config) Enabled() bool {
	return c.URL != ""
}

func (c *Config) New(name string) (*nats.Conn, error) {
	return nats.Connect(c.URL,
		nats.Name(name),
		nats.Timeout(time.Duration(c.DialTimeout)*time.Second),
		nats.MaxReconnects(-1),
	)
}
