package nats

/*
Settings that may (not must) appear in the storage config section:

servers = "nats://localhost:4222"
host = "localhost"
port = "4222"
subject = "trackd.fixes"
*/

import (
	"fmt"

	"github.com/locatr/trackd/cli/trackd/track"
	natsgo "github.com/nats-io/nats.go"
)

const defaultSubject = "trackd.fixes"

type Connector struct {
	conn    *natsgo.Conn
	subject string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("invalid configuration reference")
	}

	url := cfg["servers"]
	if url == "" {
		url = fmt.Sprintf("nats://%s:%s", cfg["host"], cfg["port"])
	}

	c.subject = cfg["subject"]
	if c.subject == "" {
		c.subject = defaultSubject
	}

	var err error
	if c.conn, err = natsgo.Connect(url, natsgo.Name("trackd")); err != nil {
		return fmt.Errorf("failed to connect to NATS: %v", err)
	}
	return nil
}

func (c *Connector) Save(fix track.Fix) error {
	payload, err := fix.ToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize fix: %v", err)
	}
	if err := c.conn.Publish(c.subject, payload); err != nil {
		return fmt.Errorf("failed to publish fix: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	c.conn.Close()
	return nil
}
