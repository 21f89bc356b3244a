package rabbitmq

/*
Settings that may (not must) appear in the storage config section:

host = "localhost"
port = "5672"
user = "guest"
password = "guest"
exchange = "trackd"
*/

import (
	"fmt"

	"github.com/locatr/trackd/cli/trackd/track"
	"github.com/streadway/amqp"
)

type Connector struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("invalid configuration reference")
	}

	var err error
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg["user"], cfg["password"], cfg["host"], cfg["port"])
	if c.conn, err = amqp.Dial(url); err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %v", err)
	}

	if c.channel, err = c.conn.Channel(); err != nil {
		return fmt.Errorf("failed to open channel: %v", err)
	}

	c.exchange = cfg["exchange"]
	if c.exchange == "" {
		c.exchange = "trackd"
	}
	if err = c.channel.ExchangeDeclare(c.exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %v", err)
	}
	return nil
}

func (c *Connector) Save(fix track.Fix) error {
	payload, err := fix.ToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize fix: %v", err)
	}

	err = c.channel.Publish(c.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish fix: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}
