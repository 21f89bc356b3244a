package mysql

/*
Settings that may (not must) appear in the storage config section:

host = "localhost"
port = "3306"
user = "tracker"
password = "tracker"
database = "tracker"
table = "location_data"
*/

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/locatr/trackd/cli/trackd/track"
)

const defaultTable = "location_data"

type Connector struct {
	connection *sql.DB
	config     map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	var err error
	if cfg == nil {
		return fmt.Errorf("invalid configuration reference")
	}
	c.config = cfg
	connStr := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s",
		c.config["user"], c.config["password"], c.config["host"], c.config["port"], c.config["database"])
	if c.connection, err = sql.Open("mysql", connStr); err != nil {
		return fmt.Errorf("failed to connect to MySQL: %v", err)
	}

	if err = c.connection.Ping(); err != nil {
		return fmt.Errorf("MySQL is unreachable: %v", err)
	}
	return err
}

func (c *Connector) Save(fix track.Fix) error {
	table := c.config["table"]
	if table == "" {
		table = defaultTable
	}
	insertQuery := fmt.Sprintf(
		"INSERT INTO %s (device_id, latitude, longitude, timestamp_value) VALUES (?, ?, ?, ?)",
		table)
	if _, err := c.connection.Exec(insertQuery, fix.DeviceID, fix.Latitude, fix.Longitude, fix.Timestamp); err != nil {
		return fmt.Errorf("failed to insert fix: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.connection.Close()
}
