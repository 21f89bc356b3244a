package postgresql

/*
Settings that may (not must) appear in the storage config section:

host = "localhost"
port = "5432"
user = "postgres"
password = "postgres"
database = "tracker"
table = "location_data"
sslmode = "disable"
*/

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
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
	connStr := fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
		c.config["database"], c.config["host"], c.config["port"], c.config["user"], c.config["password"], c.config["sslmode"])
	if c.connection, err = sql.Open("postgres", connStr); err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	if err = c.connection.Ping(); err != nil {
		return fmt.Errorf("PostgreSQL is unreachable: %v", err)
	}
	return err
}

func (c *Connector) Save(fix track.Fix) error {
	insertQuery := fmt.Sprintf(
		"INSERT INTO %s (device_id, latitude, longitude, timestamp_value) VALUES ($1, $2, $3, $4)",
		c.table())
	if _, err := c.connection.Exec(insertQuery, fix.DeviceID, fix.Latitude, fix.Longitude, fix.Timestamp); err != nil {
		return fmt.Errorf("failed to insert fix: %v", err)
	}
	return nil
}

// Load rebuilds per-device trails from the most recent rows, oldest
// first within each device.
func (c *Connector) Load(trailCap int) (map[string][]track.Fix, error) {
	query := fmt.Sprintf(`SELECT device_id, latitude, longitude, timestamp_value FROM (
		SELECT device_id, latitude, longitude, timestamp_value,
			row_number() OVER (PARTITION BY device_id ORDER BY timestamp_value DESC) AS rn
		FROM %s) ranked
		WHERE rn <= $1
		ORDER BY device_id, timestamp_value`, c.table())

	rows, err := c.connection.Query(query, trailCap)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixes: %v", err)
	}
	defer rows.Close()

	state := make(map[string][]track.Fix)
	for rows.Next() {
		var fix track.Fix
		if err := rows.Scan(&fix.DeviceID, &fix.Latitude, &fix.Longitude, &fix.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan fix: %v", err)
		}
		state[fix.DeviceID] = append(state[fix.DeviceID], fix)
	}
	return state, rows.Err()
}

func (c *Connector) Close() error {
	return c.connection.Close()
}

func (c *Connector) table() string {
	if t := c.config["table"]; t != "" {
		return t
	}
	return defaultTable
}
