package redis

/*
Settings that may (not must) appear in the storage config section:

host = "localhost"
port = "6379"
password = ""
db = "0"
key_prefix = "trackd"
trail_cap = "500"
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	goredis "github.com/go-redis/redis/v8"
	"github.com/locatr/trackd/cli/trackd/track"
)

const (
	defaultKeyPrefix = "trackd"
	defaultTrailCap  = 500
)

type Connector struct {
	client   *goredis.Client
	config   map[string]string
	prefix   string
	trailCap int
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("invalid configuration reference")
	}
	c.config = cfg

	db := 0
	if dbStr := cfg["db"]; dbStr != "" {
		var err error
		if db, err = strconv.Atoi(dbStr); err != nil {
			return fmt.Errorf("failed to parse db number: %v", err)
		}
	}

	c.prefix = cfg["key_prefix"]
	if c.prefix == "" {
		c.prefix = defaultKeyPrefix
	}
	c.trailCap = defaultTrailCap
	if capStr := cfg["trail_cap"]; capStr != "" {
		var err error
		if c.trailCap, err = strconv.Atoi(capStr); err != nil {
			return fmt.Errorf("failed to parse trail_cap: %v", err)
		}
	}

	c.client = goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg["host"], cfg["port"]),
		Password: cfg["password"],
		DB:       db,
	})

	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("Redis is unreachable: %v", err)
	}
	return nil
}

// Save keeps a latest hash and a capped trail list per device, plus a
// device index set for Load.
func (c *Connector) Save(fix track.Fix) error {
	payload, err := fix.ToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize fix: %v", err)
	}

	ctx := context.Background()
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.latestKey(fix.DeviceID),
		"latitude", fix.Latitude,
		"longitude", fix.Longitude,
		"timestamp_value", fix.Timestamp,
	)
	pipe.RPush(ctx, c.trailKey(fix.DeviceID), payload)
	pipe.LTrim(ctx, c.trailKey(fix.DeviceID), int64(-c.trailCap), -1)
	pipe.SAdd(ctx, c.devicesKey(), fix.DeviceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save fix: %v", err)
	}
	return nil
}

func (c *Connector) Load(trailCap int) (map[string][]track.Fix, error) {
	ctx := context.Background()
	devices, err := c.client.SMembers(ctx, c.devicesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %v", err)
	}

	state := make(map[string][]track.Fix, len(devices))
	for _, device := range devices {
		payloads, err := c.client.LRange(ctx, c.trailKey(device), int64(-trailCap), -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load trail for %s: %v", device, err)
		}
		fixes := make([]track.Fix, 0, len(payloads))
		for _, payload := range payloads {
			var fix track.Fix
			if err := json.Unmarshal([]byte(payload), &fix); err != nil {
				return nil, fmt.Errorf("failed to parse stored fix for %s: %v", device, err)
			}
			fixes = append(fixes, fix)
		}
		state[device] = fixes
	}
	return state, nil
}

func (c *Connector) Close() error {
	return c.client.Close()
}

func (c *Connector) latestKey(device string) string {
	return fmt.Sprintf("%s:latest:%s", c.prefix, device)
}

func (c *Connector) trailKey(device string) string {
	return fmt.Sprintf("%s:trail:%s", c.prefix, device)
}

func (c *Connector) devicesKey() string {
	return c.prefix + ":devices"
}
