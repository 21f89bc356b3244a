package config

/*
Runtime configuration for the trackd daemon, loaded from a yaml file
given with the -c flag.
*/

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

type Settings struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	ApiPort int32  `yaml:"api_port"`

	LogLevel      string `yaml:"log_level"`
	LogFilePath   string `yaml:"log_file_path"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`

	TrailCap            int    `yaml:"trail_cap"`
	TrailMaxAgeMs       int64  `yaml:"trail_max_age_ms"`
	ReorderWindowMs     int64  `yaml:"reorder_window_ms"`
	SweepCronExpression string `yaml:"sweep_cron_expression"`

	MigrationsPath string `yaml:"migrations_path"`
	StorageBuffer  int    `yaml:"storage_buffer"`
	StorageWorkers int    `yaml:"storage_workers"`

	Store map[string]map[string]string `yaml:"storage"`
}

// GetListenAddress is the UDP ingestion endpoint.
func (s *Settings) GetListenAddress() string {
	return s.Host + ":" + s.Port
}

func (s *Settings) GetTrailMaxAge() time.Duration {
	return time.Duration(s.TrailMaxAgeMs) * time.Millisecond
}

func (s *Settings) GetReorderWindow() time.Duration {
	return time.Duration(s.ReorderWindowMs) * time.Millisecond
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, err
	}

	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == "" {
		c.Port = "5001"
	}
	if c.ApiPort == 0 {
		c.ApiPort = 2000
	}

	if c.TrailCap == 0 {
		c.TrailCap = 500
	}
	if c.TrailCap < 0 {
		log.Errorf("Invalid trail_cap (%d). Value must be positive. Defaulting to 500.", c.TrailCap)
		c.TrailCap = 500
	}
	if c.TrailMaxAgeMs < 0 {
		log.Errorf("Invalid trail_max_age_ms (%d). Age eviction disabled.", c.TrailMaxAgeMs)
		c.TrailMaxAgeMs = 0
	}
	if c.ReorderWindowMs < 0 {
		log.Errorf("Invalid reorder_window_ms (%d). Reorder window disabled.", c.ReorderWindowMs)
		c.ReorderWindowMs = 0
	}

	if c.SweepCronExpression == "" {
		c.SweepCronExpression = "@every 1m"
	}
	if c.StorageBuffer == 0 {
		c.StorageBuffer = 1024
	}

	return c, err
}
