package storage

import (
	"errors"

	"github.com/locatr/trackd/cli/trackd/storage/store/mysql"
	"github.com/locatr/trackd/cli/trackd/storage/store/nats"
	"github.com/locatr/trackd/cli/trackd/storage/store/postgresql"
	"github.com/locatr/trackd/cli/trackd/storage/store/rabbitmq"
	"github.com/locatr/trackd/cli/trackd/storage/store/redis"
	"github.com/locatr/trackd/cli/trackd/storage/store/tarantool_queue"
	"github.com/locatr/trackd/cli/trackd/track"
)

var ErrInvalidStorage = errors.New("storage not found")
var ErrUnknownStorage = errors.New("storage isn't supported yet")

type Store interface {
	Connector
	Saver
}

// Saver receives every accepted fix for persistence or export.
type Saver interface {
	Save(fix track.Fix) error
}

// Connector manages the backend connection lifecycle.
type Connector interface {
	// Init opens the connection with the backend's config section.
	Init(map[string]string) error

	// Close releases the connection.
	Close() error
}

// Loader can rebuild per-device trails after a restart. Database-style
// backends implement it; queue-style backends are export-only.
type Loader interface {
	// Load returns up to trailCap fixes per device, oldest first.
	Load(trailCap int) (map[string][]track.Fix, error)
}

// Repository fans accepted fixes out to every configured backend.
type Repository struct {
	storages []Saver
}

// AddStore registers a backend.
func (r *Repository) AddStore(s Saver) {
	r.storages = append(r.storages, s)
}

// Save writes the fix to all backends, stopping at the first failure.
func (r *Repository) Save(fix track.Fix) error {
	for _, store := range r.storages {
		if err := store.Save(fix); err != nil {
			return err
		}
	}
	return nil
}

// Restore asks the first backend that can load state for the persisted
// per-device trails. Returns nil when no backend is a Loader.
func (r *Repository) Restore(trailCap int) (map[string][]track.Fix, error) {
	for _, store := range r.storages {
		if loader, ok := store.(Loader); ok {
			return loader.Load(trailCap)
		}
	}
	return nil, nil
}

// LoadStorages builds backends from the config storage map.
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	var db Store
	for store, params := range storages {
		switch store {
		case "rabbitmq":
			db = &rabbitmq.Connector{}
		case "postgresql":
			db = &postgresql.Connector{}
		case "nats":
			db = &nats.Connector{}
		case "tarantool_queue":
			db = &tarantool_queue.Connector{}
		case "redis":
			db = &redis.Connector{}
		case "mysql":
			db = &mysql.Connector{}
		default:
			return ErrUnknownStorage
		}

		if err := db.Init(params); err != nil {
			return err
		}

		r.AddStore(db)
	}
	return nil
}

// Close closes every backend that holds a connection.
func (r *Repository) Close() error {
	var firstErr error
	for _, store := range r.storages {
		if connector, ok := store.(Connector); ok {
			if err := connector.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{}
}
