package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/locatr/trackd/cli/trackd/api"
	"github.com/locatr/trackd/cli/trackd/config"
	"github.com/locatr/trackd/cli/trackd/listener"
	"github.com/locatr/trackd/cli/trackd/storage"
	"github.com/locatr/trackd/cli/trackd/track"
	cron "github.com/robfig/cron/v3"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	configFilePath := ""
	flag.StringVar(&configFilePath, "c", "", "path to the yaml config")
	flag.Parse()

	cfg, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		return
	}

	configureLogging(cfg)

	store := track.NewStore(track.Options{
		TrailCap:      cfg.TrailCap,
		TrailMaxAge:   cfg.GetTrailMaxAge(),
		ReorderWindow: cfg.GetReorderWindow(),
	})

	var sink listener.Sink
	if len(cfg.Store) > 0 {
		if err := applyMigrations(cfg); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
			return
		}

		repo := storage.NewRepository()
		if err := repo.LoadStorages(cfg.Store); err != nil {
			log.Fatalf("Failed to initialize storage backends: %v", err)
			return
		}
		defer repo.Close()

		restoreStore(store, repo, cfg.TrailCap)

		async := storage.NewAsyncRepository(repo, cfg.StorageBuffer, cfg.StorageWorkers)
		defer async.Close()
		sink = async
	}

	if cfg.GetTrailMaxAge() > 0 {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.SweepCronExpression, func() {
			if evicted := store.SweepAge(time.Now()); evicted > 0 {
				log.Infof("Age sweep evicted %d trail points", evicted)
			}
		}); err != nil {
			log.Fatalf("Failed to schedule retention sweep: %v", err)
			return
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Infof("Scheduled trail age sweep (%s)", cfg.SweepCronExpression)
	}

	go runListener(store, sink, cfg)

	go runApi(store, cfg.ApiPort)

	select {}
}

func getConfig(configFilePath string) (config.Settings, error) {
	var c config.Settings
	var err error

	if configFilePath == "" {
		return c, fmt.Errorf("config path is not set")
	}

	c, err = config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("failed to parse config: %v", err)
	}

	return c, nil
}

func configureLogging(cfg config.Settings) {
	log.SetLevel(cfg.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if cfg.LogFilePath != "" {
		logDir := filepath.Dir(cfg.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Failed to create log directory: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    100,
			MaxBackups: 366,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
			log.TraceLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}

func restoreStore(store *track.Store, repo *storage.Repository, trailCap int) {
	state, err := repo.Restore(trailCap)
	if err != nil {
		log.WithField("err", err).Error("Failed to restore state, starting empty")
		return
	}
	if len(state) == 0 {
		return
	}
	store.Restore(state)
	log.Infof("Restored state for %d device(s)", len(state))
}

func runListener(store *track.Store, sink listener.Sink, cfg config.Settings) {
	l := listener.New(cfg.GetListenAddress(), store, sink)
	if err := l.Run(); err != nil {
		log.Fatalf("Listener failed on %s: %v", cfg.GetListenAddress(), err)
	}
}

func runApi(store *track.Store, port int32) {
	handler := api.NewHandler(store)
	controller := api.NewController(handler)
	log.Infof("Starting API on port %d", port)
	if err := controller.Run(port); err != nil {
		log.Fatal(err)
	}
}

// applyMigrations bootstraps the location schema when a postgresql
// backend is configured.
func applyMigrations(cfg config.Settings) error {
	params, ok := cfg.Store["postgresql"]
	if !ok || cfg.MigrationsPath == "" {
		return nil
	}

	databaseUrl := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		params["user"], params["password"], params["host"], params["port"], params["database"], params["sslmode"])

	m, err := migrate.New(cfg.MigrationsPath, databaseUrl)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Info("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %v", err)
	}

	log.Info("Migrations applied")
	return nil
}
