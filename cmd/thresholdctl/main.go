// thresholdctl - Gray Logic threshold relay controller
//
// thresholdctl watches sensor readings cached in Redis, runs
// debounce/hysteresis threshold rules against them, switches relay
// channels over MQTT, and reports actuator state to InfluxDB or MongoDB.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
//   - SIGHUP: reload control definitions
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-threshold/internal/api"
	"github.com/nerrad567/gray-logic-threshold/internal/audit"
	"github.com/nerrad567/gray-logic-threshold/internal/control"
	"github.com/nerrad567/gray-logic-threshold/internal/engine"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/mongodb"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/redis"
	"github.com/nerrad567/gray-logic-threshold/internal/ingest"
	"github.com/nerrad567/gray-logic-threshold/internal/queue"
	"github.com/nerrad567/gray-logic-threshold/internal/relay"
	"github.com/nerrad567/gray-logic-threshold/internal/telemetry"
	"github.com/nerrad567/gray-logic-threshold/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting thresholdctl",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Control definitions are mandatory; a bad file aborts startup.
	registry, err := control.LoadRegistry(cfg.Controller.DefinitionsFile)
	if err != nil {
		return fmt.Errorf("loading control definitions: %w", err)
	}
	registry.SetLogger(log)
	log.Info("control definitions loaded",
		"path", cfg.Controller.DefinitionsFile,
		"definitions", len(registry.Definitions()),
		"channels", len(registry.Channels()),
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS, "."); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	actuations := audit.NewSQLiteRepository(db.DB)

	redisClient, err := redis.Connect(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to Redis: %w", err)
	}
	defer func() {
		log.Info("closing Redis connection")
		if closeErr := redisClient.Close(); closeErr != nil {
			log.Error("error closing Redis", "error", closeErr)
		}
	}()
	log.Info("Redis connected", "address", cfg.Redis.Addr(), "db", cfg.Redis.DB)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	gateway := relay.NewGateway(mqttClient, cfg.Relay.Protocol, mqttClient.QoS())
	gateway.SetLogger(log)
	if startErr := gateway.Start(); startErr != nil {
		return fmt.Errorf("starting relay gateway: %w", startErr)
	}

	checks := map[string]api.HealthChecker{
		"database": db,
		"redis":    redisClient,
		"mqtt":     mqttClient,
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	var mongoClient *mongodb.Client
	if cfg.MongoDB.Enabled {
		mongoClient, err = mongodb.Connect(ctx, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("connecting to MongoDB: %w", err)
		}
		defer func() {
			log.Info("closing MongoDB connection")
			if closeErr := mongoClient.Close(context.Background()); closeErr != nil {
				log.Error("error closing MongoDB", "error", closeErr)
			}
		}()
		checks["mongodb"] = mongoClient
		log.Info("MongoDB connected",
			"database", cfg.MongoDB.Database,
			"collection", cfg.MongoDB.Collection,
		)
	} else {
		log.Info("MongoDB disabled")
	}

	reporter := newReporter(cfg, influxClient, mongoClient, log)

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	var recorder *metrics.Metrics
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	readings := queue.New[ingest.Reading]()

	monitor := ingest.NewMonitor(redisClient, registry, readings, cfg.GetFetchInterval())
	monitor.SetLogger(log.With("component", "ingest"))

	telemetryInterval := cfg.GetTelemetryInterval()
	if !cfg.Telemetry.Enabled {
		telemetryInterval = 0
	}
	eng := engine.NewEngine(engine.Config{
		Interval:          cfg.GetControlInterval(),
		TelemetryInterval: telemetryInterval,
		DeviceTag:         cfg.Telemetry.DeviceTag,
		SensorTypeBase:    cfg.Telemetry.SensorTypeBase,
		SweepExpired:      cfg.Controller.SweepExpiredTriggers,
	}, registry, readings, gateway, reporter, actuations, log.With("component", "engine"))

	if recorder != nil {
		monitor.SetMetrics(recorder)
		eng.SetMetrics(recorder)

		server, serverErr := api.New(api.Deps{
			Config:     cfg.Metrics,
			Logger:     log,
			Metrics:    recorder.Handler(),
			Checks:     checks,
			Rules:      registry,
			Channels:   gateway,
			Actuations: actuations,
			DB:         db.DB,
			Version:    version,
		})
		if serverErr != nil {
			return fmt.Errorf("creating ops server: %w", serverErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting ops server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing ops server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return reloadOnHangup(gctx, registry, cfg.Controller.DefinitionsFile, log) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("thresholdctl stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses THRESHOLDCTL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("THRESHOLDCTL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newReporter selects the telemetry backend. It returns nil when telemetry
// is disabled.
func newReporter(cfg *config.Config, influxClient *influxdb.Client, mongoClient *mongodb.Client, log *logging.Logger) telemetry.Reporter {
	if !cfg.Telemetry.Enabled {
		log.Info("telemetry disabled")
		return nil
	}

	switch cfg.Telemetry.Backend {
	case config.TelemetryBackendMongoDB:
		r := telemetry.NewMongoReporter(mongoClient)
		r.SetLogger(log)
		log.Info("telemetry reporting to MongoDB", "interval", cfg.GetTelemetryInterval())
		return r
	default:
		r := telemetry.NewInfluxReporter(influxClient)
		r.SetLogger(log)
		log.Info("telemetry reporting to InfluxDB", "interval", cfg.GetTelemetryInterval())
		return r
	}
}

// healthCheck verifies every connection, failing on the first problem.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "redis", "mqtt", "influxdb", "mongodb"} {
		check, ok := checks[name]
		if !ok {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// reloadOnHangup reloads the control definitions on every SIGHUP until ctx
// is cancelled. A rejected file leaves the running rules in place.
func reloadOnHangup(ctx context.Context, registry *control.Registry, path string, log *logging.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			log.Info("SIGHUP received, reloading control definitions", "path", path)
			if err := registry.Reload(path); err != nil {
				log.Warn("keeping previous control definitions", "error", err)
			}
		}
	}
}
