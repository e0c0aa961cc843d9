// Poppy Motion - recorded motion playback for the Poppy humanoid
//
// This is the main entry point for the Poppy Motion service. It loads
// recorded sequences, tracks live actuator status from the message bus, and
// replays sequences as per-actuator commands when triggered over MQTT or HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/poppy-motion/migrations"

	"github.com/nerrad567/poppy-motion/internal/actuator"
	"github.com/nerrad567/poppy-motion/internal/api"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/config"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/database"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/influxdb"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/logging"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/mqtt"
	"github.com/nerrad567/poppy-motion/internal/motion"
	"github.com/nerrad567/poppy-motion/internal/playback"
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

// shutdownTimeout bounds how long active runs get to stop on shutdown.
const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Startup wiring is linear but long
	log := logging.Default()
	log.Info("starting Poppy Motion",
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
	defer log.Close() //nolint:errcheck // Nothing useful to do on close failure
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	// Database (run history, and sequences when playback.source is database)
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	store, writer := openSequenceStore(cfg.Playback, db)
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing sequences: %w", err)
	}
	log.Info("sequence store ready", "source", cfg.Playback.Source, "sequences", len(ids))

	// Message bus
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
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Telemetry (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	topics := mqttClient.Topics()
	qos := mqttClient.QoS()

	// Run history
	var runs playback.RunRepository
	if cfg.Playback.RecordRuns {
		repo := playback.NewSQLiteRunRepository(db.DB)
		abandoned, abandonErr := repo.AbandonRunning(ctx, "service restarted during playback")
		if abandonErr != nil {
			return fmt.Errorf("closing out interrupted runs: %w", abandonErr)
		}
		if abandoned > 0 {
			log.Warn("marked interrupted runs as failed", "count", abandoned)
		}
		runs = repo
	}

	// Actuator status
	cache := actuator.NewCache()
	statusSub := actuator.NewStatusSubscriber(cache, mqttClient, topics, qos, log.Component("actuator"))

	engine := playback.NewEngine(cache, mqttClient, topics, log.Component("engine"))
	engine.SetQoS(qos)

	ctrlDeps := playback.ControllerDeps{
		Store:        store,
		Engine:       engine,
		Runs:         runs,
		Events:       mqttClient,
		Topics:       topics,
		Logger:       log.Component("playback"),
		MaxSpeed:     cfg.Playback.MaxSpeed,
		HistoryLimit: cfg.Playback.HistoryLimit,
		EventQoS:     qos,
	}
	if influxClient != nil {
		ctrlDeps.Telemetry = influxClient
		statusSub.SetRecorder(influxClient)
	}

	// The hub is shared by the controller, the status subscriber and the server.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		ctrlDeps.Hub = hub
		statusSub.SetBroadcaster(hub)
	}

	controller, err := playback.NewController(ctrlDeps)
	if err != nil {
		return fmt.Errorf("creating playback controller: %w", err)
	}
	defer func() {
		log.Info("stopping playback")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := controller.Close(stopCtx); closeErr != nil {
			log.Error("error stopping playback", "error", closeErr)
		}
	}()

	if err := statusSub.Start(cfg.Robot.Channels); err != nil {
		return fmt.Errorf("subscribing to actuator status: %w", err)
	}
	defer func() {
		if stopErr := statusSub.Stop(); stopErr != nil {
			log.Warn("error removing status subscriptions", "error", stopErr)
		}
	}()

	if err := controller.SubscribeTriggers(mqttClient, topics, qos); err != nil {
		return fmt.Errorf("subscribing to playback triggers: %w", err)
	}

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log.Component("api"),
			Controller: controller,
			Store:      store,
			Writer:     writer,
			Cache:      cache,
			Channels:   cfg.Robot.Channels,
			DB:         db,
			MQTT:       mqttClient,
			InfluxDB:   influxClient,
			Hub:        hub,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"robot", cfg.Robot.Name,
		"channels", len(cfg.Robot.Channels),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Status subscriptions
	// 3. Playback (active runs end as cancelled)
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("Poppy Motion stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses POPPYMOTION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("POPPYMOTION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openSequenceStore selects the sequence store from configuration. The
// writer is nil when configuration makes the store read-only.
func openSequenceStore(cfg config.PlaybackConfig, db *database.DB) (motion.Store, motion.Writer) {
	if cfg.Source == config.SourceDatabase {
		repo := motion.NewSQLiteRepository(db.DB)
		return repo, repo
	}
	files := motion.NewFileStore(cfg.Directory)
	return files, files
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
