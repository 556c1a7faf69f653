// Homelink Core - Home Automation Aggregation Backend
//
// This is the main entry point for the Homelink Core application.
// Homelink unifies multiple smart-home services (local lighting bridges,
// cloud heating) behind one session-authenticated REST+WebSocket API and
// pushes live state changes to connected clients.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/homelink-core/migrations"

	"github.com/nerrad567/homelink-core/internal/api"
	"github.com/nerrad567/homelink-core/internal/bridges"
	"github.com/nerrad567/homelink-core/internal/credential"
	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/database"
	"github.com/nerrad567/homelink-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homelink-core/internal/live"
	"github.com/nerrad567/homelink-core/internal/session"
	"github.com/nerrad567/homelink-core/internal/snapshot"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Homelink Core",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Credential store: in-memory authoritative, persisted to SQLite
	credStore := credential.NewStore(credential.NewSQLiteRepository(db.DB), log)
	credStore.Load(ctx)

	// Bridge selector over the configured bridges. The demo variant is
	// built in; real vendor source factories register here.
	selector := bridges.NewSelector(cfg.Bridges, credStore)
	for _, b := range cfg.Bridges {
		log.Info("bridge configured", "bridge_id", b.ID, "service", b.Service, "demo", b.Demo)
	}

	// Session store with background expiry sweep
	sessions := session.NewStore(cfg.Session.TTLDuration(), cfg.Session.SweepIntervalDuration(), log)
	go sessions.StartSweeper(ctx)

	// Optional MQTT state mirror
	var mirror live.Mirror
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
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

		mirror = &mqttMirror{client: mqttClient, log: log}
	} else {
		log.Info("MQTT disabled")
	}

	// Optional InfluxDB device telemetry
	var metrics live.MetricWriter
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
		metrics = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub and polling coordinator share a broadcast path: the
	// coordinator publishes deltas, the hub fans them out per bridge.
	hub := api.NewHub(cfg.WebSocket, log)
	coordinator := live.NewCoordinator(live.CoordinatorDeps{
		Registry:     live.NewRegistry(),
		Sources:      selector,
		Broadcaster:  hub,
		Mirror:       mirror,
		Metrics:      metrics,
		Logger:       log.With("component", "live"),
		PollInterval: cfg.Sync.PollIntervalDuration(),
		FetchTimeout: cfg.Sync.FetchTimeoutDuration(),
	})
	defer func() {
		log.Info("stopping polling coordinator")
		coordinator.Close()
	}()

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Sessions:    sessions,
		Credentials: credStore,
		Selector:    selector,
		Coordinator: coordinator,
		Hub:         hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Polling coordinator
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("Homelink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttMirror adapts the infrastructure MQTT client to the coordinator's
// Mirror interface, republishing state deltas on homelink/state/{bridge}.
type mqttMirror struct {
	client *mqtt.Client
	log    *logging.Logger
}

// PublishState implements live.Mirror. Publish failures are logged only;
// the mirror is an optional consumer and never affects WebSocket clients.
func (m *mqttMirror) PublishState(bridgeID string, deltas []snapshot.Delta) {
	payload, err := json.Marshal(map[string]any{
		"bridge_id": bridgeID,
		"changes":   deltas,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		m.log.Error("marshalling state mirror payload", "bridge_id", bridgeID, "error", err)
		return
	}

	topic := mqtt.Topics{}.BridgeState(bridgeID)
	if err := m.client.PublishRetained(topic, payload); err != nil {
		m.log.Warn("state mirror publish failed", "bridge_id", bridgeID, "error", err)
	}
}
