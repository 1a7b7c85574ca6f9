// Solax MQTT bridge
//
// Solax inverter Wi-Fi dongles talk MQTT to a vendor cloud. This program
// stands in for that broker: the dongles connect to it on port 2901, their
// time-sync requests are answered locally, and their telemetry is republished
// to a Home Assistant broker as one retained topic per sensor, together with
// MQTT discovery configs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/nerrad567/solax-bridge/internal/api"
	"github.com/nerrad567/solax-bridge/internal/bridges/solax"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/broker"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/config"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/spool"
	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path; a missing default file is not an error.
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command line. Without a subcommand the bridge runs.
func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "solaxbridge",
		Usage:   "bridge Solax inverters to Home Assistant over MQTT",
		Version: fmt.Sprintf("%s (%s, %s)", version, commit, date),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				Usage:   "path to the YAML configuration file",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("SOLAXBRIDGE_CONFIG"),
				),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override logging.level (debug, info, warn, error)",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("SOLAXBRIDGE_LOG_LEVEL"),
				),
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the bridge (default)",
				Action: runAction,
			},
			{
				Name:  "validate",
				Usage: "load the configuration and model tables, then exit",
				Action: func(_ context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					model, err := resolveModel(cfg)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "configuration ok: model %s, %d sensors, broker %s, upstream %s:%d\n",
						model.Model, len(model.Sensors), cfg.BrokerAddress(), cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
					return nil
				},
			},
			{
				Name:  "sensors",
				Usage: "print the sensor table of the configured model",
				Action: func(_ context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					model, err := resolveModel(cfg)
					if err != nil {
						return err
					}
					ns := solax.NewNamespace(cfg.Topics.Sensor, cfg.Topics.Discovery)
					return printSensors(out, model, ns)
				},
			},
		},
	}
}

func runAction(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return run(ctx, cfg)
}

// loadConfig reads --config. An explicitly named file must exist; the
// default path may be absent, leaving defaults and environment.
func loadConfig(c *cli.Command) (*config.Config, error) {
	path := c.String("config")

	var (
		cfg *config.Config
		err error
	)
	if c.IsSet("config") {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOptional(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// resolveModel builds the registry from built-ins plus the optional
// definitions file and returns the configured model.
func resolveModel(cfg *config.Config) (*inverter.Model, error) {
	var extra []*inverter.Model
	if cfg.Inverter.Definitions != "" {
		defs, err := inverter.LoadDefinitions(cfg.Inverter.Definitions)
		if err != nil {
			return nil, fmt.Errorf("loading model definitions: %w", err)
		}
		extra = defs
	}

	reg, err := inverter.DefaultRegistry(inverter.Options{
		GridPowerClass: cfg.Inverter.GridPowerClass,
		StatusSensor:   cfg.Inverter.StatusSensor,
	}, extra...)
	if err != nil {
		return nil, fmt.Errorf("building model registry: %w", err)
	}

	return reg.Lookup(cfg.Inverter.Model)
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - cfg: Validated configuration
//
// Returns:
//   - error: nil on clean shutdown, or error describing a startup failure
func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Logging, version)
	log.Info("starting Solax bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	model, err := resolveModel(cfg)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ns := solax.NewNamespace(cfg.Topics.Sensor, cfg.Topics.Discovery)
	log.Info("inverter model selected",
		"model", model.Model,
		"sensors", len(model.Sensors),
		"sensor_root", ns.SensorRoot,
		"discovery_root", ns.DiscoveryRoot,
	)

	// Outbound spool
	sp, err := spool.Open(spool.Config{
		Backend:     cfg.MQTT.Queue.Storage,
		Path:        cfg.MQTT.Queue.Path,
		BusyTimeout: cfg.MQTT.Queue.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening outbound spool: %w", err)
	}
	defer func() {
		if closeErr := sp.Close(); closeErr != nil {
			log.Error("error closing outbound spool", "error", closeErr)
		}
	}()
	if n := sp.Len(); n > 0 {
		log.Info("resuming undelivered messages", "pending", n, "storage", cfg.MQTT.Queue.Storage)
	}

	// Upstream broker; a failed first attempt keeps retrying in the background
	client, err := mqtt.Connect(cfg.MQTT, ns.StateTopic(), log)
	if err != nil {
		return fmt.Errorf("connecting to upstream MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from upstream MQTT")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing upstream MQTT", "error", closeErr)
		}
	}()

	queue, err := mqtt.NewQueue(mqtt.QueueOptions{
		Publisher:  client,
		Spool:      sp,
		QoS:        byte(cfg.MQTT.QoS),
		MaxPending: cfg.MQTT.Queue.MaxPending,
		RetryDelay: cfg.MQTT.Queue.RetryDelay,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating outbound queue: %w", err)
	}
	// The worker outlives ctx so the shutdown drain can still deliver.
	queue.Start(context.WithoutCancel(ctx))
	defer queue.Stop()

	// Embedded broker for the inverters
	srv, err := broker.New(broker.Options{
		Address:  cfg.BrokerAddress(),
		ClientID: cfg.Broker.ClientID,
		Logger:   log.With("component", "broker").Logger,
	})
	if err != nil {
		return fmt.Errorf("creating embedded broker: %w", err)
	}

	bridge, err := solax.New(solax.Options{
		Model:     model,
		Namespace: ns,
		Outbound:  queue,
		Injector:  srv,
		Logger:    log.With("component", "bridge"),
		Location:  loc,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	srv.SetInterceptor(bridge)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting embedded broker: %w", err)
	}
	defer srv.Close() //nolint:errcheck // Closed explicitly after the drain; idempotent
	log.Info("embedded broker listening", "address", cfg.BrokerAddress())

	// Retained health document (optional)
	var health *solax.HealthReporter
	if cfg.Health.Enabled {
		health, err = solax.NewHealthReporter(solax.HealthReporterConfig{
			Bridge:   bridge,
			Version:  version,
			Interval: cfg.GetHealthInterval(),
			Upstream: client,
			Queue:    queue,
		})
		if err != nil {
			return fmt.Errorf("creating health reporter: %w", err)
		}
		health.Start(ctx)
		log.Info("health reporting enabled", "topic", health.Topic(), "interval", cfg.GetHealthInterval().String())
	}

	// Status API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Bridge:   bridge,
			Upstream: client,
			Queue:    queue,
			Broker:   srv,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, draining outbound queue",
		"pending", queue.Pending(),
		"timeout", cfg.MQTT.Queue.DrainTimeout.String(),
	)

	if health != nil {
		health.Stop()
	}

	// Inverter traffic arriving during the drain is still translated; the
	// embedded broker closes once the queue is empty or the timeout passed.
	if remaining := queue.Drain(cfg.MQTT.Queue.DrainTimeout); remaining > 0 {
		log.Warn("outbound queue not drained before timeout",
			"remaining", remaining,
			"storage", cfg.MQTT.Queue.Storage,
		)
	} else {
		log.Info("outbound queue drained")
	}

	log.Info("closing embedded broker")
	if closeErr := srv.Close(); closeErr != nil {
		log.Error("error closing embedded broker", "error", closeErr)
	}

	// Deferred calls run in reverse order: API, queue stop, upstream client, spool.
	log.Info("Solax bridge stopped")
	return nil
}

// printSensors writes the sensor table of model.
func printSensors(out io.Writer, model *inverter.Model, ns solax.Namespace) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s %s (status at Data[%d], active code %q)\n",
		model.Manufacturer, model.Model, model.Status.Offset, model.Status.ActiveCode)
	fmt.Fprintln(tw, "ID\tNAME\tEXTRACT\tOFFSET\tCLASS\tUNIT\tDEFAULT\tTOPIC")
	for _, s := range model.Sensors {
		def := "-"
		if s.Default != nil {
			def = *s.Default
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			s.Identifier, s.Name, s.Extractor.Kind, s.Extractor.Offset,
			dash(s.DeviceClass), dash(s.UnitOfMeasurement), def, ns.SensorTopic(s.Identifier))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
