package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"gregoryjjb/fireside/gpio"
	"gregoryjjb/fireside/mqtt"
)

// Populated by ldflags
var (
	version            string
	buildUnixTimestamp string
	commitHash         string
)

func main() {
	InitializeLogger("info", false)

	ts, _ := strconv.ParseInt(buildUnixTimestamp, 10, 64)
	build := BuildInfo{
		Version:   version,
		BuildTime: time.Unix(ts, 0),
		Commit:    commitHash,
	}

	versionFlag := flag.Bool("version", false, "Print version")
	systemdFlag := flag.Bool("systemd", false, "Print systemd service file")
	configFlag := flag.String("config", "", "Path to a TOML or YAML config file")
	roomFlag := flag.String("room", "", "Room name, used to find config/<room>.toml")
	flag.Parse()

	if *versionFlag {
		fmt.Println("Fireside version:", build.Version)
		fmt.Println("Built on:", build.BuildTime)
		fmt.Println("Commit hash:", build.Commit)
		return
	}

	if *systemdFlag {
		if err := SystemdServiceFile(os.Stdout, *configFlag); err != nil {
			log.Fatal().Err(err).Msg("Failed to render service file")
		}
		return
	}

	store, err := NewConfigStore(NewOSFS(), Flags{
		ConfigPath: *configFlag,
		Room:       *roomFlag,
	}, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Config initialization failed")
	}
	cfg := store.Get()
	InitializeLogger(cfg.Log.Level, cfg.Log.JSON)

	log.Info().
		Str("version", build.Version).
		Str("build_timestamp", build.BuildTime.Format(time.RFC3339)).
		Str("commit_hash", build.Commit).
		Str("room", cfg.Room.Name).
		Str("config", cfg.Path).
		Msg("Initializing Fireside")

	backend, err := gpio.NewBackend(gpio.Options{
		Backend:        cfg.GPIO.Backend,
		Chip:           cfg.GPIO.Chip,
		CommandTimeout: cfg.GPIO.Timeout(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("GPIO initialization failed")
	}

	controller := gpio.NewController(backend)
	defer controller.Close()

	log.Info().
		Str("backend", backend.Name()).
		Uint32("fireplace", cfg.Pins.Fireplace).
		Uint32("fireplace_fan", cfg.Pins.FireplaceFan).
		Bool("active_low", cfg.Pins.ActiveLow).
		Msg("GPIO ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MQTT.Broker != "" {
		startMQTT(ctx, store, controller)
	}

	if cfg.HomeKit.Enabled {
		bridge := NewHomeKitBridge(store, controller)
		go func() {
			if err := bridge.Start(ctx); err != nil {
				hklog().Err(err).Msg("HomeKit bridge failed")
			}
		}()
	}

	if err := StartServer(ctx, NewServer(store, controller, build)); err != nil {
		log.Err(err).Msg("Server closed with error")
	}
}

// startMQTT connects in the background so an unreachable broker does not
// hold up the HTTP server.
func startMQTT(ctx context.Context, store *ConfigStore, controller *gpio.Controller) {
	cfg := store.Get().MQTT
	unsub, events := controller.Subscribe()

	go func() {
		defer unsub()

		pub, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, mqtt.StatusTopic(cfg.TopicPrefix, store.Room()))
		if err != nil {
			log.Err(err).Str("broker", cfg.Broker).Msg("MQTT disabled")
			return
		}
		defer pub.Close()

		mqtt.NewForwarder(pub, cfg.TopicPrefix, store).Run(ctx, events)
	}()
}
