package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mqttsensord/internal/api"
	"mqttsensord/internal/config"
	"mqttsensord/internal/mqtt"
	"mqttsensord/internal/poller"
	"mqttsensord/internal/sensor"
	"mqttsensord/internal/storage"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <config.ini>\n", os.Args[0])
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		logger.Fatalf("Failed to determine hostname: %v", err)
	}

	device, err := mqtt.NewDeviceInfo(cfg.Device, hostname)
	if err != nil {
		logger.Fatalf("Invalid [DEVICE] section: %v", err)
	}

	var store storage.Store
	if cfg.Main.StateFile != "" {
		bolt, err := storage.NewBoltStore(cfg.Main.StateFile)
		if err != nil {
			logger.Fatalf("Failed to open state file: %v", err)
		}
		defer bolt.Close()
		store = bolt
	}

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "mqttsensord-" + hostname
	}
	client, err := mqtt.New(mqtt.Config{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		ClientID: clientID,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to create MQTT client: %v", err)
	}

	// Build readers and discovery entries up front. A broken sensor section
	// is logged and skipped; it never takes the daemon down.
	deps := sensor.NewDeps(logger)
	var targets []poller.Target
	var entries []mqtt.DiscoveryEntry

	for _, sc := range cfg.Sensors {
		reader, err := sensor.New(sc, deps)
		if err != nil {
			logger.Printf("[Setup] Skipping %s: %v", sc.Section, err)
			continue
		}

		discovery, err := mqtt.BuildDiscoveryMessages(sc, device, hostname)
		if err != nil {
			logger.Printf("[Setup] Skipping %s: %v", sc.Section, err)
			continue
		}

		targets = append(targets, poller.Target{
			Reader: reader,
			Topic:  mqtt.StateTopic(sc, hostname),
		})
		entries = append(entries, discovery...)
	}

	if len(targets) == 0 {
		logger.Printf("[Setup] Warning: no usable sensors configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discovery is republished on every (re)connection, not every poll
	// cycle. The retained duplicate after a reconnect is harmless: unique
	// ids make the hub treat it as an update.
	disco := mqtt.NewDiscoveryManager(client, logger, store)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.ConnectionEvents():
				disco.PublishAll(entries)
			}
		}
	}()

	if err := client.Connect(); err != nil {
		logger.Fatalf("Failed to connect: %v", err)
	}

	p := poller.New(targets, cfg.Main.SleepInterval, mqtt.NewPublisher(client, logger), logger)

	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(p, client, logger)
		go func() {
			if err := srv.Run(ctx, cfg.HTTP.Addr); err != nil {
				logger.Printf("[API] Status server stopped: %v", err)
			}
		}()
	}

	logger.Printf("[Main] Polling %d sensors every %s", len(targets), cfg.Main.SleepInterval)
	p.Run(ctx)

	deps.DHTCache.Close()
	client.Disconnect()
	logger.Printf("[Main] Shutdown complete")
}
