// main.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"

	"github.com/reddashi/SbD/internal/command"
	"github.com/reddashi/SbD/internal/config"
	"github.com/reddashi/SbD/internal/coordinator"
	"github.com/reddashi/SbD/internal/httpapi"
	"github.com/reddashi/SbD/internal/logging"
	"github.com/reddashi/SbD/internal/override"
	"github.com/reddashi/SbD/internal/plant"
	"github.com/reddashi/SbD/internal/sink"
)

func main() {
	logger, logFile := logging.Init()
	defer logFile.Close()
	logger.Info("greenhouse simulator starting")

	cfg, err := config.Build(logger)
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	store := override.NewStore(logger, nil)
	coord := coordinator.New(cfg.Bands(), logger)

	// Optional Kafka leg for per-tick readings.
	var readings *sink.Readings
	if len(cfg.KafkaBrokers) > 0 {
		readings = sink.NewReadings(cfg.KafkaBrokers, cfg.TopicReadings, cfg.Location, logger)
		defer readings.Close()
		logger.Info("kafka readings publisher ready", "topic", cfg.TopicReadings, "brokers", cfg.KafkaBrokers)
	}
	publish := func(r plant.Reading) {
		coord.Observe(r)
		if readings != nil {
			readings.Publish(ctx, r)
		}
	}

	temp := plant.NewTemperature(cfg.Temperature, uuid.NewString(), logger, store, nil, publish)
	moist := plant.NewMoisture(cfg.Moisture, uuid.NewString(), logger, store, publish)
	light := plant.NewLight(cfg.Light, uuid.NewString(), logger, store, nil, nil, publish)
	co2 := plant.NewCO2(cfg.CO2, uuid.NewString(), logger, store, nil, publish)

	rig := plant.NewRig(logger,
		plant.NewLoop(temp, cfg.TempInterval, cfg.Cycles, logger),
		plant.NewLoop(moist, cfg.MoistureInterval, cfg.Cycles, logger),
		plant.NewLoop(light, cfg.LightInterval, cfg.Cycles, logger),
		plant.NewLoop(co2, cfg.CO2Interval, cfg.Cycles, logger),
	)
	rig.Start(ctx)

	// Aggregate snapshot sinks behind circuit breakers.
	var sinks []sink.Sink
	if cfg.InfluxURL != "" {
		sinks = append(sinks, sink.NewInflux(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, cfg.Location, logger))
	}
	if cfg.MQTTBroker != "" {
		m, err := sink.NewMQTT(cfg.MQTTBroker, cfg.MQTTTopic, "greenhouse-"+cfg.Location, logger)
		if err != nil {
			logger.Warn("mqtt sink disabled", "err", err)
		} else {
			sinks = append(sinks, m)
		}
	}
	fanout := sink.NewFanout(logger, cfg.Breaker, sinks...)
	defer fanout.Close()

	// Coordinator cycle: scan, resample range overrides, fan out the snapshot.
	go coord.Run(ctx, cfg.ScanInterval, func(snap coordinator.Snapshot) {
		store.Resample()
		fanout.Write(ctx, snap)
	})

	// Command streams: stdin always, Kafka when brokers are configured.
	go command.RunReader(ctx, os.Stdin, store, logger)
	if len(cfg.KafkaBrokers) > 0 {
		consumer := command.NewConsumer(cfg.KafkaBrokers, cfg.TopicCommands, cfg.CommandGroup, store, logger)
		go consumer.Run(ctx)
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handlers.LoggingHandler(os.Stdout, httpapi.New(coord, store, logger).Router())}
	go func() {
		logger.Info("http listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			cancel()
		}
	}()

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-rig.Done():
		logger.Info("cycle budget spent, shutting down")
	}
	_ = srv.Shutdown(context.Background())
	cancel()
	rig.Wait(cfg.StopTimeout)
	logger.Info("shutdown complete")
}
