package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"motor-shield-service/internal/config"
	"motor-shield-service/internal/core"
	"motor-shield-service/internal/hardware"
	"motor-shield-service/internal/latch"
	"motor-shield-service/internal/logger"
	"motor-shield-service/internal/messaging"
	"motor-shield-service/internal/motor"
)

func main() {
	// Service log level, overrides SHIELD_LOG_LEVEL
	var serviceLogLevel string
	flag.StringVar(&serviceLogLevel, "log", "", "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG, or by name)")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger(stdLogger, logger.LogLevelError).Fatalf("Failed to load configuration: %v", err)
	}

	if serviceLogLevel == "" {
		serviceLogLevel = cfg.LogLevel
	}
	level, err := logger.ParseLevel(serviceLogLevel)
	if err != nil {
		stdLogger.Printf("Invalid log level, using info: %v", err)
	}

	// Create leveled logger
	l := logger.NewLogger(stdLogger, level)

	l.Infof("Starting motor shield service...")

	board := cfg.Board
	hw := hardware.NewLinuxHardwareIO(board.GpioMap(), board.PwmMap(), board.PwmPeriodNs, l.WithTag("hw"))
	if err := hw.Initialize(); err != nil {
		l.Fatalf("Failed to initialize hardware: %v", err)
	}

	reg := latch.New(hw, board.LatchPins(), board.SettleUs, l.WithTag("latch"))
	ctrl := motor.NewController(reg, hw, l.WithTag("motor"))
	redis := messaging.NewRedisClient(cfg.RedisHost, cfg.RedisPort, l.WithTag("redis"), messaging.Callbacks{})

	system := core.NewShieldSystem(ctrl, redis, board.Watchdog, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := system.Start(ctx); err != nil {
		system.Shutdown()
		hw.Cleanup()
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	hw.Cleanup()
	l.Infof("Shutdown complete")
}
