// Command bgapi-console is an interactive BGAPI host console.
//
// It connects to a network co-processor behind a serial-to-TCP bridge,
// either at a fixed address or found over mDNS, and lets the user call
// commands by name while incoming events are printed as they arrive.
//
// Usage:
//
//	bgapi-console [flags]
//
// Flags:
//
//	-config string      YAML configuration file
//	-addr string        Bridge address (default "localhost:4901")
//	-discover           Find the bridge over mDNS instead of -addr
//	-instance string    mDNS instance name to connect to (any if empty)
//	-schema string      API definition (.xml or .yaml); built-in subset if empty
//	-length string      Length mode: additive or shifted (default "additive")
//	-timeout duration   Response timeout (default 1s)
//	-capture string     Protocol capture file (.blog)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Connect to a simulator on this machine
//	bgapi-console -addr localhost:4901
//
//	# Find a bridge on the LAN and capture the session
//	bgapi-console -discover -schema gecko.xml -capture session.blog
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bgapi-protocol/bgapi-go/cmd/bgapi-console/interactive"
	"github.com/bgapi-protocol/bgapi-go/internal/gecko"
	"github.com/bgapi-protocol/bgapi-go/pkg/connection"
	"github.com/bgapi-protocol/bgapi-go/pkg/discovery"
	protolog "github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/session"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	flags      = DefaultConfig()
)

func init() {
	flag.StringVar(&flags.Address, "addr", flags.Address, "Bridge address")
	flag.BoolVar(&flags.Discover, "discover", false, "Find the bridge over mDNS instead of -addr")
	flag.StringVar(&flags.Instance, "instance", "", "mDNS instance name to connect to (any if empty)")
	flag.StringVar(&flags.Schema, "schema", "", "API definition (.xml or .yaml); built-in subset if empty")
	flag.StringVar(&flags.LengthMode, "length", flags.LengthMode, "Length mode: additive or shifted")
	flag.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Response timeout")
	flag.StringVar(&flags.Capture, "capture", "", "Protocol capture file (.blog)")
	flag.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	cfg, err := resolveConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	mode, err := cfg.Validate()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := newLogger(cfg.LogLevel)

	api, err := loadSchema(cfg.Schema)
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialCfg := connection.DialerConfig{
		Address:     cfg.Address,
		Backoff:     cfg.Backoff,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      logger,
		OnStateChange: func(old, new connection.State) {
			logger.Debug("connection state", "old", old, "new", new)
		},
	}
	if cfg.Discover {
		browser, err := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
		if err != nil {
			log.Fatalf("Failed to create browser: %v", err)
		}
		defer browser.Stop()

		findCtx, findCancel := context.WithTimeout(ctx, discovery.BrowseTimeout)
		found, err := browser.FindFirst(findCtx, cfg.Instance)
		findCancel()
		if err != nil {
			log.Fatalf("No bridge found: %v", err)
		}
		log.Printf("Found %s (%s) at %s", found.InstanceName, found.DeviceName, found.Address())
		if !flagSet("length") {
			mode = found.LengthMode
		}
		dialCfg.Resolve = browser.Resolver(found.InstanceName)
	}

	dialer := connection.NewDialer(dialCfg)
	defer dialer.Close()

	port, err := dialer.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	sessCfg := session.DefaultConfig()
	sessCfg.LengthMode = mode
	sessCfg.ResponseTimeout = cfg.Timeout
	sessCfg.Logger = logger
	protoLoggers := []protolog.Logger{protolog.NewSlogAdapter(logger)}
	if cfg.Capture != "" {
		fl, err := protolog.NewFileLogger(cfg.Capture)
		if err != nil {
			log.Fatalf("Failed to open capture: %v", err)
		}
		defer fl.Close()
		protoLoggers = append(protoLoggers, fl)
		log.Printf("Capturing frames to %s", fl.Path())
	}
	sessCfg.ProtocolLogger = protolog.NewMultiLogger(protoLoggers...)

	sess, err := session.New(api, port, sessCfg)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	log.Printf("Connected, session %s (%s lengths, %d messages)", sess.ID(), mode, len(api.Messages()))

	console, err := interactive.New(sess, dialer, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to create console: %v", err)
	}
	console.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := console.Run(ctx, cancel); err != nil {
		log.Printf("Console error: %v", err)
	}
	cancel()
	<-console.Done()
}

// resolveConfig merges the -config file with the flags given explicitly.
func resolveConfig() (Config, error) {
	if *configPath == "" {
		return flags, nil
	}
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return cfg, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Address = flags.Address
		case "discover":
			cfg.Discover = flags.Discover
		case "instance":
			cfg.Instance = flags.Instance
		case "schema":
			cfg.Schema = flags.Schema
		case "length":
			cfg.LengthMode = flags.LengthMode
		case "timeout":
			cfg.Timeout = flags.Timeout
		case "capture":
			cfg.Capture = flags.Capture
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})
	return cfg, nil
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return gecko.New(), nil
	}
	return schema.Load(path)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
