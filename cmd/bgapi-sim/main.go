// Command bgapi-sim runs a simulated network co-processor on a TCP port.
//
// It answers every command of the loaded schema with a zero-valued
// response and answers the reset command with the boot event. Optionally
// it advertises itself over mDNS as _bgapi._tcp and emits one event at a
// fixed interval.
//
// Usage:
//
//	bgapi-sim [flags]
//
// Flags:
//
//	-addr string        Listen address (default ":4901")
//	-schema string      API definition (.xml or .yaml); built-in subset if empty
//	-length string      Length mode: additive or shifted (default "additive")
//	-advertise          Advertise over mDNS
//	-name string        mDNS instance name (default "bgapi-sim")
//	-emit string        Event to emit periodically, e.g. le_gap_scan_response
//	-emit-interval dur  Interval for -emit (default 1s)
//	-capture string     Protocol capture file (.blog)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Simulate the built-in subset and advertise it
//	bgapi-sim -advertise
//
//	# Serve a full API definition with frame capture
//	bgapi-sim -schema gecko.xml -capture sim.blog
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bgapi-protocol/bgapi-go/internal/gecko"
	"github.com/bgapi-protocol/bgapi-go/pkg/discovery"
	protolog "github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/sim"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

var (
	addr         = flag.String("addr", ":4901", "Listen address")
	schemaPath   = flag.String("schema", "", "API definition (.xml or .yaml); built-in subset if empty")
	lengthFlag   = flag.String("length", "additive", "Length mode: additive or shifted")
	advertise    = flag.Bool("advertise", false, "Advertise over mDNS")
	instanceName = flag.String("name", "bgapi-sim", "mDNS instance name")
	emitName     = flag.String("emit", "", "Event to emit periodically")
	emitInterval = flag.Duration("emit-interval", time.Second, "Interval for -emit")
	capturePath  = flag.String("capture", "", "Protocol capture file (.blog)")
	logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	mode, err := wire.ParseLengthMode(*lengthFlag)
	if err != nil {
		log.Fatalf("Invalid -length: %v", err)
	}

	api, err := loadSchema(*schemaPath)
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	cfg := sim.Config{
		Address:    *addr,
		LengthMode: mode,
		Logger:     newLogger(*logLevel),
	}
	if *capturePath != "" {
		fl, err := protolog.NewFileLogger(*capturePath)
		if err != nil {
			log.Fatalf("Failed to open capture: %v", err)
		}
		defer fl.Close()
		cfg.ProtocolLogger = fl
		log.Printf("Capturing frames to %s", fl.Path())
	}

	s, err := sim.New(api, cfg)
	if err != nil {
		log.Fatalf("Failed to create simulator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	log.Printf("Simulating %d messages on %s (%s lengths)", len(api.Messages()), s.Addr(), mode)

	if *advertise {
		adv, err := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
		if err != nil {
			log.Fatalf("Failed to create advertiser: %v", err)
		}
		info := &discovery.BridgeInfo{
			InstanceName: *instanceName,
			Port:         listenPort(s.Addr()),
			DeviceName:   "BGAPI simulator",
			LengthMode:   mode,
		}
		if err := adv.Advertise(ctx, info); err != nil {
			log.Printf("Warning: mDNS advertising failed: %v", err)
		} else {
			log.Printf("Advertising %s.%s%s", info.InstanceName, discovery.ServiceType, discovery.Domain)
			defer adv.StopAll()
		}
	}

	if *emitName != "" {
		desc, err := findEvent(api, *emitName)
		if err != nil {
			log.Fatalf("Invalid -emit: %v", err)
		}
		go emitLoop(ctx, s, desc, *emitInterval)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal: %v", sig)

	cancel()
	if err := s.Stop(); err != nil {
		log.Printf("Error stopping simulator: %v", err)
	}
	st := s.Stats()
	log.Printf("Commands: %d, responses: %d, events: %d, dropped: %d", st.Commands, st.Responses, st.Events, st.Dropped)
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

func listenPort(a net.Addr) uint16 {
	if tcp, ok := a.(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return 0
}

func findEvent(s *schema.Schema, name string) (*schema.MessageDescriptor, error) {
	for _, d := range s.Messages() {
		if d.Kind == schema.KindEvent && d.FullName() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no event named %q", name)
}

func emitLoop(ctx context.Context, s *sim.Simulator, desc *schema.MessageDescriptor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	values := make([]any, len(desc.Fields))
	for i, f := range desc.Fields {
		values[i] = sim.ZeroValue(f.Type)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Clients() == 0 {
				continue
			}
			if err := s.Emit(desc, values...); err != nil {
				log.Printf("Emit %s failed: %v", desc.FullName(), err)
				return
			}
		}
	}
}
