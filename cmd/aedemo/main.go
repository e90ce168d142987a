// Command aedemo runs the echo protocol on an asyncevent reactor, either as a
// server or as a ping client.
//
// Defaults may be supplied through a .env file or the environment:
// AE_LOG_LEVEL, AE_API and AE_ADDR.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/felixge/fgprof"
	"github.com/joho/godotenv"
	"github.com/talostrading/asyncevent"
	"github.com/talostrading/asyncevent/aeopts"
	"github.com/talostrading/asyncevent/echo"
	"github.com/talostrading/asyncevent/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	envFile = flag.String("env", ".env", "file supplying the AE_* defaults, ignored if missing")

	logLevel = flag.String("log", "", "debug|info|notice|warning|error (default $AE_LOG_LEVEL or info)")
	api      = flag.String("api", "", "default|epoll|kqueue|poll|select (default $AE_API or default)")
	addr     = flag.String("addr", "", "server address (default $AE_ADDR or 127.0.0.1:8888)")

	pings          = flag.Int("pings", 10, "client: number of pings")
	connectTimeout = flag.Duration("connect-timeout", 10*time.Second, "client: connect timeout")
	idle           = flag.Duration("idle", 3*time.Second, "idle time after which connections are closed")

	reportInterval = flag.Duration("report", 3*time.Second, "server: connection report interval")
	maxIdle        = flag.Int("max-idle-reports", 5, "server: idle reports before shutting down, 0 for never")
	backlog        = flag.Int("backlog", 5, "server: listen backlog")

	stats   = flag.Int64("stats", 0, "if positive, report handler latencies every that many handlers")
	cpus    = flag.String("cpu", "", "pin the reactor thread to these cpus, e.g. 0,2-3")
	profile = flag.String("fgprof", "", "if not empty, write a wall clock profile to this file")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] client|server\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 || (flag.Arg(0) != "client" && flag.Arg(0) != "server") {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "aedemo: %v\n", err)
		os.Exit(1)
	}
}

func run(mode string) error {
	if _, err := os.Stat(*envFile); err == nil {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("loading %s: %w", *envFile, err)
		}
	}

	zl, err := newZapLogger(orEnv(*logLevel, "AE_LOG_LEVEL", "info"))
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck
	log := asyncevent.NewZapLogger(zl)

	eventAPI, ok := aeopts.ParseAPI(orEnv(*api, "AE_API", "default"))
	if !ok {
		return fmt.Errorf("invalid event api %q", orEnv(*api, "AE_API", "default"))
	}

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			return err
		}
		defer f.Close()
		stop := fgprof.Start(f, fgprof.FormatPprof)
		defer stop() //nolint:errcheck
	}

	if *cpus != "" {
		list, err := util.ParseCPUList(*cpus)
		if err != nil {
			return err
		}
		runtime.LockOSThread()
		if err := util.PinTo(list...); err != nil {
			return fmt.Errorf("pinning to cpus %v: %w", list, err)
		}
	}

	asyncevent.MaximizeTotalFds()

	opts := []aeopts.Option{
		aeopts.EventAPI(eventAPI),
		asyncevent.WithLogger(log),
	}
	if *stats > 0 {
		opts = append(opts, aeopts.Stats(os.Stdout, *stats))
	}

	r, err := asyncevent.NewReactor(opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	address := orEnv(*addr, "AE_ADDR", "127.0.0.1:8888")
	switch mode {
	case "client":
		err = runClient(r, log, address)
	default:
		err = runServer(r, log, address)
	}
	if err != nil {
		return err
	}

	log.Noticef("----- demo %s finished -----", mode)
	return nil
}

func runClient(r *asyncevent.Reactor, log asyncevent.Logger, address string) error {
	client, err := echo.NewClient(echo.ClientConfig{
		Addr:           address,
		ConnectTimeout: *connectTimeout,
		Pings:          *pings,
		Idle:           *idle,
		Report:         os.Stdout,
	}, asyncevent.WithLogger(log), aeopts.NoDelay(true))
	if err != nil {
		return err
	}
	if _, err := r.Register(client); err != nil {
		return err
	}

	if err := r.Run(); err != nil {
		return err
	}
	if !client.Done() {
		return fmt.Errorf("%d of %d pings echoed", client.Echoed(), *pings)
	}
	return nil
}

func runServer(r *asyncevent.Reactor, log asyncevent.Logger, address string) error {
	server, err := echo.NewServer(echo.ServerConfig{
		Addr:           address,
		Backlog:        *backlog,
		SessionIdle:    *idle,
		ReportInterval: *reportInterval,
		MaxIdleReports: *maxIdle,
	}, asyncevent.WithLogger(log), aeopts.NoDelay(true))
	if err != nil {
		return err
	}
	if _, err := r.Register(server); err != nil {
		return err
	}

	// background work sharing the loop with the server
	r.AddJob(newCountedJob(log, "scheduled sub job", 20, 100*time.Millisecond))
	r.AddJob(newInspection(r, log, 5, 500*time.Millisecond))

	if err := r.Run(); err != nil {
		return err
	}
	log.Infof("server done, %d connections in total", server.Total())
	return nil
}

func orEnv(v, key, fallback string) string {
	if v != "" {
		return v
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newZapLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch level {
	case "notice":
		lvl = zapcore.InfoLevel
	case "warning":
		lvl = zapcore.WarnLevel
	default:
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}
