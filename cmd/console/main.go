package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lora-console/pkg/api"
	"lora-console/pkg/auth"
	"lora-console/pkg/config"
	"lora-console/pkg/db"
	"lora-console/pkg/locations"
	"lora-console/pkg/logger"
	"lora-console/pkg/store"
	"lora-console/pkg/ttn"
	"lora-console/pkg/version"
)

type pruner interface {
	PruneExpired(now time.Time) int
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional, also CONSOLE_CONFIG)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (enables HTTPS if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (enables HTTPS if set with --tls-cert)")
	clientCA := flag.String("client-ca", "", "require and verify client certs using this CA (optional)")
	dev := flag.Bool("dev", false, "dev mode: allows an empty JWT secret")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *tlsCert != "" {
		cfg.TLS.CertFile = *tlsCert
	}
	if *tlsKey != "" {
		cfg.TLS.KeyFile = *tlsKey
	}
	if *clientCA != "" {
		cfg.TLS.ClientCA = *clientCA
	}
	if *dev {
		cfg.DevMode = true
	}

	log := logger.New(cfg.Log)
	slog.SetDefault(log)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("console stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var nodeStore store.NodeStore
	switch cfg.Store.Backend {
	case "consul":
		nodeStore = store.NewConsulStore(cfg.Store.ConsulAddr)
	default:
		nodeStore = store.NewMemoryStore()
	}

	var cache *store.SnapshotCache
	if cfg.Locations.SnapshotPath != "" {
		c, err := store.OpenSnapshotCache(ctx, cfg.Locations.SnapshotPath)
		if err != nil {
			return fmt.Errorf("open snapshot cache: %w", err)
		}
		defer c.Close()
		cache = c
	}

	upstream := ttn.NewClient(cfg.TTN.APIURL, cfg.TTN.Timeout, cfg.TTN.Insecure, ttn.ServerAddresses{
		Network:     cfg.TTN.NetworkServerAddress,
		Application: cfg.TTN.ApplicationServerAddress,
		Join:        cfg.TTN.JoinServerAddress,
	})

	sessions, err := openSessions(cfg.Session, log)
	if err != nil {
		return err
	}
	secret := cfg.Session.JWTSecret
	if secret == "" {
		log.Warn("jwt secret not set; using an insecure dev secret")
		secret = "lora-console-dev-secret"
	}
	manager := auth.NewManager(auth.NewIssuer(secret), sessions, upstream, cfg.Session.TTL)

	stream := api.NewNodeStream(nodeStore, log.With("component", "stream"))
	poller := locations.NewPoller(
		locations.NewClient(cfg.Locations.URL, cfg.Locations.Token, cfg.Locations.Timeout, log.With("component", "locations")),
		nodeStore, cache, cfg.Locations.PollInterval, log.With("component", "poller"))

	// with consul every replica's refresh, including ours, arrives through the watch
	if w, ok := nodeStore.(interface {
		StartWatch(context.Context, func())
	}); ok && cfg.Store.Backend == "consul" {
		w.StartWatch(ctx, func() {
			snap, err := nodeStore.Snapshot()
			if err != nil {
				log.Warn("consul watch snapshot failed", "error", err)
				return
			}
			stream.Broadcast(snap)
		})
	} else {
		poller.OnRefresh(stream.Broadcast)
	}
	if err := poller.Restore(ctx); err != nil {
		log.Warn("restore snapshot failed", "error", err)
	}

	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("poller stopped", "error", err)
		}
	}()
	if p, ok := sessions.(pruner); ok {
		go pruneSessions(ctx, p, time.Hour, log)
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Deps{
		Store:    nodeStore,
		Sessions: manager,
		TTN:      upstream,
		Stream:   stream,
		MQTT:     cfg.MQTT,
		Version:  version.String(),
		Logger:   log,
	})
	if cfg.UIDir != "" {
		if _, err := os.Stat(cfg.UIDir); err == nil {
			mux.Handle("/ui/", http.StripPrefix("/ui/", http.FileServer(http.Dir(cfg.UIDir))))
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.WithRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("console listening", "addr", cfg.Addr, "version", version.String(), "tls", cfg.TLS.Enabled())
	if cfg.TLS.Enabled() {
		tlsCfg, terr := api.ServerTLSConfig(cfg.TLS)
		if terr != nil {
			return fmt.Errorf("build tls config: %w", terr)
		}
		srv.TLSConfig = tlsCfg
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// openSessions keeps sessions in MySQL when a DSN is configured, else in memory.
func openSessions(cfg config.SessionConfig, log *slog.Logger) (auth.SessionStore, error) {
	if cfg.MySQLDSN == "" {
		return auth.NewMemorySessions(), nil
	}
	gdb, err := db.Open(cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	if cfg.SealKey == "" {
		log.Warn("session key not set; persisted TTN tokens are sealed with the jwt secret")
		cfg.SealKey = cfg.JWTSecret
	}
	log.Info("sessions persisted in mysql")
	return auth.NewGormSessions(gdb, auth.NewSealer(cfg.SealKey)), nil
}

func pruneSessions(ctx context.Context, p pruner, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := p.PruneExpired(now); n > 0 {
				log.Debug("pruned expired sessions", "count", n)
			}
		}
	}
}
