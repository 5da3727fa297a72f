package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"strings"
	"time"

	"execution/internal/core"
	"execution/internal/ledger"
	"execution/internal/obs"
	"execution/internal/og"
	"execution/internal/ops"
	"execution/internal/publish"
	"execution/internal/schedule"
	"execution/internal/schema"
	"execution/internal/state"
	"execution/internal/store"
	"execution/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("trader: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to TOML or JSON config")
	demo := flag.Bool("demo", false, "Drive a demo scenario through the simulated venue")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Profiling.PyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.Profiling.AppName,
			ServerAddress:   cfg.Profiling.PyroscopeAddr,
			Tags:            map[string]string{"session": cfg.Gateway.Session},
			Logger:          pyroscopeLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()

	backing, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, redisPublisher, closePublisher, err := openPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	scheduler := schedule.New(time.Now)
	defer scheduler.Stop()

	db := ledger.NewDatabase(ledger.Option{
		Metrics:        metrics,
		Backing:        backing,
		BackingTimeout: cfg.Engine.StoreTimeout.Duration,
	})
	if backing != nil {
		if err := db.LoadCaches(ctx); err != nil {
			return err
		}
		verifySnapshot(cfg.SnapshotPath, db)
	}

	gatewayConfig, err := cfg.SimGatewayConfig()
	if err != nil {
		return err
	}
	var engine *core.Engine
	gateway := og.NewSimGateway(gatewayConfig, func(m schema.Message) error { return engine.Send(m) })
	engine, err = core.NewEngine(cfg.CoreConfig(), db, gateway, publisher, scheduler, metrics)
	if err != nil {
		return err
	}
	scheduler.Register(core.Address, engine.Send)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engine.Run(gctx)
		return nil
	})
	if redisPublisher != nil {
		g.Go(func() error {
			redisPublisher.Run(gctx)
			return nil
		})
	}
	if *demo {
		g.Go(func() error {
			return runDemo(gctx, engine, gateway)
		})
	}
	g.Go(func() error {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	runErr := g.Wait()
	engine.Close()

	db.CheckResiduals()
	snapshot := buildSnapshot(db)
	if err := state.WriteSnapshot(cfg.SnapshotPath, snapshot); err != nil {
		logs.Errorf("write snapshot %s, err: %+v", cfg.SnapshotPath, err)
	} else {
		logs.Infof("wrote snapshot %s, positions: %d, accounts: %d", cfg.SnapshotPath, len(snapshot.Positions), len(snapshot.Accounts))
	}
	logMetrics(metrics.Snapshot())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func openStore(cfg *ops.Config) (ledger.Backing, func(), error) {
	if !cfg.Store.Enabled {
		return nil, func() {}, nil
	}
	client, err := conn.New(cfg.ConnOption())
	if err != nil {
		return nil, nil, err
	}
	s, err := store.New(client.DB())
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logs.Infof("ledger store opened, driver: %s", client.Driver())
	return s, func() { _ = client.Close() }, nil
}

func openPublisher(ctx context.Context, cfg *ops.Config) (publish.Publisher, *publish.RedisPublisher, func(), error) {
	if !strings.EqualFold(cfg.Publisher.Kind, ops.PublisherRedis) {
		return publish.LogPublisher{}, nil, func() {}, nil
	}
	rdb, err := conn.NewRedis(ctx, cfg.RedisOption())
	if err != nil {
		return nil, nil, nil, err
	}
	rp := publish.NewRedisPublisher(rdb, cfg.RedisConfig())
	closeFn := func() {
		rp.Close()
		_ = rdb.Close()
	}
	logs.Infof("redis publisher connected, addr: %s", cfg.Publisher.RedisAddr)
	return publish.Fanout{publish.LogPublisher{}, rp}, rp, closeFn, nil
}

func buildSnapshot(db *ledger.Database) state.Snapshot {
	positions := make([]*state.Position, 0)
	for _, p := range db.Positions(ledger.Scope{}) {
		positions = append(positions, p)
	}
	accounts := make([]*state.Account, 0)
	for _, a := range db.Accounts() {
		accounts = append(accounts, a)
	}
	return state.BuildSnapshot(time.Now().UTC(), positions, accounts)
}

func verifySnapshot(path string, db *ledger.Database) {
	expected, err := state.ReadSnapshot(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logs.Infof("no snapshot at %s, skip verification", path)
			return
		}
		logs.Warnf("read snapshot %s, err: %+v", path, err)
		return
	}
	if err := state.CompareSnapshots(expected, buildSnapshot(db)); err != nil {
		logs.Warnf("reloaded ledger differs from snapshot %s, err: %+v", path, err)
		return
	}
	logs.Infof("reloaded ledger matches snapshot %s, positions: %d", path, len(expected.Positions))
}

func logMetrics(s obs.Snapshot) {
	for kind, n := range s.CommandCounts {
		logs.Infof("metrics command %s: %d", kind, n)
	}
	for kind, n := range s.EventCounts {
		logs.Infof("metrics event %s: %d", kind, n)
	}
	logs.Infof("metrics integration errors: %d, index drift: %d, duplicates: %d, backing errors: %d, gateway errors: %d, publish errors: %d",
		s.IntegrationErrors, s.IndexDrift, s.Duplicates, s.BackingErrors, s.GatewayErrors, s.PublishErrors)
	logs.Infof("metrics expiry scheduled: %d, removed: %d, queue drops: %d, closed: %d",
		s.ExpiryScheduled, s.ExpiryRemoved, s.QueueDrops, s.QueueClosed)
	logs.Infof("metrics handle latency: %+v", s.HandleLatency)
}

type pyroscopeLogger struct{}

func (pyroscopeLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (pyroscopeLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (pyroscopeLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
