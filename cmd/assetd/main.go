package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/riftforge/assets/internal/config"
	"github.com/riftforge/assets/internal/core/asset"
	"github.com/riftforge/assets/internal/core/event"
	coresys "github.com/riftforge/assets/internal/core/system"
	"github.com/riftforge/assets/internal/format"
	"github.com/riftforge/assets/internal/loader"
	"github.com/riftforge/assets/internal/manifest"
	"github.com/riftforge/assets/internal/persist"
	"github.com/riftforge/assets/internal/pipeline"
	"github.com/riftforge/assets/internal/scripting"
	"github.com/riftforge/assets/internal/source"
	"github.com/riftforge/assets/internal/system"
	"github.com/riftforge/assets/internal/watch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          Riftforge Assets  v0.1.0         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       資產載入服務 · Go Asset Daemon      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m服務:\033[0m %s\n\n", name)
}

func printSection(title string) {
	// Use rune count for CJK width calculation (each CJK char = 2 columns)
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	// Use display width for CJK characters
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main daemon logic ─────────────────────────────────────────────

// boot bundles what manifest preloading needs: the loader, the watcher
// (nil when hot reload is off), and the strong handles that keep every
// preloaded asset warm until shutdown.
type boot struct {
	loader   *loader.Loader
	watch    *watch.Watcher
	releases []func()
}

// preload submits one manifest entry and retains its handle for the
// daemon's lifetime. Reloadable entries also go to the watcher; the zero
// baseline makes the first poll adopt the current timestamp instead of
// reimporting bytes we just read.
func preload[A any](bt *boot, st *asset.Storage[A], f asset.Format, e manifest.Entry, src source.Source) error {
	h, err := loader.LoadFrom(bt.loader, st, src, e.Name, f)
	if err != nil {
		return err
	}
	bt.releases = append(bt.releases, h.Release)

	if e.Reload && bt.watch != nil {
		name := e.Name
		bt.watch.Track(name, src, time.Time{}, func() error {
			_, err := loader.ReloadFrom(bt.loader, st, src, name, f)
			return err
		})
	}
	return nil
}

// drainImports runs integrate-only ticks until no import is pending.
// Used at boot so the manifest is fully resident before the first tick.
func drainImports(runner *coresys.Runner, reg *asset.Registry, tickRate, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		runner.TickPhase(coresys.PhaseIntegrate, tickRate)
		if pendingImports(reg) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d imports still pending after %s", pendingImports(reg), timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func pendingImports(reg *asset.Registry) int {
	n := 0
	reg.Each(func(t asset.Tickable) { n += t.Stats().Pending })
	return n
}

func run() error {
	// 1. Load config
	cfgPath := "config/assetd.toml"
	if p := os.Getenv("ASSETD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Daemon.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Optional blob store: PostgreSQL connection plus migrations
	var storeSrc *source.Store
	if cfg.Store.Enabled {
		printSection("資料庫")

		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Store, log)
		dbCancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL 連線成功")

		migCtx, migCancel := context.WithTimeout(ctx, 30*time.Second)
		err = db.Migrate(migCtx)
		migCancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("資料庫遷移完成")
		fmt.Println()

		storeSrc = source.NewStore(persist.NewBlobRepo(db))
	}

	// 4. Byte source, import workers, loader, watcher
	dirSrc := source.NewDir(cfg.Assets.Root)

	pool := pipeline.NewPool(cfg.Pipeline.Workers, log)
	pool.Start(ctx)

	ld := loader.New(dirSrc, pool, log)

	var watcher *watch.Watcher
	if cfg.Reload.Enabled {
		watcher = watch.NewWatcher(log)
	}

	// 5. Storages, one per asset kind, all observed onto the same bus
	bus := event.NewBus()
	sink := asset.NewSink()

	tables := asset.New[format.Table]("table")
	scripts := asset.New[format.Script]("script")
	texts := asset.New[format.Text]("text")
	blobs := asset.New[format.Blob]("raw")

	reg := asset.NewRegistry()
	reg.Register(asset.Bind(tables, format.ConvertTable))
	reg.Register(asset.Bind(scripts, format.ConvertScript))
	reg.Register(asset.Bind(texts, format.ConvertText))
	reg.Register(asset.Bind(blobs, format.ConvertBlob))
	tables.SetObserver(event.NewBusObserver(bus, tables.Name()))
	scripts.SetObserver(event.NewBusObserver(bus, scripts.Name()))
	texts.SetObserver(event.NewBusObserver(bus, texts.Name()))
	blobs.SetObserver(event.NewBusObserver(bus, blobs.Name()))

	// 6. Lua engine and event → hook bridge
	luaEngine := scripting.NewEngine(log)
	defer luaEngine.Close()

	// A second Loaded on a known key means a reimport finished: surface it
	// as a reload instead of a first load.
	known := make(map[string]struct{}, 64)
	event.Subscribe(bus, func(ev event.AssetLoaded) {
		key := ev.Kind + ":" + ev.Name
		if _, seen := known[key]; seen {
			event.Emit(bus, event.AssetReloaded{Name: ev.Name, Kind: ev.Kind})
			return
		}
		known[key] = struct{}{}
		luaEngine.OnAssetLoaded(ev.Name, ev.Kind)
	})
	event.Subscribe(bus, func(ev event.AssetFailed) {
		luaEngine.OnAssetFailed(ev.Name, ev.Kind, ev.Err)
	})
	event.Subscribe(bus, func(ev event.AssetReloaded) {
		log.Info("資產熱更新完成", zap.String("asset", ev.Name), zap.String("kind", ev.Kind))
		luaEngine.OnAssetReloaded(ev.Name, ev.Kind)
	})

	// 7. Systems
	runner := coresys.NewRunner()
	if watcher != nil {
		runner.Register(system.NewReloadSystem(ctx, watcher, log, cfg.Reload.PollEvery))
	}
	runner.Register(system.NewIntegrateSystem(reg, sink))
	runner.Register(system.NewSweepSystem(reg, log, cfg.Daemon.SweepEvery))
	runner.Register(system.NewReportSystem(bus, sink, reg, pool, log, cfg.Daemon.StatsEvery))
	runner.Register(system.NewPruneSystem(ld.Cache(), bus, log, cfg.Daemon.PruneEvery))

	bt := &boot{loader: ld, watch: watcher}

	// 8. Boot script runs before the manifest so accept_asset and the
	// lifecycle hooks are in place when entries preload.
	printSection("資產載入")
	if cfg.Assets.BootScript != "" {
		h, err := loader.Load(ld, scripts, cfg.Assets.BootScript, format.ScriptFormat{})
		if err != nil {
			return fmt.Errorf("boot script: %w", err)
		}
		bt.releases = append(bt.releases, h.Release)
		if err := drainImports(runner, reg, cfg.Daemon.TickRate, 30*time.Second); err != nil {
			return fmt.Errorf("boot script: %w", err)
		}
		s, ok := scripts.Get(h)
		if !ok {
			if errs := sink.Drain(); len(errs) > 0 {
				return fmt.Errorf("boot script: %w", errs[0])
			}
			return fmt.Errorf("boot script %q did not load", cfg.Assets.BootScript)
		}
		if err := luaEngine.Run(s); err != nil {
			return fmt.Errorf("boot script: %w", err)
		}
		printOK("開機腳本執行完成")
	}

	// 9. Manifest preload
	mf, err := manifest.Load(filepath.Join(cfg.Assets.Root, cfg.Assets.Manifest))
	if err != nil {
		return err
	}

	textFormats := make(map[string]*format.TextFormat, 4)
	counts := make(map[manifest.Kind]int, 4)
	skipped := 0
	for _, e := range mf.Entries {
		if !luaEngine.AcceptAsset(e.Name, string(e.Kind)) {
			skipped++
			continue
		}

		src := source.Source(dirSrc)
		if e.Source == manifest.BackendStore {
			if storeSrc == nil {
				return fmt.Errorf("entry %q wants the store backend, but store is disabled", e.Name)
			}
			src = storeSrc
		}

		switch e.Kind {
		case manifest.KindTable:
			err = preload(bt, tables, format.TableFormat{}, e, src)
		case manifest.KindScript:
			err = preload(bt, scripts, format.ScriptFormat{}, e, src)
		case manifest.KindText:
			enc := e.Encoding
			if enc == "" {
				enc = cfg.Assets.TextEncoding
			}
			tf, ok := textFormats[enc]
			if !ok {
				if tf, err = format.NewText(enc); err != nil {
					return fmt.Errorf("entry %q: %w", e.Name, err)
				}
				textFormats[enc] = tf
			}
			err = preload(bt, texts, tf, e, src)
		case manifest.KindRaw:
			err = preload(bt, blobs, format.RawFormat{}, e, src)
		}
		if err != nil {
			return fmt.Errorf("preload %q: %w", e.Name, err)
		}
		counts[e.Kind]++
	}

	printStat("資料表", counts[manifest.KindTable])
	printStat("Lua 腳本", counts[manifest.KindScript])
	printStat("文字資產", counts[manifest.KindText])
	printStat("原始資產", counts[manifest.KindRaw])
	if skipped > 0 {
		printStat("腳本過濾略過", skipped)
	}
	if watcher != nil {
		printStat("熱更新監看", watcher.Len())
	}

	// 10. Warm up: every manifest asset resident before the first tick
	if err := drainImports(runner, reg, cfg.Daemon.TickRate, 60*time.Second); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	printOK("資產預載完成")
	fmt.Println()

	// 11. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Daemon.TickRate)
	defer ticker.Stop()

	printSection("服務就緒")
	printReady(fmt.Sprintf("資產根目錄 %s", cfg.Assets.Root))
	printReady(fmt.Sprintf("tick 迴圈啟動 (tick: %s)", cfg.Daemon.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Daemon.TickRate)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			pool.Shutdown()
			// Final tick: integrate whatever the drain finished, flush
			// events and errors, then release the manifest handles.
			runner.Tick(cfg.Daemon.TickRate)
			for _, release := range bt.releases {
				release()
			}
			reg.SweepAll()
			log.Info("asset daemon stopped")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
