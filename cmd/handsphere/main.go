package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handsphere/internal/app"
	"github.com/ayusman/handsphere/internal/capture"
	"github.com/ayusman/handsphere/internal/config"
	"github.com/ayusman/handsphere/internal/detector"
	"github.com/ayusman/handsphere/internal/engine"
	"github.com/ayusman/handsphere/internal/logging"
	"github.com/ayusman/handsphere/internal/metrics"
	"github.com/ayusman/handsphere/internal/plugin"
	"github.com/ayusman/handsphere/internal/server"
	"github.com/ayusman/handsphere/internal/store"
	"github.com/ayusman/handsphere/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides HANDSPHERE_CONFIG)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "handsphere: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	dataDir, err := resolveDataDir(cfg.DataDir)
	if err != nil {
		return err
	}

	st, err := store.New(filepath.Join(dataDir, "handsphere.db"))
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	m := metrics.NewManager()

	eng := engine.New(engine.Config{
		Mapper:     cfg.Engine.Mapper(),
		Alpha:      cfg.Engine.SmoothingAlpha,
		Cooldown:   cfg.Engine.ColorCooldown,
		BaseRadius: cfg.Engine.BaseRadius,
	})

	opts := app.Options{
		Engine:    eng,
		Store:     st,
		Metrics:   m,
		Logger:    logger,
		RenderFPS: cfg.RenderFPS,
	}

	if cfg.Camera.Enabled {
		det, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        cfg.Detector.MaxHands,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConfidence,
			Script:          cfg.Detector.Script,
			Python:          cfg.Detector.Python,
		}, logger)
		if err != nil {
			return fmt.Errorf("initialize detector: %w", err)
		}
		opts.Detector = det
		opts.Camera = capture.NewCamera(capture.Options{
			DeviceID: cfg.Camera.DeviceID,
			FPS:      cfg.Camera.FPS,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
		})
		opts.Latest = capture.NewLatest()
	} else {
		logger.Info("camera disabled, waiting for remote landmark sources")
	}

	plugins := plugin.NewManager(cfg.PluginDir, logger)
	if err := plugins.Discover(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.PluginDir, "error", err)
	}
	for _, p := range plugins.List() {
		logger.Info("plugin loaded", "name", p.Manifest.Name, "version", p.Manifest.Version, "events", p.Manifest.Events)
	}
	opts.Dispatcher = plugin.NewDispatcher(plugins, plugin.NewExecutor(cfg.PluginTimeout), m, logger)

	a := app.New(opts)
	defer a.Close()

	if err := a.LoadCalibration(); err != nil {
		logger.Warn("ignoring stored calibration", "error", err)
	}

	hub := server.NewHub(logger, server.HubConfig{
		Ingest:  a.HandleFrame,
		Init:    func() any { return a.Status() },
		Metrics: m,
	})
	a.SetBroadcaster(hub)

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(dataDir)
	}
	if staticDir != "" {
		logger.Info("serving static files", "dir", staticDir)
	}

	httpServer := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(server.Config{
			StaticDir: staticDir,
			App:       a,
			Store:     st,
			Metrics:   m,
			Hub:       hub,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return a.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if !cfg.Tray {
		return g.Wait()
	}
	return runWithTray(a, stop, g, cfg.Addr, logger)
}

// runWithTray blocks in the tray loop, which must own the main goroutine,
// and removes the tray once the services stop.
func runWithTray(a *app.App, stop context.CancelFunc, g *errgroup.Group, addr string, logger *slog.Logger) error {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnQuit(stop)
	t.OnOpen(func() {
		if err := openBrowser(viewerURL(addr)); err != nil {
			logger.Warn("failed to open browser", "error", err)
		}
	})
	a.OnColorChange(func(tr engine.ColorTrigger) {
		t.SetLastColor(tr.Color.Hex())
	})

	errc := make(chan error, 1)
	go func() {
		errc <- g.Wait()
		t.Quit()
	}()

	t.Run()
	stop()
	return <-errc
}

func resolveDataDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".handsphere")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// findWebDir searches "web", "../web", "../../web" and <dataDir>/web and
// returns the first existing directory, or "".
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func viewerURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
