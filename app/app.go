// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package app runs the long-lived watch application: periodic discovery,
// power-state polling of every device found, Slack alerts on transitions,
// and an HTTP server for metrics and health probes.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/soothill/roku-ecp/config"
	"github.com/soothill/roku-ecp/device"
	"github.com/soothill/roku-ecp/discovery"
	"github.com/soothill/roku-ecp/monitoring"
	"github.com/soothill/roku-ecp/pkg/interfaces"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/pkg/notifications"
)

const (
	alertContextTimeout = 5 * time.Second
	shutdownTimeout     = 5 * time.Second
	readHeaderTimeout   = 5 * time.Second

	healthRateLimit = 10
	healthRateBurst = 20
)

// Scanner finds devices and remembers what the last scan found
type Scanner interface {
	Discover(ctx context.Context, timeout time.Duration) ([]*device.Device, error)
	GetDevices() []*device.Device
	GetDeviceByIP(ipv4 string) *device.Device
}

// App is the watch application
type App struct {
	cfg           *config.Config
	cfgMu         sync.RWMutex
	server        *http.Server
	listener      net.Listener
	poller        *monitoring.PowerPoller
	scanner       Scanner
	notifier      interfaces.Notifier
	configWatcher *config.Watcher
	configChan    chan *config.Config
	ready         atomic.Bool
	wg            sync.WaitGroup
}

// Option configures an App
type Option func(*App)

// WithScanner replaces the SSDP scanner
func WithScanner(s Scanner) Option {
	return func(a *App) {
		a.scanner = s
	}
}

// WithNotifier replaces the Slack notifier
func WithNotifier(n interfaces.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

// New creates the application. configPath is used for SIGHUP reloads and
// may be empty, in which case reloading is disabled.
func New(cfg *config.Config, configPath string, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	a := &App{
		cfg:        cfg,
		configChan: make(chan *config.Config, 1),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.scanner == nil {
		var scanOpts []discovery.Option
		if cfg.Discovery.MDNSService != "" {
			scanOpts = append(scanOpts, discovery.WithMDNS(cfg.Discovery.MDNSService, cfg.Discovery.MDNSDomain))
		}
		a.scanner = discovery.NewScanner(scanOpts...)
	}

	if a.notifier == nil {
		a.notifier = notifications.NewSlackNotifier(cfg.Notifications.SlackWebhookURL)
	}
	if a.notifier.IsEnabled() {
		logger.Info().Msg("Slack notifications enabled")
	} else {
		logger.Info().Msg("Slack notifications disabled (no webhook URL configured)")
	}

	a.poller = monitoring.NewPowerPoller(cfg.Monitor.PollInterval, a.scanner)
	a.configWatcher = config.NewWatcher(configPath, a.configChan)
	a.server = &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

// Handler returns the HTTP handler serving /metrics, /health and /ready
func (a *App) Handler() http.Handler {
	healthLimiter := rate.NewLimiter(healthRateLimit, healthRateBurst)
	readyLimiter := rate.NewLimiter(healthRateLimit, healthRateBurst)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", rateLimitMiddleware(healthLimiter, healthCheckHandler))
	mux.HandleFunc("/ready", rateLimitMiddleware(readyLimiter, a.readinessCheckHandler))
	return mux
}

// Run starts the application and blocks until ctx is cancelled. The
// returned error is non-nil only when the HTTP server cannot listen.
func (a *App) Run(ctx context.Context) error {
	if err := a.startMetricsServer(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.configWatcher.Start(ctx)
	defer a.configWatcher.Stop()

	a.startConfigListener(ctx)
	a.startReadingsConsumer()

	a.performInitialDiscovery(ctx)
	a.runMainLoop(ctx)

	a.performGracefulShutdown()
	return nil
}

// Addr returns the address the HTTP server listens on once Run has started
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Reload re-reads the configuration file as if SIGHUP had been received
func (a *App) Reload() {
	a.configWatcher.Reload()
}

// Ready reports whether the initial discovery has completed
func (a *App) Ready() bool {
	return a.ready.Load()
}

// Poller exposes the power poller
func (a *App) Poller() *monitoring.PowerPoller {
	return a.poller
}

func (a *App) config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// startMetricsServer binds the listener synchronously so that a busy port
// fails Run instead of a background goroutine.
func (a *App) startMetricsServer() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	a.listener = ln

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Info().Str("address", ln.Addr().String()).Msg("Starting metrics server")
		if err := a.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return nil
}

// startReadingsConsumer turns power transitions into notifications. It
// exits when the poller closes its readings channel.
func (a *App) startReadingsConsumer() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for reading := range a.poller.Readings() {
			a.handleReading(reading)
		}
	}()
}

func (a *App) handleReading(reading *monitoring.StateReading) {
	if !reading.Changed || !a.notifier.IsEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), alertContextTimeout)
	defer cancel()
	if err := a.notifier.SendPowerTransition(ctx, reading.DeviceName, reading.DeviceIP,
		reading.Previous.String(), reading.State.String()); err != nil {
		logger.Warn().Err(err).Str("device_ip", reading.DeviceIP).Msg("Failed to send power transition alert")
	}
}

func (a *App) startConfigListener(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case newCfg := <-a.configChan:
				a.applyConfig(newCfg)
			}
		}
	}()
}

// applyConfig takes over the settings that can change at runtime. The
// metrics address and notifier are fixed for the life of the process.
func (a *App) applyConfig(newCfg *config.Config) {
	a.cfgMu.Lock()
	old := a.cfg
	a.cfg = newCfg
	a.cfgMu.Unlock()

	if newCfg.Monitor.PollInterval != old.Monitor.PollInterval {
		a.poller.UpdatePollInterval(newCfg.Monitor.PollInterval)
	}
	if newCfg.Logging.Level != old.Logging.Level {
		logger.SetLevel(newCfg.Logging.Level)
	}
	logger.Info().
		Dur("poll_interval", newCfg.Monitor.PollInterval).
		Dur("discovery_interval", newCfg.Discovery.Interval).
		Msg("Configuration applied")
}

func (a *App) runMainLoop(ctx context.Context) {
	interval := a.config().Discovery.Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down")
			return
		case <-ticker.C:
			a.performPeriodicDiscovery(ctx)
			if next := a.config().Discovery.Interval; next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (a *App) performInitialDiscovery(ctx context.Context) {
	logger.Info().Msg("Performing initial device discovery")
	a.discoverAndMonitor(ctx)
	a.ready.Store(true)
}

func (a *App) performPeriodicDiscovery(ctx context.Context) {
	logger.Info().Msg("Running periodic device discovery")
	a.discoverAndMonitor(ctx)
}

func (a *App) discoverAndMonitor(ctx context.Context) {
	devices, err := a.scanner.Discover(ctx, a.config().Discovery.Timeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error().Err(err).Msg("Device discovery failed")
		a.sendDiscoveryAlert(err)
		return
	}

	started := 0
	for _, d := range devices {
		if a.poller.StartMonitoringDevice(ctx, d) {
			started++
		}
	}
	logger.Info().
		Int("found", len(devices)).
		Int("new", started).
		Int("monitored", a.poller.GetMonitoredDeviceCount()).
		Msg("Discovery complete")
}

func (a *App) sendDiscoveryAlert(err error) {
	if !a.notifier.IsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), alertContextTimeout)
	defer cancel()
	if alertErr := a.notifier.SendDiscoveryFailure(ctx, err); alertErr != nil {
		logger.Warn().Err(alertErr).Msg("Failed to send discovery failure alert")
	}
}

// performGracefulShutdown stops polling, drains the readings consumer and
// closes the HTTP server.
func (a *App) performGracefulShutdown() {
	a.poller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Metrics server shutdown failed")
	}

	a.wg.Wait()
	logger.Info().Msg("Watch stopped")
}

// DumpApplicationState logs the devices known and their last power state
func (a *App) DumpApplicationState() {
	devices := a.scanner.GetDevices()
	cfg := a.config()

	logger.Info().
		Int("devices_discovered", len(devices)).
		Int("devices_monitored", a.poller.GetMonitoredDeviceCount()).
		Bool("ready", a.Ready()).
		Dur("poll_interval", cfg.Monitor.PollInterval).
		Dur("discovery_interval", cfg.Discovery.Interval).
		Int("goroutines", runtime.NumGoroutine()).
		Msg("=== APPLICATION STATE DUMP ===")

	for i, d := range devices {
		state, known := a.poller.LastState(d.IPv4)
		logger.Info().
			Int("index", i).
			Str("device_ip", d.IPv4).
			Str("device_name", d.Name).
			Str("network", d.Network.String()).
			Bool("monitored", a.poller.IsMonitoring(d.IPv4)).
			Bool("state_known", known).
			Str("power_state", state.String()).
			Msg("Device")
	}
}

// DumpGoroutineStackTraces writes every goroutine's stack to stderr
func DumpGoroutineStackTraces() {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	logger.Info().Int("goroutines", runtime.NumGoroutine()).Msg("=== GOROUTINE STACK TRACES ===")
	_, _ = os.Stderr.Write(buf[:n])
}

func rateLimitMiddleware(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *App) readinessCheckHandler(w http.ResponseWriter, _ *http.Request) {
	if !a.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY: initial discovery pending"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "READY: %d devices monitored", a.poller.GetMonitoredDeviceCount())
}
