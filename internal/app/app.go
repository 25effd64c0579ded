// Package app is the composition root. Build creates exactly one of each
// component and wires them together; consumers receive them from the App
// rather than reaching for package-level state.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/api"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/cache"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/clock"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/completion"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/config"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/netstate"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/optimistic"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/queue"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/store"
)

// ResponseNamespace prefixes completion read cache keys.
const ResponseNamespace = "completion"

// Options overrides pieces of the default wiring, mainly for tests.
type Options struct {
	// Offline starts disconnected without pinging the API.
	Offline bool

	// Backend replaces the HTTP client. No health ping or probe is run.
	Backend completion.Backend

	// Storage replaces the storage selected by config.
	Storage store.Storage

	Clock clock.Clock
	IDs   queue.IDGenerator
}

// App holds the wired components.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Storage    store.Storage
	Client     *api.Client
	Responses  *cache.ResponseCache
	Trackers   *cache.TrackerCache
	Service    *completion.Service
	Monitor    *netstate.Monitor
	Queue      *queue.Queue
	Controller *optimistic.Controller
	Reads      *optimistic.ReadModel

	closeStorage func() error
	stopProbe    context.CancelFunc
}

// Build wires the client from cfg.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.IDs == nil {
		opts.IDs = queue.UUIDv7Generator{}
	}

	a := &App{Config: cfg, Logger: logger, stopProbe: func() {}}

	if err := a.openStorage(cfg, opts); err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == nil {
		client, err := api.New(cfg.APIBaseURL, api.WithToken(cfg.APIToken), api.WithTimeout(cfg.RequestTimeout))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build api client: %w", err)
		}
		a.Client = client
		backend = client
	}

	a.Monitor = netstate.NewMonitor(!opts.Offline, logger)
	if !opts.Offline && a.Client != nil {
		a.Monitor.Check(ctx, a.Client)
	}

	a.Responses = cache.NewResponseCache(ResponseNamespace, cfg.CacheTTL, opts.Clock)
	a.Trackers = cache.NewTrackerCache(cache.TrackerOptions{
		Storage:  a.Storage,
		TTL:      cfg.TrackerCacheTTL,
		Capacity: cfg.TrackerCacheCapacity,
		Clock:    opts.Clock,
		Logger:   logger,
	})
	a.Trackers.Load(ctx)

	// The controller is created last but observes reads and queue outcomes
	// from components built before it.
	var ctrl *optimistic.Controller
	svcOpts := completion.Options{Trackers: a.Trackers, Logger: logger}
	if cfg.SettleDelay == 0 {
		svcOpts.OnStatus = func(st model.CompletionStatus) {
			ctrl.Confirm(st.HabitID, st.Date)
		}
	}
	a.Service = completion.NewService(backend, a.Responses, svcOpts)

	a.Queue = queue.New(ctx, queue.Options{
		Storage:    a.Storage,
		Writer:     a.Service,
		Logger:     logger,
		Clock:      opts.Clock,
		IDs:        opts.IDs,
		MaxRetries: cfg.MaxRetries,
		Online:     a.Monitor.Online(),
		OnOutcome: func(item model.QueuedMutation, o queue.Outcome) {
			ctrl.HandleQueueOutcome(item, o)
		},
	})
	a.Monitor.Subscribe(a.Queue.SetOnline)

	ctrl = optimistic.NewController(optimistic.Options{
		Writer:       a.Service,
		Queue:        a.Queue,
		Network:      a.Monitor,
		Clock:        opts.Clock,
		Logger:       logger,
		SettleDelay:  cfg.SettleDelay,
		OfflineQueue: cfg.OfflineQueue,
	})
	a.Controller = ctrl
	a.Reads = ctrl.ReadModel()

	if cfg.ProbeInterval > 0 && a.Client != nil && !opts.Offline {
		probeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopProbe = cancel
		go a.Monitor.Probe(probeCtx, cfg.ProbeInterval, a.Client)
	}

	logger.Debug("client ready",
		"api", cfg.APIBaseURL,
		"storage", cfg.StoragePath,
		"online", a.Monitor.Online(),
		"queued", a.Queue.Len())
	return a, nil
}

func (a *App) openStorage(cfg config.Config, opts Options) error {
	switch {
	case opts.Storage != nil:
		a.Storage = opts.Storage
	case cfg.StoragePath == config.MemoryStorage:
		a.Storage = store.NewMemory()
	default:
		st, err := store.Open(cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("open storage %s: %w", cfg.StoragePath, err)
		}
		a.Storage = st
		a.closeStorage = st.Close
	}
	return nil
}

// Close waits for background drains, stops the probe and closes storage.
func (a *App) Close() error {
	a.stopProbe()
	if a.Queue != nil {
		a.Queue.Wait()
		a.Queue.Close()
	}
	if a.closeStorage != nil {
		if err := a.closeStorage(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
