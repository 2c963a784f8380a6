package detection

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	defaultProbeTimeout = 5 * time.Second
	maxConcurrentProbes = 4
)

var (
	ErrEngineNotFound  = errors.NewStd("detection engine not found")
	ErrNoEngines       = errors.NewStd("no detection engines registered")
	ErrDuplicateEngine = errors.NewStd("detection engine already registered")
)

// Registry holds the engines known to this process. It is built once at
// startup and passed to the services that need it.
type Registry struct {
	mu          sync.RWMutex
	engines     map[string]Engine
	order       []string
	defaultName string

	statusCache  *cache.Cache // nil disables caching
	probeTimeout time.Duration
	log          logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStatusCacheTTL caches availability probes for ttl. Zero disables caching.
func WithStatusCacheTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			// no janitor: expired entries are ignored on read and overwritten on probe
			r.statusCache = cache.New(ttl, 0)
		}
	}
}

// WithProbeTimeout bounds each IsAvailable call.
func WithProbeTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry whose default engine is defaultName.
func NewRegistry(defaultName string, opts ...RegistryOption) *Registry {
	r := &Registry{
		engines:      make(map[string]Engine),
		defaultName:  defaultName,
		probeTimeout: defaultProbeTimeout,
		log:          logger.Global().Module("detection"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an engine. Names must be unique. When no default was
// configured the first registered engine becomes the default.
func (r *Registry) Register(e Engine) error {
	if e == nil {
		return errors.Newf("cannot register nil engine").
			Category(errors.CategoryEngineRegistry).
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if _, exists := r.engines[name]; exists {
		return errors.New(ErrDuplicateEngine).
			Category(errors.CategoryEngineRegistry).
			Context("engine", name).
			Build()
	}

	r.engines[name] = e
	r.order = append(r.order, name)
	if r.defaultName == "" {
		r.defaultName = name
	}

	r.log.Info("registered detection engine",
		logger.String("engine", name),
		logger.String("version", e.Version()))
	return nil
}

// SetDefault changes the default engine. The engine must be registered.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.engines[name]; !ok {
		return errors.New(ErrEngineNotFound).
			Category(errors.CategoryEngineRegistry).
			Context("engine", name).
			Build()
	}
	r.defaultName = name
	return nil
}

// DefaultName returns the configured default engine name.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// Names returns engine names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Engines returns the engines in registration order.
func (r *Registry) Engines() []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Engine, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.engines[name])
	}
	return out
}

// Get returns the named engine, falling back to the default when the name
// is unknown or empty.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.engines[name]; ok {
		return e, nil
	}
	if name != "" {
		r.log.Warn("requested engine not found, falling back to default",
			logger.String("engine", name),
			logger.String("default", r.defaultName))
	}
	if e, ok := r.engines[r.defaultName]; ok {
		return e, nil
	}
	return nil, r.missingLocked(name)
}

func (r *Registry) missingLocked(name string) error {
	sentinel := ErrEngineNotFound
	if len(r.engines) == 0 {
		sentinel = ErrNoEngines
	}
	return errors.New(sentinel).
		Category(errors.CategoryEngineRegistry).
		Context("engine", name).
		Build()
}

// Statuses probes every engine concurrently and returns results in
// registration order. Probe results are cached when a TTL is configured.
func (r *Registry) Statuses(ctx context.Context) []Status {
	engines := r.Engines()
	statuses := make([]Status, len(engines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	for i, e := range engines {
		statuses[i] = Status{Name: e.Name(), Version: e.Version(), Model: e.ModelName()}
		g.Go(func() error {
			statuses[i].Available = r.probe(gctx, e)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

func (r *Registry) probe(ctx context.Context, e Engine) bool {
	if r.statusCache != nil {
		if v, ok := r.statusCache.Get(e.Name()); ok {
			return v.(bool)
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	available := e.IsAvailable(probeCtx)
	if r.statusCache != nil {
		r.statusCache.SetDefault(e.Name(), available)
	}
	if !available {
		r.log.Debug("engine unavailable", logger.String("engine", e.Name()))
	}
	return available
}

// InvalidateStatus drops cached probe results.
func (r *Registry) InvalidateStatus() {
	if r.statusCache != nil {
		r.statusCache.Flush()
	}
}

// BestAvailable returns the engine chosen by SelectBestAvailable. When no
// engine is available it still returns the default (or the first
// registered engine) so the caller gets the engine's own error.
func (r *Registry) BestAvailable(ctx context.Context) (Engine, error) {
	statuses := r.Statuses(ctx)
	name, ok := SelectBestAvailable(r.DefaultName(), statuses)
	if !ok {
		r.log.Warn("no detection engine available, using default anyway",
			logger.String("default", name))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, found := r.engines[name]; found {
		return e, nil
	}
	if len(r.order) > 0 {
		return r.engines[r.order[0]], nil
	}
	return nil, r.missingLocked(name)
}

// Metadata returns per-engine metadata keyed by engine name.
func (r *Registry) Metadata() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, e := range r.Engines() {
		out[e.Name()] = e.Metadata()
	}
	return out
}
