package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/flagforge/ctfmanager/pkg/cluster"
)

// GatewaySource lists the currently-applied SSHGateway custom resources,
// cluster-wide, per spec.md §4.I step 3.
type GatewaySource interface {
	List(ctx context.Context) ([]cluster.SSHGateway, error)
}

// ServiceResolver resolves a backend service's address within a namespace,
// used to wait for the referenced backend to exist before registering it.
type ServiceResolver interface {
	Resolve(ctx context.Context, namespace, service string) (addr string, ok bool, err error)
}

// Controller reconciles SSHGateway CRs into BackendRegistry entries. It
// polls on a ticker rather than a push-based watch — the same
// ticker+stopCh shape this codebase's other background reconcilers use. An
// unresolved backend simply waits for the next tick: retries run at the
// fixed polling interval and do not back off.
type Controller struct {
	source   GatewaySource
	resolver ServiceResolver
	registry *BackendRegistry
	interval time.Duration

	mu      sync.Mutex
	known   map[string]bool
	stopCh  chan struct{}
	started bool
}

// NewController constructs a Controller. interval defaults to 5s if zero.
func NewController(source GatewaySource, resolver ServiceResolver, registry *BackendRegistry, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Controller{
		source:   source,
		resolver: resolver,
		registry: registry,
		interval: interval,
		known:    make(map[string]bool),
	}
}

// Start begins polling in a background goroutine.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		ctx := context.Background()
		c.Reconcile(ctx)
		for {
			select {
			case <-ticker.C:
				c.Reconcile(ctx)
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop halts polling.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	close(c.stopCh)
	c.started = false
}

// Reconcile runs a single pass: register every resolvable gateway's
// backend, leave unresolvable ones for the next pass, and unregister
// entries whose CR has disappeared since the last pass.
func (c *Controller) Reconcile(ctx context.Context) {
	gateways, err := c.source.List(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("list SSHGateway resources failed")
		return
	}

	seen := make(map[string]bool, len(gateways))
	for _, gw := range gateways {
		key := RegistryKey(gw.Spec.BackendService, gw.ObjectMeta.Namespace)
		seen[key] = true

		addr, ok, err := c.resolver.Resolve(ctx, gw.ObjectMeta.Namespace, gw.Spec.BackendService)
		if err != nil {
			logger.Warn().Err(err).Str("gateway", gw.ObjectMeta.Name).Msg("resolve backend service failed")
			continue
		}
		if !ok {
			logger.Debug().Str("gateway", gw.ObjectMeta.Name).Msg("backend service not yet ready, will retry")
			continue
		}

		c.registry.Register(key, Backend{
			Addr:            addr,
			Username:        gw.Spec.BackendUsername,
			Password:        gw.Spec.BackendPassword,
			GatewayPassword: gw.Spec.GatewayPassword,
		})
	}

	c.mu.Lock()
	for key := range c.known {
		if !seen[key] {
			c.registry.Unregister(key)
		}
	}
	c.known = seen
	c.mu.Unlock()
}
