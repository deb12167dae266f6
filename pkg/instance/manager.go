// Package instance implements the challenge instance lifecycle manager,
// per spec.md §4.G: list/prepare/delete over namespaces labelled by
// challenge and actor.
package instance

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/flagforge/ctfmanager/pkg/ctferrors"
	"github.com/flagforge/ctfmanager/pkg/log"
)

// Quota is the maximum number of concurrent instances one actor may hold for
// one challenge, per spec.md §4.G.
const Quota = 5

// State is the observed lifecycle state of one instance namespace.
type State string

const (
	StateCreating    State = "Creating"
	StateRunning     State = "Running"
	StateTerminating State = "Terminating"
)

// Namespace is the minimal view the manager needs of a cluster namespace:
// its labels and pod phases, abstracted behind NamespaceStore so the
// manager never depends on a concrete cluster client.
type Namespace struct {
	Name              string
	Labels            map[string]string
	DeletionTimestamp *time.Time
	Terminating       bool
	PodPhases         []string
}

// state derives this namespace's lifecycle State per spec.md §4.G's rule:
// Terminating if deletion timestamp set or the namespace itself is
// terminating; Running if every pod is Running or Succeeded; else Creating.
func (n Namespace) state() State {
	if n.DeletionTimestamp != nil || n.Terminating {
		return StateTerminating
	}
	for _, phase := range n.PodPhases {
		if phase != "Running" && phase != "Succeeded" {
			return StateCreating
		}
	}
	return StateRunning
}

// NamespaceStore is the cluster-facing dependency the manager needs:
// enumerate, create, and delete namespaces by label. A real implementation
// talks to the cluster API; tests use an in-memory fake.
type NamespaceStore interface {
	List(ctx context.Context, labels map[string]string) ([]Namespace, error)
	Create(ctx context.Context, name string, labels map[string]string) error
	Delete(ctx context.Context, name string) error
}

var logger = log.WithComponent("instance")

// Manager implements list/prepare/delete over a NamespaceStore.
type Manager struct {
	store NamespaceStore
	locks sync.Map // key: challengeID+"/"+actor -> *sync.Mutex
}

// NewManager constructs a Manager backed by store.
func NewManager(store NamespaceStore) *Manager {
	return &Manager{store: store}
}

// NamespaceName returns the cluster namespace name for one instance, per
// spec.md §6's `challenge-<chall_id>-instance-<12-hex>` naming rule. Callers
// that need to render or translate a challenge before instance creation can
// compute the eventual namespace ahead of Prepare returning.
func NamespaceName(challengeID, instanceID string) string {
	return fmt.Sprintf("challenge-%s-instance-%s", challengeID, instanceID)
}

// List enumerates the actor's instances of challengeID, keyed by namespace
// name, per spec.md §4.G.
func (m *Manager) List(ctx context.Context, challengeID, actor string) (map[string]State, error) {
	namespaces, err := m.store.List(ctx, map[string]string{"challenge_id": challengeID, "actor_id": actor})
	if err != nil {
		return nil, fmt.Errorf("list instance namespaces: %w", err)
	}
	out := make(map[string]State, len(namespaces))
	for _, ns := range namespaces {
		out[ns.Name] = ns.state()
	}
	return out, nil
}

// Prepare creates a new instance namespace for (challengeID, actor), per
// spec.md §4.G. Prepare holds a per-(challengeID, actor) lock only around
// the quota/duplicate check and namespace creation. The lock is not
// exported, so a caller's later steps (translating the compose document,
// applying the resulting plan) run outside it.
func (m *Manager) Prepare(ctx context.Context, challengeID, actor string) (string, error) {
	lock := m.lockFor(challengeID, actor)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.List(ctx, challengeID, actor)
	if err != nil {
		return "", err
	}
	if len(existing) >= Quota {
		return "", ctferrors.FailedPreconditionf("QuotaExceeded: actor %q already has %d instances of challenge %q", actor, len(existing), challengeID)
	}
	for name, state := range existing {
		if state == StateRunning || state == StateCreating {
			return "", ctferrors.FailedPreconditionf("AlreadyActive: actor %q already has an active instance %q of challenge %q", actor, name, challengeID)
		}
	}

	for attempt := 0; attempt < 10; attempt++ {
		instanceID, err := randomHex(12)
		if err != nil {
			return "", fmt.Errorf("generate instance id: %w", err)
		}
		name := NamespaceName(challengeID, instanceID)
		if _, ok := existing[name]; ok {
			continue
		}
		if err := m.store.Create(ctx, name, map[string]string{"challenge_id": challengeID, "actor_id": actor}); err != nil {
			return "", fmt.Errorf("create instance namespace: %w", err)
		}
		logger.Info().Str("challenge_id", challengeID).Str("actor_id", actor).Str("namespace", name).Msg("instance namespace created")
		return instanceID, nil
	}
	return "", ctferrors.Internalf(nil, "exhausted retries generating a unique instance id")
}

// Delete removes the actor's instanceID of challengeID, refusing if the
// actor label doesn't match, per spec.md §4.G.
func (m *Manager) Delete(ctx context.Context, challengeID, actor, instanceID string) error {
	name := NamespaceName(challengeID, instanceID)
	namespaces, err := m.store.List(ctx, map[string]string{"challenge_id": challengeID})
	if err != nil {
		return fmt.Errorf("list instance namespaces: %w", err)
	}
	var found *Namespace
	for i := range namespaces {
		if namespaces[i].Name == name {
			found = &namespaces[i]
			break
		}
	}
	if found == nil {
		return ctferrors.NotFoundf("no such instance %q of challenge %q", instanceID, challengeID)
	}
	if found.Labels["actor_id"] != actor {
		return ctferrors.PermissionDeniedf("instance %q does not belong to actor %q", instanceID, actor)
	}
	if err := m.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete instance namespace: %w", err)
	}
	logger.Info().Str("challenge_id", challengeID).Str("actor_id", actor).Str("namespace", name).Msg("instance namespace deleted")
	return nil
}

func (m *Manager) lockFor(challengeID, actor string) *sync.Mutex {
	key := challengeID + "/" + actor
	lock, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
