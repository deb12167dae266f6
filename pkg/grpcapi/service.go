// Package grpcapi implements the proto-agnostic gRPC facade spec.md §4.J/§6
// describes: the Challenges and Repository services wired over
// api/proto's hand-authored messages, grounded on the actual
// challenge/compose/cluster/instance/gitsync/eventconfig components the
// rest of this module builds.
package grpcapi

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/flagforge/ctfmanager/api/proto"
	"github.com/flagforge/ctfmanager/pkg/challenge"
	"github.com/flagforge/ctfmanager/pkg/cluster"
	"github.com/flagforge/ctfmanager/pkg/ctferrors"
	"github.com/flagforge/ctfmanager/pkg/eventconfig"
	"github.com/flagforge/ctfmanager/pkg/gitsync"
	"github.com/flagforge/ctfmanager/pkg/instance"
	"github.com/flagforge/ctfmanager/pkg/log"
)

// listCacheTTL bounds how long a ListChallenges response is reused for the
// same actor before the repository is re-read, per spec.md §5's per-actor
// short-TTL cache.
const listCacheTTL = 5 * time.Second

// syncDeadline is the outer timeout spec.md §5 gives RPCs that touch the
// repository's working tree or the cluster API.
const syncDeadline = 30 * time.Second

var logger = log.WithComponent("grpcapi")

// Config carries every dependency Service needs. RepoDir is the synced
// repository's working tree (pkg/gitsync's Sync destination).
type Config struct {
	RepoDir                       string
	GitURL                        string
	GitBranch                     string
	ExposedDomain                 string
	HMACSecretKey                 []byte
	InsecureForceDisableDNSChecks bool

	Applier   cluster.Applier
	Instances *instance.Manager
}

// Service implements both proto.ChallengesServer and proto.RepositoryServer
// against the module's internal packages.
type Service struct {
	cfg Config

	mu         sync.Mutex
	syncStatus *syncStatus

	cacheMu sync.Mutex
	cache   map[string]listCacheEntry
}

type syncStatus struct {
	commitHash    string
	commitMessage string
	syncedAt      time.Time
}

// listCacheEntry memoizes the loaded (but not yet scored or
// release-filtered) challenge set for one actor — the part of
// ListChallenges that costs a repository walk and per-challenge template
// render. Scoring and require_release filtering are recomputed every call
// since they depend on the caller-supplied solved map and competitor count.
type listCacheEntry struct {
	challenges []*challenge.Challenge
	expiresAt  time.Time
}

// NewService constructs a Service from cfg.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, cache: make(map[string]listCacheEntry)}
}

// Register wires both the Challenges and Repository services onto
// grpcServer, backed by svc.
func Register(grpcServer *grpc.Server, svc *Service) {
	proto.RegisterChallengesServer(grpcServer, svc)
	proto.RegisterRepositoryServer(grpcServer, svc)
}

func (s *Service) lastSyncStatus() *syncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncStatus
}

func (s *Service) setSyncStatus(info *gitsync.CommitInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncStatus = &syncStatus{
		commitHash:    info.Hash,
		commitMessage: info.Title,
		syncedAt:      time.Now(),
	}
	s.cacheMu.Lock()
	s.cache = make(map[string]listCacheEntry)
	s.cacheMu.Unlock()
}

func (s *Service) cachedChallenges(actor string) ([]*challenge.Challenge, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	entry, ok := s.cache[actor]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.challenges, true
}

func (s *Service) storeChallenges(actor string, challenges []*challenge.Challenge) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[actor] = listCacheEntry{challenges: challenges, expiresAt: time.Now().Add(listCacheTTL)}
}

// loadChallenges returns actor's challenge set, consulting the short-TTL
// cache first.
func (s *Service) loadChallenges(actor string) ([]*challenge.Challenge, error) {
	if cached, ok := s.cachedChallenges(actor); ok {
		return cached, nil
	}
	challenges, err := challenge.LoadAll(s.cfg.RepoDir, actor, false)
	if err != nil {
		return nil, err
	}
	s.storeChallenges(actor, challenges)
	return challenges, nil
}

func (s *Service) loadEventConfig() (*eventconfig.Config, error) {
	return eventconfig.Load(s.cfg.RepoDir)
}

// withDeadline bounds ctx to syncDeadline when the caller hasn't already set
// a tighter one, per spec.md §5's 30s outer gRPC deadline.
func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, syncDeadline)
}

// UnaryStatusInterceptor maps ctferrors.Kind onto the equivalent grpc
// status code, so the JSON codec's error frames still carry a meaningful
// code for clients that inspect status.Code(err).
func UnaryStatusInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := status.FromError(err); ok {
		return resp, err
	}
	logger.Warn().Err(err).Str("method", info.FullMethod).Msg("rpc failed")
	return resp, status.Error(codeForKind(ctferrors.KindOf(err)), err.Error())
}

func codeForKind(kind ctferrors.Kind) codes.Code {
	switch kind {
	case ctferrors.BadArgument:
		return codes.InvalidArgument
	case ctferrors.NotFound:
		return codes.NotFound
	case ctferrors.PermissionDenied:
		return codes.PermissionDenied
	case ctferrors.FailedPrecondition:
		return codes.FailedPrecondition
	case ctferrors.ScriptErrorKind, ctferrors.PropertyNotSupported:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}
