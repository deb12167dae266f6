package grpcapi

import (
	"context"
	"regexp"
	"time"

	"github.com/flagforge/ctfmanager/api/proto"
	"github.com/flagforge/ctfmanager/pkg/challenge"
	"github.com/flagforge/ctfmanager/pkg/cluster"
	"github.com/flagforge/ctfmanager/pkg/compose"
	"github.com/flagforge/ctfmanager/pkg/ctferrors"
	"github.com/flagforge/ctfmanager/pkg/instance"
	"github.com/flagforge/ctfmanager/pkg/netpolicy"
)

// idPattern matches spec.md §4.J's "lowercase alnum/-_" challenge id rule.
var idPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ListChallenges implements proto.ChallengesServer, per spec.md §4.J: loads
// actor's challenge set (via the short-TTL cache), filters out unreleased
// challenges when require_release is set, and scores each one per spec.md
// §4.E.
func (s *Service) ListChallenges(_ context.Context, req *proto.ListChallengesRequest) (*proto.ListChallengesResponse, error) {
	if req.Actor == "" {
		return nil, ctferrors.BadArgumentf("actor is required")
	}

	challenges, err := s.loadChallenges(req.Actor)
	if err != nil {
		return nil, err
	}

	eventCfg, err := s.loadEventConfig()
	if err != nil {
		return nil, err
	}

	out := make([]*proto.Challenge, 0, len(challenges))
	for _, c := range challenges {
		if req.RequireRelease && !released(c.Metadata) {
			continue
		}

		solve := req.Solved[c.ID]
		solved := solve != nil

		points := 100
		if pts, err := challenge.Points(eventCfg.PointsFn, c.Metadata, int(solveTotal(solve)), int(solveNth(solve)), int(req.TotalCompetitors)); err == nil {
			points = pts
		} else {
			logger.Warn().Err(err).Str("challenge_id", c.ID).Msg("scoring script errored; falling back to flat points")
		}

		out = append(out, &proto.Challenge{
			Id:            c.ID,
			Name:          c.Metadata.Name,
			Authors:       c.Metadata.Authors,
			DescriptionMD: c.Metadata.DescriptionMD,
			Categories:    c.Metadata.Categories,
			Difficulty:    c.Metadata.Difficulty,
			Attachments:   c.Metadata.Attachments,
			ReleaseTime:   c.Metadata.ReleaseTime,
			EndTime:       c.Metadata.EndTime,
			Points:        int32(points),
			CanStart:      isStartable(c.Compose),
			Solved:        solved,
		})
	}

	return &proto.ListChallengesResponse{Challenges: out}, nil
}

func solveNth(s *proto.SolveRecord) int32 {
	if s == nil {
		return 0
	}
	return s.NthSolve
}

func solveTotal(s *proto.SolveRecord) int32 {
	if s == nil {
		return 0
	}
	return s.TotalSolves
}

func released(m *challenge.Metadata) bool {
	if m.ReleaseTime == nil {
		return true
	}
	return time.Now().Unix() >= *m.ReleaseTime
}

// isStartable reports invariant (2): a challenge is startable iff its
// compose document declares at least one service or one VM.
func isStartable(doc *compose.Document) bool {
	return len(doc.Services) > 0 || len(doc.VMs) > 0
}

// StartChallengeInstance implements proto.ChallengesServer per spec.md
// §4.J's exact contract: validate id, load, reject if not startable or
// unreleased-and-required, prepare an instance slot, render, translate,
// and apply every object in the fixed Deployment→Service→IngressRoute→
// IngressRouteTCP→PVC→SSHGateway order, plus the namespace's network
// policies.
func (s *Service) StartChallengeInstance(ctx context.Context, req *proto.StartChallengeInstanceRequest) (*proto.StartChallengeInstanceResponse, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if req.Actor == "" {
		return nil, ctferrors.BadArgumentf("actor is required")
	}
	if !idPattern.MatchString(req.ChallengeId) {
		return nil, ctferrors.BadArgumentf("challenge id %q must be lowercase alphanumeric, '-' or '_'", req.ChallengeId)
	}

	chall, scratch, cleanup, err := challenge.OpenForInstance(s.cfg.RepoDir, req.ChallengeId, req.Actor)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if !isStartable(chall.Compose) {
		return nil, ctferrors.FailedPreconditionf("NotStartable: challenge %q declares no services or VMs", req.ChallengeId)
	}
	if req.RequireRelease && !released(chall.Metadata) {
		return nil, ctferrors.FailedPreconditionf("Unreleased: challenge %q is not yet released", req.ChallengeId)
	}

	instanceID, err := s.cfg.Instances.Prepare(ctx, req.ChallengeId, req.Actor)
	if err != nil {
		return nil, err
	}
	namespace := instance.NamespaceName(req.ChallengeId, instanceID)

	plan, err := s.translateForInstance(scratch, chall, req.Actor, instanceID, namespace)
	if err != nil {
		_ = s.cfg.Instances.Delete(ctx, req.ChallengeId, req.Actor, instanceID)
		return nil, err
	}

	if err := cluster.Apply(ctx, s.cfg.Applier, plan); err != nil {
		_ = s.cfg.Instances.Delete(ctx, req.ChallengeId, req.Actor, instanceID)
		return nil, err
	}

	return &proto.StartChallengeInstanceResponse{
		InstanceId:     instanceID,
		ConnectionInfo: connectionInfo(chall.Compose, namespace, s.cfg.ExposedDomain),
	}, nil
}

// translateForInstance runs the compose translator and appends the
// namespace's synthesized network policies (invariant (7)), per spec.md
// §4.F/§4.H.
func (s *Service) translateForInstance(scratch string, chall *challenge.Challenge, actor, instanceID, namespace string) (*cluster.Plan, error) {
	opts := compose.Options{
		ChallengeID:         chall.ID,
		InstanceNamespace:   namespace,
		ExposedDomain:       s.cfg.ExposedDomain,
		MetadataDataPVCSize: chall.Metadata.DataPVCSize,
		DerivePassword: func(purpose string) string {
			return challenge.DerivePassword(s.cfg.HMACSecretKey, chall.Metadata.SecretMaterial(), actor, instanceID, purpose)
		},
	}

	plan, err := compose.Translate(scratch, chall.Compose, opts)
	if err != nil {
		return nil, err
	}

	plan.Objects = append(plan.Objects, netpolicy.Base(namespace, netpolicy.Options{
		InsecureForceDisableDNSChecks: s.cfg.InsecureForceDisableDNSChecks,
	}))
	overrides, err := netpolicy.Overrides(namespace, chall.Compose.Services, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range overrides {
		plan.Objects = append(plan.Objects, p)
	}

	return plan, nil
}

// StopChallengeInstance implements proto.ChallengesServer: list the
// actor's instances of the challenge and delete every non-Terminating one.
func (s *Service) StopChallengeInstance(ctx context.Context, req *proto.StopChallengeInstanceRequest) (*proto.StopChallengeInstanceResponse, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if req.Actor == "" {
		return nil, ctferrors.BadArgumentf("actor is required")
	}

	states, err := s.cfg.Instances.List(ctx, req.ChallengeId, req.Actor)
	if err != nil {
		return nil, err
	}

	for name, state := range states {
		if state == instance.StateTerminating {
			continue
		}
		instanceID := instanceIDFromNamespace(req.ChallengeId, name)
		if instanceID == "" {
			continue
		}
		if err := s.cfg.Instances.Delete(ctx, req.ChallengeId, req.Actor, instanceID); err != nil {
			return nil, err
		}
	}

	return &proto.StopChallengeInstanceResponse{Success: true}, nil
}

// GetChallengeInstanceStatus implements proto.ChallengesServer: returns the
// first non-Terminating instance's computed connection info, or reports
// not-deployed.
func (s *Service) GetChallengeInstanceStatus(ctx context.Context, req *proto.GetChallengeInstanceStatusRequest) (*proto.GetChallengeInstanceStatusResponse, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if req.Actor == "" {
		return nil, ctferrors.BadArgumentf("actor is required")
	}

	states, err := s.cfg.Instances.List(ctx, req.ChallengeId, req.Actor)
	if err != nil {
		return nil, err
	}

	var namespace string
	var state instance.State
	for name, st := range states {
		if st == instance.StateTerminating {
			continue
		}
		namespace, state = name, st
		break
	}
	if namespace == "" {
		return &proto.GetChallengeInstanceStatusResponse{IsDeployed: false}, nil
	}

	chall, err := challenge.Load(s.cfg.RepoDir, req.ChallengeId, req.Actor, false)
	if err != nil {
		return nil, err
	}

	return &proto.GetChallengeInstanceStatusResponse{
		IsDeployed:     true,
		IsReady:        state == instance.StateRunning,
		ConnectionInfo: connectionInfo(chall.Compose, namespace, s.cfg.ExposedDomain),
	}, nil
}

// CheckFlag implements proto.ChallengesServer per invariant (4): scans one
// challenge (if challenge_id is given) or every challenge, returning the
// first match. A validator error surfaces only when exactly one candidate
// was scanned; during a multi-challenge scan it's logged and skipped.
//
// RequireRelease mirrors the other RPCs' requireRelease parameter, per
// SPEC_FULL.md's documented resolution of this Open Question: when true, an
// unreleased challenge is excluded from scanning rather than having its
// validator invoked, except when it's the sole candidate (challenge_id was
// given), in which case FailedPrecondition surfaces exactly as
// StartChallengeInstance's unreleased check does.
func (s *Service) CheckFlag(_ context.Context, req *proto.CheckFlagRequest) (*proto.CheckFlagResponse, error) {
	if req.Actor == "" {
		return nil, ctferrors.BadArgumentf("actor is required")
	}
	if req.Flag == "" {
		return nil, ctferrors.BadArgumentf("flag is required")
	}

	var candidates []*challenge.Challenge
	if req.ChallengeId != "" {
		chall, err := challenge.Load(s.cfg.RepoDir, req.ChallengeId, req.Actor, false)
		if err != nil {
			return nil, err
		}
		if req.RequireRelease && !released(chall.Metadata) {
			return nil, ctferrors.FailedPreconditionf("Unreleased: challenge %q is not yet released", req.ChallengeId)
		}
		candidates = []*challenge.Challenge{chall}
	} else {
		all, err := s.loadChallenges(req.Actor)
		if err != nil {
			return nil, err
		}
		if req.RequireRelease {
			for _, c := range all {
				if released(c.Metadata) {
					candidates = append(candidates, c)
				}
			}
		} else {
			candidates = all
		}
	}

	for _, c := range candidates {
		ok, err := c.Metadata.CheckFlag(req.Flag)
		if err != nil {
			if len(candidates) == 1 {
				return nil, err
			}
			logger.Warn().Err(err).Str("challenge_id", c.ID).Msg("flag validator errored during scan; continuing")
			continue
		}
		if ok {
			return &proto.CheckFlagResponse{SolvedChallengeId: c.ID}, nil
		}
	}
	return &proto.CheckFlagResponse{}, nil
}

// ExportChallenge implements proto.ChallengesServer: loads with
// is_export=true and refuses challenges that haven't opted into source
// publication.
func (s *Service) ExportChallenge(_ context.Context, req *proto.ExportChallengeRequest) (*proto.ExportChallengeResponse, error) {
	if req.Actor == "" {
		return nil, ctferrors.BadArgumentf("actor is required")
	}

	chall, err := challenge.Load(s.cfg.RepoDir, req.ChallengeId, req.Actor, false)
	if err != nil {
		return nil, err
	}
	if req.RequireRelease && !released(chall.Metadata) {
		return nil, ctferrors.FailedPreconditionf("Unreleased: challenge %q is not yet released", req.ChallengeId)
	}
	if !chall.Metadata.AutoPublishSrc {
		return nil, ctferrors.PermissionDeniedf("challenge %q has not opted into source export", req.ChallengeId)
	}

	chall, err = challenge.Load(s.cfg.RepoDir, req.ChallengeId, req.Actor, true)
	if err != nil {
		return nil, err
	}
	return &proto.ExportChallengeResponse{Data: chall.Export}, nil
}

// RetrieveFile implements proto.ChallengesServer: renders the challenge for
// actor, checks filename against the attachment allowlist, and returns its
// bytes.
func (s *Service) RetrieveFile(_ context.Context, req *proto.RetrieveFileRequest) (*proto.RetrieveFileResponse, error) {
	if req.Actor == "" {
		return nil, ctferrors.BadArgumentf("actor is required")
	}

	chall, scratch, cleanup, err := challenge.OpenForInstance(s.cfg.RepoDir, req.ChallengeId, req.Actor)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if req.RequireRelease && !released(chall.Metadata) {
		return nil, ctferrors.FailedPreconditionf("Unreleased: challenge %q is not yet released", req.ChallengeId)
	}

	allowed := false
	for _, a := range chall.Metadata.Attachments {
		if a == req.Filename {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ctferrors.NotFoundf("%q is not an attachment of challenge %q", req.Filename, req.ChallengeId)
	}

	data, err := readAttachment(scratch, req.Filename)
	if err != nil {
		return nil, err
	}
	return &proto.RetrieveFileResponse{Data: data}, nil
}

// instanceIDFromNamespace extracts the instance id suffix of a namespace
// built by instance.NamespaceName, or "" if it doesn't match that shape.
func instanceIDFromNamespace(challengeID, namespace string) string {
	prefix := instance.NamespaceName(challengeID, "")
	if len(namespace) <= len(prefix) || namespace[:len(prefix)] != prefix {
		return ""
	}
	return namespace[len(prefix):]
}
