package grpcapi

import (
	"context"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/flagforge/ctfmanager/api/proto"
	"github.com/flagforge/ctfmanager/pkg/eventconfig"
	"github.com/flagforge/ctfmanager/pkg/gitsync"
)

// SyncChallenges implements proto.RepositoryServer, per spec.md §4.C:
// re-syncs the repository working tree with its remote branch, swapping
// the fresh clone in, and invalidates the per-actor challenge-list cache.
func (s *Service) SyncChallenges(_ context.Context, _ *proto.SyncChallengesRequest) (*proto.SyncChallengesResponse, error) {
	if err := gitsync.Sync(s.cfg.RepoDir, s.cfg.GitURL, s.cfg.GitBranch); err != nil {
		return nil, err
	}

	info, err := gitsync.HeadInfo(s.cfg.RepoDir)
	if err != nil {
		return nil, err
	}
	s.setSyncStatus(info)

	return &proto.SyncChallengesResponse{SyncStatus: protoSyncStatus(s.lastSyncStatus())}, nil
}

// GetSyncStatus implements proto.RepositoryServer: returns the last known
// sync result, or a nil sync_status if the repository has never been
// synced this process's lifetime.
func (s *Service) GetSyncStatus(_ context.Context, _ *proto.GetSyncStatusRequest) (*proto.GetSyncStatusResponse, error) {
	return &proto.GetSyncStatusResponse{SyncStatus: protoSyncStatus(s.lastSyncStatus())}, nil
}

// GetEventConfiguration implements proto.RepositoryServer: parses and
// returns the repository's event.yml.
func (s *Service) GetEventConfiguration(_ context.Context, _ *proto.GetEventConfigurationRequest) (*proto.GetEventConfigurationResponse, error) {
	cfg, err := s.loadEventConfig()
	if err != nil {
		return nil, err
	}
	return &proto.GetEventConfigurationResponse{Config: protoEventConfig(cfg)}, nil
}

func protoSyncStatus(status *syncStatus) *proto.SyncStatus {
	if status == nil {
		return nil
	}
	return &proto.SyncStatus{
		CommitHash:    status.commitHash,
		CommitMessage: status.commitMessage,
		SyncedAt:      timestamppb.New(status.syncedAt),
	}
}

func protoEventConfig(cfg *eventconfig.Config) *proto.EventConfig {
	categories := make(map[string]*proto.Category, len(cfg.Categories))
	for k, v := range cfg.Categories {
		categories[k] = &proto.Category{Name: v.Name, Description: v.Description, Color: v.Color}
	}

	difficulties := make(map[string]*proto.Difficulty, len(cfg.Difficulties))
	for k, v := range cfg.Difficulties {
		difficulties[k] = &proto.Difficulty{Name: v.Name, Color: v.Color}
	}

	return &proto.EventConfig{
		Name:              cfg.Name,
		FrontPageMD:       cfg.FrontPageMD,
		RulesMD:           cfg.RulesMD,
		StartTime:         cfg.StartTime,
		EndTime:           cfg.EndTime,
		RegistrationStart: cfg.RegistrationStart,
		RegistrationEnd:   cfg.RegistrationEnd,
		TeamsEnabled:      cfg.TeamsEnabled,
		MaxTeamSize:       int32(cfg.MaxTeamSize),
		FreezeTime:        cfg.FreezeTime,
		Categories:        categories,
		Difficulties:      difficulties,
	}
}
