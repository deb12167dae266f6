// Package proto carries the wire contract for ctfmanager's gRPC facade:
// the request/response shapes and service descriptors spec.md §4.J/§6
// names (challenges.*, repository.*).
//
// A real build of this package would be generated by protoc from a .proto
// IDL (see ctfmanager.proto in this directory) the way api/proto is built
// in the system this one is modeled on. Without a protoc toolchain
// available, the message types below are plain Go structs shaped the same
// way generated code would shape them, and the wire codec is JSON rather
// than protobuf (see codec.go) — deliberately not real protobuf wire
// format, since these types don't implement protoreflect.ProtoMessage.
package proto

import "google.golang.org/protobuf/types/known/timestamppb"

// Challenge is one entry of a ListChallenges response.
type Challenge struct {
	Id            string   `json:"id"`
	Name          string   `json:"name"`
	Authors       []string `json:"authors"`
	DescriptionMD string   `json:"description_md"`
	Categories    []string `json:"categories"`
	Difficulty    string   `json:"difficulty"`
	Attachments   []string `json:"attachments"`
	ReleaseTime   *int64   `json:"release_time,omitempty"`
	EndTime       *int64   `json:"end_time,omitempty"`
	Points        int32    `json:"points"`
	CanStart      bool     `json:"can_start"`
	Solved        bool     `json:"solved"`
}

// SolveRecord is one entry of ListChallengesRequest.Solved, per spec.md
// §4.J's `solved: map<id, {nth_solve, total_solves}>`.
type SolveRecord struct {
	NthSolve    int32 `json:"nth_solve"`
	TotalSolves int32 `json:"total_solves"`
}

type ListChallengesRequest struct {
	Actor            string                  `json:"actor"`
	Solved           map[string]*SolveRecord `json:"solved"`
	TotalCompetitors int32                   `json:"total_competitors"`
	RequireRelease   bool                    `json:"require_release"`
}

type ListChallengesResponse struct {
	Challenges []*Challenge `json:"challenges"`
}

type StartChallengeInstanceRequest struct {
	ChallengeId    string `json:"challenge_id"`
	Actor          string `json:"actor"`
	RequireRelease bool   `json:"require_release"`
}

// ConnectionInfo describes one reachable port of a deployed instance, per
// spec.md §4.J's "Connection info" rule.
type ConnectionInfo struct {
	Service  string `json:"service"`
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	Protocol string `json:"protocol"` // https | tcp_tls | ssh | udp | tcp
}

type StartChallengeInstanceResponse struct {
	InstanceId     string            `json:"instance_id"`
	ConnectionInfo []*ConnectionInfo `json:"connection_info"`
}

type StopChallengeInstanceRequest struct {
	ChallengeId string `json:"challenge_id"`
	Actor       string `json:"actor"`
}

type StopChallengeInstanceResponse struct {
	Success bool `json:"success"`
}

type GetChallengeInstanceStatusRequest struct {
	ChallengeId string `json:"challenge_id"`
	Actor       string `json:"actor"`
}

type GetChallengeInstanceStatusResponse struct {
	IsDeployed     bool              `json:"is_deployed"`
	IsReady        bool              `json:"is_ready"`
	ConnectionInfo []*ConnectionInfo `json:"connection_info"`
}

type CheckFlagRequest struct {
	Actor          string `json:"actor"`
	ChallengeId    string `json:"challenge_id,omitempty"` // empty scans every challenge
	Flag           string `json:"flag"`
	RequireRelease bool   `json:"require_release"`
}

type CheckFlagResponse struct {
	SolvedChallengeId string `json:"solved_challenge_id,omitempty"`
}

type ExportChallengeRequest struct {
	ChallengeId    string `json:"challenge_id"`
	Actor          string `json:"actor"`
	RequireRelease bool   `json:"require_release"`
}

type ExportChallengeResponse struct {
	Data []byte `json:"data"`
}

type RetrieveFileRequest struct {
	ChallengeId    string `json:"challenge_id"`
	Actor          string `json:"actor"`
	Filename       string `json:"filename"`
	RequireRelease bool   `json:"require_release"`
}

type RetrieveFileResponse struct {
	Data []byte `json:"data"`
}

type SyncChallengesRequest struct{}

// SyncStatus reports the repository working tree's current HEAD, per
// pkg/gitsync.CommitInfo.
type SyncStatus struct {
	CommitHash    string                 `json:"commit_hash"`
	CommitMessage string                 `json:"commit_message"`
	SyncedAt      *timestamppb.Timestamp `json:"synced_at"`
}

type SyncChallengesResponse struct {
	SyncStatus *SyncStatus `json:"sync_status"`
}

type GetSyncStatusRequest struct{}

type GetSyncStatusResponse struct {
	SyncStatus *SyncStatus `json:"sync_status,omitempty"`
}

type GetEventConfigurationRequest struct{}

type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type Difficulty struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type EventConfig struct {
	Name              string                 `json:"name"`
	FrontPageMD       string                 `json:"front_page_md"`
	RulesMD           string                 `json:"rules_md"`
	StartTime         int64                  `json:"start_time"`
	EndTime           int64                  `json:"end_time"`
	RegistrationStart *int64                 `json:"registration_start,omitempty"`
	RegistrationEnd   *int64                 `json:"registration_end,omitempty"`
	TeamsEnabled      bool                   `json:"teams_enabled"`
	MaxTeamSize       int32                  `json:"max_team_size,omitempty"`
	FreezeTime        *int64                 `json:"freeze_time,omitempty"`
	Categories        map[string]*Category   `json:"categories,omitempty"`
	Difficulties      map[string]*Difficulty `json:"difficulties,omitempty"`
}

type GetEventConfigurationResponse struct {
	Config *EventConfig `json:"config"`
}
