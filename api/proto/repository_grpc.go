package proto

import (
	"context"

	"google.golang.org/grpc"
)

// RepositoryServer is the server API for the Repository service, per
// spec.md §4.J/§6's `repository.*` RPCs.
type RepositoryServer interface {
	SyncChallenges(context.Context, *SyncChallengesRequest) (*SyncChallengesResponse, error)
	GetSyncStatus(context.Context, *GetSyncStatusRequest) (*GetSyncStatusResponse, error)
	GetEventConfiguration(context.Context, *GetEventConfigurationRequest) (*GetEventConfigurationResponse, error)
}

// RegisterRepositoryServer registers srv's handlers against s.
func RegisterRepositoryServer(s grpc.ServiceRegistrar, srv RepositoryServer) {
	s.RegisterService(&repositoryServiceDesc, srv)
}

func repositorySyncChallengesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SyncChallengesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RepositoryServer).SyncChallenges(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Repository/SyncChallenges"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RepositoryServer).SyncChallenges(ctx, req.(*SyncChallengesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func repositoryGetSyncStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSyncStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RepositoryServer).GetSyncStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Repository/GetSyncStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RepositoryServer).GetSyncStatus(ctx, req.(*GetSyncStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func repositoryGetEventConfigurationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetEventConfigurationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RepositoryServer).GetEventConfiguration(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Repository/GetEventConfiguration"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RepositoryServer).GetEventConfiguration(ctx, req.(*GetEventConfigurationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var repositoryServiceDesc = grpc.ServiceDesc{
	ServiceName: "ctfmanager.Repository",
	HandlerType: (*RepositoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SyncChallenges", Handler: repositorySyncChallengesHandler},
		{MethodName: "GetSyncStatus", Handler: repositoryGetSyncStatusHandler},
		{MethodName: "GetEventConfiguration", Handler: repositoryGetEventConfigurationHandler},
	},
	Metadata: "ctfmanager.proto",
}
