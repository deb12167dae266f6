package proto

import (
	"context"

	"google.golang.org/grpc"
)

// ChallengesServer is the server API for the Challenges service, per
// spec.md §4.J.
type ChallengesServer interface {
	ListChallenges(context.Context, *ListChallengesRequest) (*ListChallengesResponse, error)
	StartChallengeInstance(context.Context, *StartChallengeInstanceRequest) (*StartChallengeInstanceResponse, error)
	StopChallengeInstance(context.Context, *StopChallengeInstanceRequest) (*StopChallengeInstanceResponse, error)
	GetChallengeInstanceStatus(context.Context, *GetChallengeInstanceStatusRequest) (*GetChallengeInstanceStatusResponse, error)
	CheckFlag(context.Context, *CheckFlagRequest) (*CheckFlagResponse, error)
	ExportChallenge(context.Context, *ExportChallengeRequest) (*ExportChallengeResponse, error)
	RetrieveFile(context.Context, *RetrieveFileRequest) (*RetrieveFileResponse, error)
}

// RegisterChallengesServer registers srv's handlers against s, the way
// protoc-gen-go-grpc's generated RegisterXxxServer would.
func RegisterChallengesServer(s grpc.ServiceRegistrar, srv ChallengesServer) {
	s.RegisterService(&challengesServiceDesc, srv)
}

func challengesListChallengesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListChallengesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChallengesServer).ListChallenges(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Challenges/ListChallenges"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChallengesServer).ListChallenges(ctx, req.(*ListChallengesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func challengesStartChallengeInstanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StartChallengeInstanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChallengesServer).StartChallengeInstance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Challenges/StartChallengeInstance"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChallengesServer).StartChallengeInstance(ctx, req.(*StartChallengeInstanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func challengesStopChallengeInstanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StopChallengeInstanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChallengesServer).StopChallengeInstance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Challenges/StopChallengeInstance"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChallengesServer).StopChallengeInstance(ctx, req.(*StopChallengeInstanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func challengesGetChallengeInstanceStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetChallengeInstanceStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChallengesServer).GetChallengeInstanceStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Challenges/GetChallengeInstanceStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChallengesServer).GetChallengeInstanceStatus(ctx, req.(*GetChallengeInstanceStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func challengesCheckFlagHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckFlagRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChallengesServer).CheckFlag(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Challenges/CheckFlag"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChallengesServer).CheckFlag(ctx, req.(*CheckFlagRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func challengesExportChallengeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExportChallengeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChallengesServer).ExportChallenge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Challenges/ExportChallenge"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChallengesServer).ExportChallenge(ctx, req.(*ExportChallengeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func challengesRetrieveFileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RetrieveFileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChallengesServer).RetrieveFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/ctfmanager.Challenges/RetrieveFile"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChallengesServer).RetrieveFile(ctx, req.(*RetrieveFileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var challengesServiceDesc = grpc.ServiceDesc{
	ServiceName: "ctfmanager.Challenges",
	HandlerType: (*ChallengesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListChallenges", Handler: challengesListChallengesHandler},
		{MethodName: "StartChallengeInstance", Handler: challengesStartChallengeInstanceHandler},
		{MethodName: "StopChallengeInstance", Handler: challengesStopChallengeInstanceHandler},
		{MethodName: "GetChallengeInstanceStatus", Handler: challengesGetChallengeInstanceStatusHandler},
		{MethodName: "CheckFlag", Handler: challengesCheckFlagHandler},
		{MethodName: "ExportChallenge", Handler: challengesExportChallengeHandler},
		{MethodName: "RetrieveFile", Handler: challengesRetrieveFileHandler},
	},
	Metadata: "ctfmanager.proto",
}
