// Package sessionv1 defines the ztcp.session.v1.SessionService gRPC contract (JSON codec).
package sessionv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ztcp-auth/api/jsoncodec"
)

const ServiceName = "ztcp.session.v1.SessionService"

const (
	SessionService_RevokeSession_FullMethodName     = "/ztcp.session.v1.SessionService/RevokeSession"
	SessionService_RevokeAllSessions_FullMethodName = "/ztcp.session.v1.SessionService/RevokeAllSessions"
)

type RevokeSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type RevokeSessionResponse struct{}

// RevokeAllSessionsRequest ends every session of the caller, including the current one.
type RevokeAllSessionsRequest struct{}

type RevokeAllSessionsResponse struct {
	Revoked int64 `json:"revoked"`
}

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error)
	RevokeAllSessions(context.Context, *RevokeAllSessionsRequest) (*RevokeAllSessionsResponse, error)
}

type UnimplementedSessionServiceServer struct{}

func (UnimplementedSessionServiceServer) RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeSession not implemented")
}

func (UnimplementedSessionServiceServer) RevokeAllSessions(context.Context, *RevokeAllSessionsRequest) (*RevokeAllSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeAllSessions not implemented")
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

func revokeSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RevokeSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).RevokeSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SessionService_RevokeSession_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServiceServer).RevokeSession(ctx, req.(*RevokeSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func revokeAllSessionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RevokeAllSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).RevokeAllSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SessionService_RevokeAllSessions_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServiceServer).RevokeAllSessions(ctx, req.(*RevokeAllSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// SessionService_ServiceDesc is the grpc.ServiceDesc for SessionService.
var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RevokeSession", Handler: revokeSessionHandler},
		{MethodName: "RevokeAllSessions", Handler: revokeAllSessionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ztcp/session/v1/session",
}

type SessionServiceClient interface {
	RevokeSession(ctx context.Context, in *RevokeSessionRequest, opts ...grpc.CallOption) (*RevokeSessionResponse, error)
	RevokeAllSessions(ctx context.Context, in *RevokeAllSessionsRequest, opts ...grpc.CallOption) (*RevokeAllSessionsResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func (c *sessionServiceClient) RevokeSession(ctx context.Context, in *RevokeSessionRequest, opts ...grpc.CallOption) (*RevokeSessionResponse, error) {
	out := new(RevokeSessionResponse)
	opts = append([]grpc.CallOption{jsoncodec.CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, SessionService_RevokeSession_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) RevokeAllSessions(ctx context.Context, in *RevokeAllSessionsRequest, opts ...grpc.CallOption) (*RevokeAllSessionsResponse, error) {
	out := new(RevokeAllSessionsResponse)
	opts = append([]grpc.CallOption{jsoncodec.CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, SessionService_RevokeAllSessions_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
