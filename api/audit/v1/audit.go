// Package auditv1 defines the ztcp.audit.v1.AuditService gRPC contract (JSON codec).
package auditv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ztcp-auth/api/jsoncodec"
)

const ServiceName = "ztcp.audit.v1.AuditService"

const AuditService_ListAuditEvents_FullMethodName = "/ztcp.audit.v1.AuditService/ListAuditEvents"

type ListAuditEventsRequest struct {
	PageSize  int32  `json:"pageSize"`
	PageToken string `json:"pageToken"`
}

type AuditEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListAuditEventsResponse struct {
	Events        []AuditEvent `json:"events"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}

// AuditServiceServer is the server API for AuditService.
type AuditServiceServer interface {
	ListAuditEvents(context.Context, *ListAuditEventsRequest) (*ListAuditEventsResponse, error)
}

type UnimplementedAuditServiceServer struct{}

func (UnimplementedAuditServiceServer) ListAuditEvents(context.Context, *ListAuditEventsRequest) (*ListAuditEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuditEvents not implemented")
}

func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}

func listAuditEventsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListAuditEventsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditServiceServer).ListAuditEvents(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuditService_ListAuditEvents_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditServiceServer).ListAuditEvents(ctx, req.(*ListAuditEventsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AuditService_ServiceDesc is the grpc.ServiceDesc for AuditService.
var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAuditEvents", Handler: listAuditEventsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ztcp/audit/v1/audit",
}

type AuditServiceClient interface {
	ListAuditEvents(ctx context.Context, in *ListAuditEventsRequest, opts ...grpc.CallOption) (*ListAuditEventsResponse, error)
}

type auditServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuditServiceClient(cc grpc.ClientConnInterface) AuditServiceClient {
	return &auditServiceClient{cc: cc}
}

func (c *auditServiceClient) ListAuditEvents(ctx context.Context, in *ListAuditEventsRequest, opts ...grpc.CallOption) (*ListAuditEventsResponse, error) {
	out := new(ListAuditEventsResponse)
	opts = append([]grpc.CallOption{jsoncodec.CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, AuditService_ListAuditEvents_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
