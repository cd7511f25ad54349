// Package admin exposes a small internal gRPC control plane reporting
// live connection counts and liveness per attached router, kept apart
// from the HTTP routers it observes.
//
// There is no .proto file: the service descriptor below is hand-written
// and paired with the JSON codec in codec.go, so cmd/loomd can exercise
// google.golang.org/grpc's real server/transport stack without a protoc
// step.
package admin

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ConnectionCountsRequest has no fields; every attached router's count is
// always returned.
type ConnectionCountsRequest struct{}

// ConnectionCountsResponse maps a router's name (the one passed to
// Register) to its current ConnectionCount().
type ConnectionCountsResponse struct {
	Counts map[string]int32 `json:"counts"`
}

// HealthRequest has no fields.
type HealthRequest struct{}

// HealthResponse reports process liveness. Serving is always true once
// the admin server has started accepting RPCs.
type HealthResponse struct {
	Serving bool `json:"serving"`
}

// RouterCounter is the subset of httpcore.Router's contract the admin
// service depends on, kept narrow so this package does not need to
// import httpcore.
type RouterCounter interface {
	ConnectionCount() int64
}

// Server implements the admin control plane. Construct with New, Register
// each attached router, then call Install to register it on a grpc.Server.
type Server struct {
	mu      sync.Mutex
	routers map[string]RouterCounter
}

// New returns an empty Server; call Register for each attached router
// before starting the gRPC listener.
func New() *Server {
	return &Server{routers: map[string]RouterCounter{}}
}

// Register associates name (typically "port 8080") with a router so its
// connection count is reported by ConnectionCounts.
func (s *Server) Register(name string, r RouterCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routers[name] = r
}

// ConnectionCounts implements the RPC of the same name.
func (s *Server) ConnectionCounts(context.Context, *ConnectionCountsRequest) (*ConnectionCountsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int32, len(s.routers))
	for name, r := range s.routers {
		counts[name] = int32(r.ConnectionCount())
	}
	return &ConnectionCountsResponse{Counts: counts}, nil
}

// Health implements the RPC of the same name.
func (s *Server) Health(context.Context, *HealthRequest) (*HealthResponse, error) {
	return &HealthResponse{Serving: true}, nil
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "loom.admin.Admin",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ConnectionCounts",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(ConnectionCountsRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return s.ConnectionCounts(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/loom.admin.Admin/ConnectionCounts"}
				handler := func(ctx context.Context, req any) (any, error) {
					return s.ConnectionCounts(ctx, req.(*ConnectionCountsRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "Health",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(HealthRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return s.Health(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/loom.admin.Admin/Health"}
				handler := func(ctx context.Context, req any) (any, error) {
					return s.Health(ctx, req.(*HealthRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/admin/admin.go",
}

// Install registers s on grpcServer.
func (s *Server) Install(grpcServer *grpc.Server) {
	grpcServer.RegisterService(&serviceDesc, s)
}
