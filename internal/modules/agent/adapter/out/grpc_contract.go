package out

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	serviceName         = "analyzeit.agent.v1.Agent"
	jsonCodecName       = "json"
	methodEvent         = "/" + serviceName + "/Event"
	methodUpdateMapping = "/" + serviceName + "/UpdateMapping"
	methodSignIn        = "/" + serviceName + "/SignIn"
	methodSignOut       = "/" + serviceName + "/SignOut"
	methodFlush         = "/" + serviceName + "/Flush"
	methodStatus        = "/" + serviceName + "/Status"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type EventRequest struct {
	Kind          string     `json:"kind"`
	WindowExists  *bool      `json:"window_exists,omitempty"`
	WindowFocused *bool      `json:"window_focused,omitempty"`
	URL           *string    `json:"url,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Audible       *bool      `json:"audible,omitempty"`
	Idle          *string    `json:"idle,omitempty"`
	LastInputAt   *time.Time `json:"last_input_at,omitempty"`
}

type MappingRequest struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Clear    bool   `json:"clear"`
}

type SignInRequest struct {
	Token string `json:"token,omitempty"`
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Photo string `json:"photo,omitempty"`
}

type UserResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type FlushResponse struct {
	RunID      string `json:"run_id"`
	NoIdentity bool   `json:"no_identity"`
	Buckets    int    `json:"buckets"`
	Flushed    int    `json:"flushed"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Seconds    int64  `json:"seconds"`
}

type StatusResponse struct {
	SignedIn       bool          `json:"signed_in"`
	UID            string        `json:"uid"`
	Email          string        `json:"email"`
	ActiveDomain   string        `json:"active_domain"`
	ActiveTitle    string        `json:"active_title"`
	SessionStart   time.Time     `json:"session_start"`
	Idle           string        `json:"idle"`
	Audible        bool          `json:"audible"`
	PendingBuckets int           `json:"pending_buckets"`
	PendingSeconds int64         `json:"pending_seconds"`
	Overrides      int           `json:"overrides"`
	LastFlushAt    time.Time     `json:"last_flush_at"`
	LastFlush      FlushResponse `json:"last_flush"`
}

type AgentServer interface {
	Event(ctx context.Context, in *EventRequest) (*StatusResponse, error)
	UpdateMapping(ctx context.Context, in *MappingRequest) (*Empty, error)
	SignIn(ctx context.Context, in *SignInRequest) (*UserResponse, error)
	SignOut(ctx context.Context, in *Empty) (*Empty, error)
	Flush(ctx context.Context, in *Empty) (*FlushResponse, error)
	Status(ctx context.Context, in *Empty) (*StatusResponse, error)
}

type agentClient struct {
	conn *grpc.ClientConn
}

func (c *agentClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(jsonCodecName))
}

// unary adapts a typed handler to grpc.MethodDesc.
func unary[Req any, Resp any](method string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	name := method[len("/"+serviceName+"/"):]
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type")
				}
				return call(ctx, typed)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func RegisterAgentServer(server grpc.ServiceRegistrar, impl AgentServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AgentServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(methodEvent, impl.Event),
			unary(methodUpdateMapping, impl.UpdateMapping),
			unary(methodSignIn, impl.SignIn),
			unary(methodSignOut, impl.SignOut),
			unary(methodFlush, impl.Flush),
			unary(methodStatus, impl.Status),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "analyzeit/agent/v1",
	}, impl)
}
