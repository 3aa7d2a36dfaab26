package out

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"analyzeit/internal/modules/agent/dto"
	agentin "analyzeit/internal/modules/agent/port/in"
	agentout "analyzeit/internal/modules/agent/port/out"
	apperrors "analyzeit/internal/platform/errors"
)

// GRPCControlServer serves the agent over a unix socket.
type GRPCControlServer struct{}

func NewGRPCControlServer() agentout.ControlServer {
	return &GRPCControlServer{}
}

func (s *GRPCControlServer) Serve(ctx context.Context, socketPath string, handler agentin.Usecase) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen control socket: %w", err)
	}
	defer os.Remove(socketPath)
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}

	server := grpc.NewServer()
	RegisterAgentServer(server, &agentService{h: handler})

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()
	if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

type agentService struct {
	h agentin.Usecase
}

func (s *agentService) Event(ctx context.Context, in *EventRequest) (*StatusResponse, error) {
	out, err := s.h.Event(ctx, dto.EventInput{
		Kind:          in.Kind,
		WindowExists:  in.WindowExists,
		WindowFocused: in.WindowFocused,
		URL:           in.URL,
		Title:         in.Title,
		Audible:       in.Audible,
		Idle:          in.Idle,
		LastInputAt:   in.LastInputAt,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStatusResponse(out), nil
}

func (s *agentService) UpdateMapping(ctx context.Context, in *MappingRequest) (*Empty, error) {
	if err := s.h.UpdateMapping(ctx, dto.MappingInput{Domain: in.Domain, Category: in.Category, Clear: in.Clear}); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *agentService) SignIn(ctx context.Context, in *SignInRequest) (*UserResponse, error) {
	out, err := s.h.SignIn(ctx, dto.SignInInput{Token: in.Token, UID: in.UID, Email: in.Email, Name: in.Name, Photo: in.Photo})
	if err != nil {
		return nil, toStatus(err)
	}
	return &UserResponse{UID: out.UID, Email: out.Email, Name: out.Name}, nil
}

func (s *agentService) SignOut(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := s.h.SignOut(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *agentService) Flush(ctx context.Context, _ *Empty) (*FlushResponse, error) {
	out, err := s.h.Flush(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := toFlushResponse(out)
	return &resp, nil
}

func (s *agentService) Status(ctx context.Context, _ *Empty) (*StatusResponse, error) {
	out, err := s.h.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStatusResponse(out), nil
}

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{apperrors.ErrInvalidInput, codes.InvalidArgument},
	{apperrors.ErrMalformedKey, codes.InvalidArgument},
	{apperrors.ErrUnsupportedURL, codes.InvalidArgument},
	{apperrors.ErrInvalidToken, codes.Unauthenticated},
	{apperrors.ErrNoIdentity, codes.FailedPrecondition},
	{apperrors.ErrNotFound, codes.NotFound},
	{apperrors.ErrQueueClosed, codes.Unavailable},
}

func toStatus(err error) error {
	for _, mapping := range errorCodes {
		if errors.Is(err, mapping.err) {
			return status.Error(mapping.code, err.Error())
		}
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus restores the sentinel so callers can use errors.Is.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidToken, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", apperrors.ErrNoIdentity, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("agent unavailable: %s", st.Message())
	default:
		return errors.New(st.Message())
	}
}

func toFlushResponse(out dto.FlushOutput) FlushResponse {
	return FlushResponse{
		RunID:      out.RunID,
		NoIdentity: out.NoIdentity,
		Buckets:    out.Buckets,
		Flushed:    out.Flushed,
		Skipped:    out.Skipped,
		Failed:     out.Failed,
		Seconds:    out.Seconds,
	}
}

func fromFlushResponse(in FlushResponse) dto.FlushOutput {
	return dto.FlushOutput{
		RunID:      in.RunID,
		NoIdentity: in.NoIdentity,
		Buckets:    in.Buckets,
		Flushed:    in.Flushed,
		Skipped:    in.Skipped,
		Failed:     in.Failed,
		Seconds:    in.Seconds,
	}
}

func toStatusResponse(out dto.StatusOutput) *StatusResponse {
	return &StatusResponse{
		SignedIn:       out.SignedIn,
		UID:            out.UID,
		Email:          out.Email,
		ActiveDomain:   out.ActiveDomain,
		ActiveTitle:    out.ActiveTitle,
		SessionStart:   out.SessionStart,
		Idle:           out.Idle,
		Audible:        out.Audible,
		PendingBuckets: out.PendingBuckets,
		PendingSeconds: out.PendingSeconds,
		Overrides:      out.Overrides,
		LastFlushAt:    out.LastFlushAt,
		LastFlush:      toFlushResponse(out.LastFlush),
	}
}

func fromStatusResponse(in *StatusResponse) dto.StatusOutput {
	return dto.StatusOutput{
		SignedIn:       in.SignedIn,
		UID:            in.UID,
		Email:          in.Email,
		ActiveDomain:   in.ActiveDomain,
		ActiveTitle:    in.ActiveTitle,
		SessionStart:   in.SessionStart,
		Idle:           in.Idle,
		Audible:        in.Audible,
		PendingBuckets: in.PendingBuckets,
		PendingSeconds: in.PendingSeconds,
		Overrides:      in.Overrides,
		LastFlushAt:    in.LastFlushAt,
		LastFlush:      fromFlushResponse(in.LastFlush),
	}
}

// GRPCControlClient talks to a running agent. It satisfies the same usecase
// the daemon serves, so callers do not care which side of the socket they are on.
type GRPCControlClient struct {
	client *agentClient
}

func NewGRPCControlClient(socketPath string) (*GRPCControlClient, error) {
	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}
	return &GRPCControlClient{client: &agentClient{conn: conn}}, nil
}

var _ agentin.Usecase = (*GRPCControlClient)(nil)

func (c *GRPCControlClient) Close() error {
	return c.client.conn.Close()
}

func (c *GRPCControlClient) Event(ctx context.Context, input dto.EventInput) (dto.StatusOutput, error) {
	out := &StatusResponse{}
	err := c.client.invoke(ctx, methodEvent, &EventRequest{
		Kind:          input.Kind,
		WindowExists:  input.WindowExists,
		WindowFocused: input.WindowFocused,
		URL:           input.URL,
		Title:         input.Title,
		Audible:       input.Audible,
		Idle:          input.Idle,
		LastInputAt:   input.LastInputAt,
	}, out)
	if err != nil {
		return dto.StatusOutput{}, fromStatus(err)
	}
	return fromStatusResponse(out), nil
}

func (c *GRPCControlClient) UpdateMapping(ctx context.Context, input dto.MappingInput) error {
	err := c.client.invoke(ctx, methodUpdateMapping, &MappingRequest{Domain: input.Domain, Category: input.Category, Clear: input.Clear}, &Empty{})
	return fromStatus(err)
}

func (c *GRPCControlClient) SignIn(ctx context.Context, input dto.SignInInput) (dto.UserOutput, error) {
	out := &UserResponse{}
	err := c.client.invoke(ctx, methodSignIn, &SignInRequest{Token: input.Token, UID: input.UID, Email: input.Email, Name: input.Name, Photo: input.Photo}, out)
	if err != nil {
		return dto.UserOutput{}, fromStatus(err)
	}
	return dto.UserOutput{UID: out.UID, Email: out.Email, Name: out.Name}, nil
}

func (c *GRPCControlClient) SignOut(ctx context.Context) error {
	return fromStatus(c.client.invoke(ctx, methodSignOut, &Empty{}, &Empty{}))
}

func (c *GRPCControlClient) Flush(ctx context.Context) (dto.FlushOutput, error) {
	out := &FlushResponse{}
	if err := c.client.invoke(ctx, methodFlush, &Empty{}, out); err != nil {
		return dto.FlushOutput{}, fromStatus(err)
	}
	return fromFlushResponse(*out), nil
}

func (c *GRPCControlClient) Status(ctx context.Context) (dto.StatusOutput, error) {
	out := &StatusResponse{}
	if err := c.client.invoke(ctx, methodStatus, &Empty{}, out); err != nil {
		return dto.StatusOutput{}, fromStatus(err)
	}
	return fromStatusResponse(out), nil
}
