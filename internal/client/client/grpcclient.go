package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *api.VaultClient

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.Token()), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.Token()), desc, cc, method, opts...)
}

// NewVaultClientService connects to endpointURL. Extra dial options are
// appended after the defaults.
func NewVaultClientService(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(api.MaxMessageSize),
			grpc.MaxCallSendMsgSize(api.MaxMessageSize),
		),
	}
	conn, err := grpc.NewClient(s.endpointURL, append(base, opts...)...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewVaultClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

func (s *GRPCClient) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) Signup(ctx context.Context, email, password string) (*api.Account, error) {
	resp, err := s.client.Signup(ctx, &api.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Account, nil
}

// Login authenticates and keeps the issued token for later calls.
func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	resp, err := s.client.Login(ctx, &api.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	s.SetToken(resp.Token)
	return resp, nil
}

func (s *GRPCClient) Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (*api.UploadResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.client.Upload(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}

	// a failed Send means the server already answered; CloseAndRecv
	// returns that answer
	sendErr := stream.Send(&api.UploadFrame{Header: &api.UploadHeader{Name: name, ContentType: contentType, Size: size}})
	buf := make([]byte, api.ChunkSize)
	for sendErr == nil {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sendErr = stream.Send(&api.UploadFrame{Chunk: chunk})
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read upload source: %w", rerr)
		}
	}

	resp, err := stream.CloseAndRecv()
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) ListFiles(ctx context.Context) ([]api.File, error) {
	resp, err := s.client.ListFiles(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Files, nil
}

// Download writes the file body to w and returns the header the server
// sent ahead of it.
func (s *GRPCClient) Download(ctx context.Context, id string, preview bool, w io.Writer) (*api.DownloadHeader, error) {
	open := s.client.Download
	if preview {
		open = s.client.Preview
	}
	stream, err := open(ctx, &api.FileRequest{ID: id})
	if err != nil {
		return nil, s.mapError(err)
	}

	var (
		header  *api.DownloadHeader
		written int64
	)
	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return header, s.mapError(err)
		}
		if frame.Header != nil {
			if header != nil {
				return header, fmt.Errorf("%w: repeated header", ErrBadStream)
			}
			header = frame.Header
		}
		if len(frame.Chunk) == 0 {
			continue
		}
		if header == nil {
			return nil, fmt.Errorf("%w: data before header", ErrBadStream)
		}
		n, err := w.Write(frame.Chunk)
		written += int64(n)
		if err != nil {
			return header, err
		}
	}

	if header == nil {
		return nil, fmt.Errorf("%w: missing header", ErrBadStream)
	}
	if written != header.Size {
		return header, fmt.Errorf("%w: got %d of %d bytes", ErrBadStream, written, header.Size)
	}
	return header, nil
}

func (s *GRPCClient) DeleteFile(ctx context.Context, id string) error {
	_, err := s.client.DeleteFile(ctx, &api.FileRequest{ID: id})
	return s.mapError(err)
}

func (s *GRPCClient) ListAccounts(ctx context.Context) ([]api.Account, error) {
	resp, err := s.client.ListAccounts(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Accounts, nil
}

func (s *GRPCClient) AccountAction(ctx context.Context, action AccountAction, id string) (*api.Account, error) {
	var call func(context.Context, *api.AccountRequest, ...grpc.CallOption) (*api.AccountResponse, error)
	switch action {
	case ActionLock:
		call = s.client.LockAccount
	case ActionUnlock:
		call = s.client.UnlockAccount
	case ActionPromote:
		call = s.client.PromoteAccount
	case ActionDemote:
		call = s.client.DemoteAccount
	case ActionForceLogout:
		call = s.client.ForceLogout
	default:
		return nil, fmt.Errorf("%w: unknown account action %q", ErrInvalidInput, action)
	}

	resp, err := call(ctx, &api.AccountRequest{ID: id})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Account, nil
}

func (s *GRPCClient) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.client.DeleteAccount(ctx, &api.AccountRequest{ID: id})
	return s.mapError(err)
}

func (s *GRPCClient) AuditLog(ctx context.Context, limit int) ([]api.Event, error) {
	resp, err := s.client.AuditLog(ctx, &api.AuditLogRequest{Limit: limit})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Events, nil
}

func (s *GRPCClient) Analytics(ctx context.Context) (*api.AnalyticsResponse, error) {
	resp, err := s.client.Analytics(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) MaliciousFiles(ctx context.Context) ([]api.MaliciousFile, error) {
	resp, err := s.client.MaliciousFiles(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Files, nil
}

func (s *GRPCClient) SuspiciousActivity(ctx context.Context) (*api.SuspiciousActivityResponse, error) {
	resp, err := s.client.SuspiciousActivity(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// Watch calls fn for every live audit event until ctx is cancelled, the
// server ends the stream or fn returns an error.
func (s *GRPCClient) Watch(ctx context.Context, fn func(*api.Event) error) error {
	stream, err := s.client.WatchEvents(ctx)
	if err != nil {
		return s.mapError(err)
	}
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return s.mapError(err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated:
		sentinel = ErrUnauthorized
	case codes.FailedPrecondition:
		sentinel = ErrLocked
	case codes.PermissionDenied:
		sentinel = ErrForbidden
	case codes.InvalidArgument:
		sentinel = ErrInvalidInput
	case codes.AlreadyExists:
		sentinel = ErrConflict
	case codes.NotFound:
		sentinel = ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
