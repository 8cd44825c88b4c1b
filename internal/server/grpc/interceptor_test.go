package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func newTestServer() *GRPCServer {
	return &GRPCServer{logger: logging.Discard()}
}

func TestInterceptor_PublicMethodSkipsToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("Login")}
	called := false

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("ListFiles")}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestStreamInterceptor_MissingToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.StreamServerInfo{FullMethod: api.FullMethod("Download")}

	err := s.streamAccessTokenInterceptor(nil, &fakeStream{ctx: context.Background()}, info, func(any, grpc.ServerStream) error {
		t.Fatal("handler should not be called when token missing")
		return nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestCaller(t *testing.T) {
	_, err := caller(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	acc := &models.Account{ID: "a1"}
	got, err := caller(context.WithValue(context.Background(), accountKey, acc))
	require.NoError(t, err)
	assert.Same(t, acc, got)
}

func TestOriginFrom(t *testing.T) {
	tcp := &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 5555}
	withPeer := peer.NewContext(context.Background(), &peer.Peer{Addr: tcp})

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "none", ctx: context.Background(), want: ""},
		{name: "peer", ctx: withPeer, want: "192.0.2.7"},
		{
			name: "forwarded",
			ctx:  metadata.NewIncomingContext(withPeer, metadata.Pairs(common.ForwardedForHeaderName, " 198.51.100.1 , 10.0.0.1")),
			want: "198.51.100.1",
		},
		{
			name: "empty forwarded falls back to peer",
			ctx:  metadata.NewIncomingContext(withPeer, metadata.Pairs(common.ForwardedForHeaderName, " ")),
			want: "192.0.2.7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originFrom(tt.ctx))
		})
	}
}

func TestToStatus(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	tests := []struct {
		err  error
		code codes.Code
		msg  string
	}{
		{common.ErrInvalidCredentials, codes.Unauthenticated, "invalid credentials"},
		{common.ErrSessionInvalidated, codes.Unauthenticated, common.ErrSessionInvalidated.Error()},
		{common.ErrAccountLockedAdmin, codes.FailedPrecondition, common.ErrAccountLockedAdmin.Error()},
		{fmt.Errorf("login: %w", common.ErrAccountLockedBruteForce), codes.FailedPrecondition, common.ErrAccountLockedBruteForce.Error()},
		{common.ErrBlocked, codes.PermissionDenied, common.ErrBlocked.Error()},
		{fmt.Errorf("%w: file name is required", common.ErrValidation), codes.InvalidArgument, "validation error: file name is required"},
		{common.ErrSelfAction, codes.InvalidArgument, common.ErrSelfAction.Error()},
		{common.ErrAlreadyExists, codes.AlreadyExists, "already exists"},
		{common.ErrNotFound, codes.NotFound, "not found"},
		{common.ErrTimeout, codes.Unavailable, common.ErrTimeout.Error()},
		{context.Canceled, codes.Canceled, "canceled"},
		{common.ErrInternal, codes.Internal, "internal error"},
		{errors.New("pq: connection refused at 10.1.1.1"), codes.Internal, "internal error"},
		{status.Error(codes.Aborted, "as is"), codes.Aborted, "as is"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			st := status.Convert(s.toStatus(ctx, tt.err))
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}

	assert.NoError(t, s.toStatus(ctx, nil))
}
