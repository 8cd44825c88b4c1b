package grpc

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const accountKey ctxKey = "account"

// publicMethods may be called without a session token.
var publicMethods = map[string]bool{
	api.FullMethod("Signup"): true,
	api.FullMethod("Login"):  true,
}

func accessTokenFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// authenticate resolves the session token into an account and stores it
// in the returned context.
func (s *GRPCServer) authenticate(ctx context.Context) (context.Context, error) {
	token := accessTokenFrom(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	acc, err := s.accounts.Authenticate(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return context.WithValue(ctx, accountKey, acc), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}
	ctx, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *authedStream) Context() context.Context { return w.ctx }

func (s *GRPCServer) streamAccessTokenInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if publicMethods[info.FullMethod] {
		return handler(srv, ss)
	}
	ctx, err := s.authenticate(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "code", status.Code(err).String(), "elapsed", time.Since(start))
	return resp, err
}

// caller returns the account placed in ctx by the interceptors.
func caller(ctx context.Context) (*models.Account, error) {
	acc, ok := ctx.Value(accountKey).(*models.Account)
	if !ok || acc == nil {
		return nil, status.Error(codes.Unauthenticated, common.ErrUnauthenticated.Error())
	}
	return acc, nil
}

// originFrom prefers the first x-forwarded-for hop over the peer address.
func originFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.ForwardedForHeaderName); len(values) > 0 {
			if first := strings.TrimSpace(strings.Split(values[0], ",")[0]); first != "" {
				return first
			}
		}
	}
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
