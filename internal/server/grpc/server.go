// Package grpc exposes the vault services over gRPC using the CBOR codec
// from the api package.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/catalog"
	"github.com/SakshiM22/secure-vault/internal/server/ingest"
	"github.com/SakshiM22/secure-vault/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address  string
	accounts *services.AccountService
	admin    *services.AdminService
	ingest   *ingest.Pipeline
	catalog  *catalog.Catalog
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, accounts *services.AccountService, admin *services.AdminService,
	pipeline *ingest.Pipeline, cat *catalog.Catalog) (*GRPCServer, error) {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
		admin:    admin,
		ingest:   pipeline,
		catalog:  cat,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(api.MaxMessageSize),
		grpc.MaxSendMsgSize(api.MaxMessageSize),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	api.RegisterVaultServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
