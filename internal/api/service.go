package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "securevault.v1.Vault"

// FullMethod returns the gRPC method path for name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type (
	UploadServer   = grpc.ClientStreamingServer[UploadFrame, UploadResponse]
	DownloadServer = grpc.ServerStreamingServer[DownloadFrame]
	EventsServer   = grpc.ServerStreamingServer[Event]
)

// VaultServer is implemented by the transport layer.
type VaultServer interface {
	Signup(context.Context, *Credentials) (*AccountResponse, error)
	Login(context.Context, *Credentials) (*LoginResponse, error)

	Upload(UploadServer) error
	ListFiles(context.Context, *Empty) (*ListFilesResponse, error)
	Download(*FileRequest, DownloadServer) error
	Preview(*FileRequest, DownloadServer) error
	DeleteFile(context.Context, *FileRequest) (*Empty, error)

	ListAccounts(context.Context, *Empty) (*ListAccountsResponse, error)
	LockAccount(context.Context, *AccountRequest) (*AccountResponse, error)
	UnlockAccount(context.Context, *AccountRequest) (*AccountResponse, error)
	PromoteAccount(context.Context, *AccountRequest) (*AccountResponse, error)
	DemoteAccount(context.Context, *AccountRequest) (*AccountResponse, error)
	ForceLogout(context.Context, *AccountRequest) (*AccountResponse, error)
	DeleteAccount(context.Context, *AccountRequest) (*Empty, error)
	AuditLog(context.Context, *AuditLogRequest) (*AuditLogResponse, error)
	Analytics(context.Context, *Empty) (*AnalyticsResponse, error)
	MaliciousFiles(context.Context, *Empty) (*MaliciousFilesResponse, error)
	SuspiciousActivity(context.Context, *Empty) (*SuspiciousActivityResponse, error)
	WatchEvents(*Empty, EventsServer) error
}

func unary[Req, Resp any](name string, call func(VaultServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaultServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func serverStream[Req, Resp any](name string, call func(VaultServer, *Req, grpc.ServerStreamingServer[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(Req)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return call(srv.(VaultServer), in, &grpc.GenericServerStream[Req, Resp]{ServerStream: stream})
		},
	}
}

// ServiceDesc registers VaultServer with a grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Signup", VaultServer.Signup),
		unary("Login", VaultServer.Login),
		unary("ListFiles", VaultServer.ListFiles),
		unary("DeleteFile", VaultServer.DeleteFile),
		unary("ListAccounts", VaultServer.ListAccounts),
		unary("LockAccount", VaultServer.LockAccount),
		unary("UnlockAccount", VaultServer.UnlockAccount),
		unary("PromoteAccount", VaultServer.PromoteAccount),
		unary("DemoteAccount", VaultServer.DemoteAccount),
		unary("ForceLogout", VaultServer.ForceLogout),
		unary("DeleteAccount", VaultServer.DeleteAccount),
		unary("AuditLog", VaultServer.AuditLog),
		unary("Analytics", VaultServer.Analytics),
		unary("MaliciousFiles", VaultServer.MaliciousFiles),
		unary("SuspiciousActivity", VaultServer.SuspiciousActivity),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Upload",
			ClientStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(VaultServer).Upload(&grpc.GenericServerStream[UploadFrame, UploadResponse]{ServerStream: stream})
			},
		},
		serverStream("Download", VaultServer.Download),
		serverStream("Preview", VaultServer.Preview),
		serverStream("WatchEvents", VaultServer.WatchEvents),
	},
	Metadata: "securevault/v1/vault",
}

// RegisterVaultServer attaches impl to s.
func RegisterVaultServer(s grpc.ServiceRegistrar, impl VaultServer) {
	s.RegisterService(&ServiceDesc, impl)
}
