package api

import (
	"context"

	"google.golang.org/grpc"
)

type (
	UploadClient   = grpc.ClientStreamingClient[UploadFrame, UploadResponse]
	DownloadClient = grpc.ServerStreamingClient[DownloadFrame]
	EventsClient   = grpc.ServerStreamingClient[Event]
)

// VaultClient calls the vault service using the CBOR codec.
type VaultClient struct {
	cc grpc.ClientConnInterface
}

func NewVaultClient(cc grpc.ClientConnInterface) *VaultClient {
	return &VaultClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func openServerStream[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Resp], error) {
	stream, err := cc.NewStream(ctx, desc, FullMethod(desc.StreamName), callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Resp]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func streamDesc(name string) *grpc.StreamDesc {
	for i := range ServiceDesc.Streams {
		if ServiceDesc.Streams[i].StreamName == name {
			return &ServiceDesc.Streams[i]
		}
	}
	panic("api: unknown stream " + name)
}

func (c *VaultClient) Signup(ctx context.Context, in *Credentials, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[Credentials, AccountResponse](ctx, c.cc, "Signup", in, opts)
}

func (c *VaultClient) Login(ctx context.Context, in *Credentials, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[Credentials, LoginResponse](ctx, c.cc, "Login", in, opts)
}

func (c *VaultClient) Upload(ctx context.Context, opts ...grpc.CallOption) (UploadClient, error) {
	desc := streamDesc("Upload")
	stream, err := c.cc.NewStream(ctx, desc, FullMethod(desc.StreamName), callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[UploadFrame, UploadResponse]{ClientStream: stream}, nil
}

func (c *VaultClient) ListFiles(ctx context.Context, opts ...grpc.CallOption) (*ListFilesResponse, error) {
	return invoke[Empty, ListFilesResponse](ctx, c.cc, "ListFiles", &Empty{}, opts)
}

func (c *VaultClient) Download(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (DownloadClient, error) {
	return openServerStream[FileRequest, DownloadFrame](ctx, c.cc, streamDesc("Download"), in, opts)
}

func (c *VaultClient) Preview(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (DownloadClient, error) {
	return openServerStream[FileRequest, DownloadFrame](ctx, c.cc, streamDesc("Preview"), in, opts)
}

func (c *VaultClient) DeleteFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[FileRequest, Empty](ctx, c.cc, "DeleteFile", in, opts)
}

func (c *VaultClient) ListAccounts(ctx context.Context, opts ...grpc.CallOption) (*ListAccountsResponse, error) {
	return invoke[Empty, ListAccountsResponse](ctx, c.cc, "ListAccounts", &Empty{}, opts)
}

func (c *VaultClient) LockAccount(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountRequest, AccountResponse](ctx, c.cc, "LockAccount", in, opts)
}

func (c *VaultClient) UnlockAccount(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountRequest, AccountResponse](ctx, c.cc, "UnlockAccount", in, opts)
}

func (c *VaultClient) PromoteAccount(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountRequest, AccountResponse](ctx, c.cc, "PromoteAccount", in, opts)
}

func (c *VaultClient) DemoteAccount(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountRequest, AccountResponse](ctx, c.cc, "DemoteAccount", in, opts)
}

func (c *VaultClient) ForceLogout(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountRequest, AccountResponse](ctx, c.cc, "ForceLogout", in, opts)
}

func (c *VaultClient) DeleteAccount(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[AccountRequest, Empty](ctx, c.cc, "DeleteAccount", in, opts)
}

func (c *VaultClient) AuditLog(ctx context.Context, in *AuditLogRequest, opts ...grpc.CallOption) (*AuditLogResponse, error) {
	return invoke[AuditLogRequest, AuditLogResponse](ctx, c.cc, "AuditLog", in, opts)
}

func (c *VaultClient) Analytics(ctx context.Context, opts ...grpc.CallOption) (*AnalyticsResponse, error) {
	return invoke[Empty, AnalyticsResponse](ctx, c.cc, "Analytics", &Empty{}, opts)
}

func (c *VaultClient) MaliciousFiles(ctx context.Context, opts ...grpc.CallOption) (*MaliciousFilesResponse, error) {
	return invoke[Empty, MaliciousFilesResponse](ctx, c.cc, "MaliciousFiles", &Empty{}, opts)
}

func (c *VaultClient) SuspiciousActivity(ctx context.Context, opts ...grpc.CallOption) (*SuspiciousActivityResponse, error) {
	return invoke[Empty, SuspiciousActivityResponse](ctx, c.cc, "SuspiciousActivity", &Empty{}, opts)
}

func (c *VaultClient) WatchEvents(ctx context.Context, opts ...grpc.CallOption) (EventsClient, error) {
	return openServerStream[Empty, Event](ctx, c.cc, streamDesc("WatchEvents"), &Empty{}, opts)
}
