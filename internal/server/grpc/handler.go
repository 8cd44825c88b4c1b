package grpc

import (
	"context"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/server/models"
)

func toAPIAccount(a *models.Account) api.Account {
	return api.Account{
		ID:             a.ID,
		Email:          a.Email,
		Role:           string(a.Role),
		LockState:      string(a.LockState),
		FailedAttempts: a.FailedAttempts,
		LockTime:       a.LockTime,
		TokenVersion:   a.TokenVersion,
		CreatedAt:      a.CreatedAt,
	}
}

func toAPIFile(f *models.StoredFile) *api.File {
	return &api.File{
		ID:          f.ID,
		Name:        f.OriginalName,
		ContentType: f.ContentType,
		Size:        f.Size,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt,
	}
}

func toAPIEvent(e models.AuditEvent) *api.Event {
	return &api.Event{
		ID:        e.ID,
		Email:     e.Email(),
		Action:    e.Action,
		Outcome:   string(e.Outcome),
		Origin:    e.OriginAddr,
		CreatedAt: e.CreatedAt,
	}
}

func (s *GRPCServer) Signup(ctx context.Context, req *api.Credentials) (*api.AccountResponse, error) {
	acc, err := s.accounts.Signup(ctx, req.Email, req.Password, originFrom(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "Registered", "account", acc.ID)
	return &api.AccountResponse{Account: toAPIAccount(acc)}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.Credentials) (*api.LoginResponse, error) {
	res, err := s.accounts.Login(ctx, req.Email, req.Password, originFrom(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.LoginResponse{Token: res.Token, Account: toAPIAccount(res.Account)}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, _ *api.Empty) (*api.ListFilesResponse, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.catalog.List(ctx, acc)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &api.ListFilesResponse{Files: make([]api.File, 0, len(list))}
	for _, f := range list {
		out.Files = append(out.Files, *toAPIFile(f))
	}
	return out, nil
}

func (s *GRPCServer) DeleteFile(ctx context.Context, req *api.FileRequest) (*api.Empty, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Remove(ctx, acc, req.ID, originFrom(ctx)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) ListAccounts(ctx context.Context, _ *api.Empty) (*api.ListAccountsResponse, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.admin.ListAccounts(ctx, acc)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &api.ListAccountsResponse{Accounts: make([]api.Account, 0, len(list))}
	for _, a := range list {
		out.Accounts = append(out.Accounts, toAPIAccount(a))
	}
	return out, nil
}

type adminMutation func(context.Context, *models.Account, string, string) (*models.Account, error)

func (s *GRPCServer) mutate(ctx context.Context, req *api.AccountRequest, fn adminMutation) (*api.AccountResponse, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	target, err := fn(ctx, acc, req.ID, originFrom(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.AccountResponse{Account: toAPIAccount(target)}, nil
}

func (s *GRPCServer) LockAccount(ctx context.Context, req *api.AccountRequest) (*api.AccountResponse, error) {
	return s.mutate(ctx, req, s.admin.Lock)
}

func (s *GRPCServer) UnlockAccount(ctx context.Context, req *api.AccountRequest) (*api.AccountResponse, error) {
	return s.mutate(ctx, req, s.admin.Unlock)
}

func (s *GRPCServer) PromoteAccount(ctx context.Context, req *api.AccountRequest) (*api.AccountResponse, error) {
	return s.mutate(ctx, req, s.admin.Promote)
}

func (s *GRPCServer) DemoteAccount(ctx context.Context, req *api.AccountRequest) (*api.AccountResponse, error) {
	return s.mutate(ctx, req, s.admin.Demote)
}

func (s *GRPCServer) ForceLogout(ctx context.Context, req *api.AccountRequest) (*api.AccountResponse, error) {
	return s.mutate(ctx, req, s.admin.ForceLogout)
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, req *api.AccountRequest) (*api.Empty, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.admin.DeleteAccount(ctx, acc, req.ID, originFrom(ctx)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) AuditLog(ctx context.Context, req *api.AuditLogRequest) (*api.AuditLogResponse, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.admin.AuditLog(ctx, acc, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &api.AuditLogResponse{Events: make([]api.Event, 0, len(list))}
	for _, e := range list {
		out.Events = append(out.Events, *toAPIEvent(e))
	}
	return out, nil
}

func (s *GRPCServer) Analytics(ctx context.Context, _ *api.Empty) (*api.AnalyticsResponse, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.admin.Analytics(ctx, acc)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.AnalyticsResponse{
		TotalAccounts:   a.TotalAccounts,
		LockedAccounts:  a.LockedAccounts,
		SafeUploads:     a.SafeUploads,
		TotalDownloads:  a.TotalDownloads,
		FailedLogins24h: a.FailedLogins24h,
		LockEvents24h:   a.LockEvents24h,
		MaliciousFiles:  a.MaliciousFiles,
	}, nil
}

func (s *GRPCServer) MaliciousFiles(ctx context.Context, _ *api.Empty) (*api.MaliciousFilesResponse, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.admin.MaliciousFiles(ctx, acc)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &api.MaliciousFilesResponse{Files: make([]api.MaliciousFile, 0, len(list))}
	for _, f := range list {
		out.Files = append(out.Files, api.MaliciousFile{
			ID:         f.ID,
			Name:       f.OriginalName,
			OwnerID:    f.OwnerID,
			OwnerEmail: f.OwnerEmail,
			EngineHits: f.EngineHits,
			CreatedAt:  f.CreatedAt,
		})
	}
	return out, nil
}

func (s *GRPCServer) SuspiciousActivity(ctx context.Context, _ *api.Empty) (*api.SuspiciousActivityResponse, error) {
	acc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	sa, err := s.admin.SuspiciousActivity(ctx, acc)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := &api.SuspiciousActivityResponse{
		FailedLoginEmails: make([]api.EmailCount, 0, len(sa.FailedLoginEmails)),
		FailedLoginAddrs:  make([]api.AddrCount, 0, len(sa.FailedLoginAddrs)),
		RecentLocks:       make([]api.LockRecord, 0, len(sa.RecentLocks)),
	}
	for _, e := range sa.FailedLoginEmails {
		out.FailedLoginEmails = append(out.FailedLoginEmails, api.EmailCount{Email: e.Email, Count: e.Count})
	}
	for _, a := range sa.FailedLoginAddrs {
		out.FailedLoginAddrs = append(out.FailedLoginAddrs, api.AddrCount{Addr: a.Addr, Count: a.Count})
	}
	for _, l := range sa.RecentLocks {
		out.RecentLocks = append(out.RecentLocks, api.LockRecord{Email: l.Email, CreatedAt: l.CreatedAt})
	}
	return out, nil
}
