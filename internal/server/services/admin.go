package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/audit"
	"github.com/SakshiM22/secure-vault/internal/server/catalog"
	"github.com/SakshiM22/secure-vault/internal/server/lockout"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/repomanager"
)

// Thresholds used by SuspiciousActivity.
const (
	SuspiciousEmailFailures = 5
	SuspiciousAddrFailures  = 10
	RecentLockLimit         = 20
)

// AdminService implements the administrator surface. Every method checks
// the actor's role; actions on a target account refuse to touch the actor.
type AdminService struct {
	repomanager repomanager.RepositoryManager
	catalog     *catalog.Catalog
	bus         *audit.Bus
	clock       clockx.Clock
	log         logging.Logger
}

func NewAdminService(m repomanager.RepositoryManager, c *catalog.Catalog, bus *audit.Bus, clock clockx.Clock, log logging.Logger) *AdminService {
	return &AdminService{repomanager: m, catalog: c, bus: bus, clock: clock, log: log}
}

func requireAdmin(actor *models.Account) error {
	if actor == nil {
		return common.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return common.ErrAccessDenied
	}
	return nil
}

// ListAccounts returns every account ordered by creation time.
func (s *AdminService) ListAccounts(ctx context.Context, actor *models.Account) ([]*models.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Accounts().List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list accounts", err)
	}
	return list, nil
}

// mutateTarget loads targetID under a row lock and applies fn. Audit is
// emitted once the transaction has finished.
func (s *AdminService) mutateTarget(ctx context.Context, actor *models.Account, targetID, action, origin string,
	fn func(ctx context.Context, tx repomanager.RepositoryManager, target *models.Account) error) (*models.Account, error) {

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if targetID == actor.ID {
		s.bus.Emit(ctx, actor.Email, action, models.OutcomeFailed, origin)
		return nil, common.ErrSelfAction
	}

	var target *models.Account
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx repomanager.RepositoryManager) error {
		acc, err := tx.Accounts().GetByIDForUpdate(ctx, targetID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, acc); err != nil {
			return err
		}
		target = acc
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.bus.Emit(ctx, actor.Email, action, models.OutcomeFailed, origin)
			return nil, common.ErrNotFound
		}
		s.bus.Emit(ctx, actor.Email, action, models.OutcomeError, origin)
		return nil, s.internal(ctx, action, err)
	}

	s.log.Info(ctx, "admin action", "action", action, "actor", actor.ID, "target", target.ID)
	s.bus.Emit(ctx, actor.Email, action, models.OutcomeSuccess, origin)
	return target, nil
}

// Lock places an administrative lock. It has no cooldown.
func (s *AdminService) Lock(ctx context.Context, actor *models.Account, targetID, origin string) (*models.Account, error) {
	return s.mutateTarget(ctx, actor, targetID, models.ActionAdminLock, origin,
		func(ctx context.Context, tx repomanager.RepositoryManager, acc *models.Account) error {
			if !lockout.AdminLock(acc, s.clock.Now()) {
				return nil
			}
			return tx.Accounts().UpdateLock(ctx, acc.ID, acc.LockState, acc.FailedAttempts, acc.LockTime)
		})
}

// Unlock clears either kind of lock immediately.
func (s *AdminService) Unlock(ctx context.Context, actor *models.Account, targetID, origin string) (*models.Account, error) {
	return s.mutateTarget(ctx, actor, targetID, models.ActionAdminUnlock, origin,
		func(ctx context.Context, tx repomanager.RepositoryManager, acc *models.Account) error {
			if !lockout.AdminUnlock(acc) {
				return nil
			}
			return tx.Accounts().UpdateLock(ctx, acc.ID, acc.LockState, acc.FailedAttempts, acc.LockTime)
		})
}

func (s *AdminService) setRole(ctx context.Context, actor *models.Account, targetID string, role models.Role, origin string) (*models.Account, error) {
	return s.mutateTarget(ctx, actor, targetID, models.ActionRoleChange, origin,
		func(ctx context.Context, tx repomanager.RepositoryManager, acc *models.Account) error {
			v, err := tx.Accounts().SetRole(ctx, acc.ID, role)
			if err != nil {
				return err
			}
			acc.Role, acc.TokenVersion = role, v
			return nil
		})
}

// Promote grants the admin role. Existing sessions of the target end.
func (s *AdminService) Promote(ctx context.Context, actor *models.Account, targetID, origin string) (*models.Account, error) {
	return s.setRole(ctx, actor, targetID, models.RoleAdmin, origin)
}

// Demote revokes the admin role. Existing sessions of the target end.
func (s *AdminService) Demote(ctx context.Context, actor *models.Account, targetID, origin string) (*models.Account, error) {
	return s.setRole(ctx, actor, targetID, models.RoleUser, origin)
}

// ForceLogout invalidates every token issued to the target so far.
func (s *AdminService) ForceLogout(ctx context.Context, actor *models.Account, targetID, origin string) (*models.Account, error) {
	return s.mutateTarget(ctx, actor, targetID, models.ActionForceLogout, origin,
		func(ctx context.Context, tx repomanager.RepositoryManager, acc *models.Account) error {
			v, err := tx.Accounts().BumpTokenVersion(ctx, acc.ID)
			if err != nil {
				return err
			}
			acc.TokenVersion = v
			return nil
		})
}

// DeleteAccount removes the target's files (bytes and rows) and then the
// account. Audit history referencing the email is kept.
func (s *AdminService) DeleteAccount(ctx context.Context, actor *models.Account, targetID, origin string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if targetID == actor.ID {
		s.bus.Emit(ctx, actor.Email, models.ActionAccountDelete, models.OutcomeFailed, origin)
		return common.ErrSelfAction
	}

	target, err := s.repomanager.Accounts().GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.bus.Emit(ctx, actor.Email, models.ActionAccountDelete, models.OutcomeFailed, origin)
			return common.ErrNotFound
		}
		s.bus.Emit(ctx, actor.Email, models.ActionAccountDelete, models.OutcomeError, origin)
		return s.internal(ctx, "load account", err)
	}

	n, err := s.catalog.PurgeOwner(ctx, target.ID)
	if err == nil {
		err = s.repomanager.Accounts().Delete(ctx, target.ID)
	}
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.bus.Emit(ctx, actor.Email, models.ActionAccountDelete, models.OutcomeError, origin)
		return s.internal(ctx, "delete account", err)
	}

	s.log.Info(ctx, "account deleted", "actor", actor.ID, "target", target.ID, "files", n)
	s.bus.Emit(ctx, actor.Email, models.ActionAccountDelete, models.OutcomeSuccess, origin)
	return nil
}

// AuditLog returns the newest n events; see audit.Bus.Recent for limits.
func (s *AdminService) AuditLog(ctx context.Context, actor *models.Account, n int) ([]models.AuditEvent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.bus.Recent(ctx, n)
	if err != nil {
		return nil, s.internal(ctx, "audit log", err)
	}
	return list, nil
}

func (s *AdminService) Analytics(ctx context.Context, actor *models.Account) (*models.Analytics, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var (
		out   models.Analytics
		err   error
		since = s.clock.Now().Add(-24 * time.Hour)
	)
	step := func(name string, fn func() error) {
		if err == nil {
			if ferr := fn(); ferr != nil {
				err = fmt.Errorf("%s: %w", name, ferr)
			}
		}
	}
	files := s.repomanager.Files()
	events := s.repomanager.Events()

	step("accounts", func() (e error) {
		out.TotalAccounts, out.LockedAccounts, e = s.repomanager.Accounts().Count(ctx)
		return
	})
	step("safe files", func() (e error) {
		out.SafeUploads, e = files.CountByStatus(ctx, models.MalwareSafe)
		return
	})
	step("malicious files", func() (e error) {
		out.MaliciousFiles, e = files.CountByStatus(ctx, models.MalwareMalicious)
		return
	})
	step("downloads", func() (e error) {
		out.TotalDownloads, e = events.Count(ctx, models.ActionFileDownload, models.OutcomeSuccess, time.Time{})
		return
	})
	step("failed logins", func() (e error) {
		out.FailedLogins24h, e = events.Count(ctx, models.ActionLogin, models.OutcomeFailed, since)
		return
	})
	step("lock events", func() (e error) {
		out.LockEvents24h, e = events.Count(ctx, models.ActionAccountLock, "", since)
		return
	})
	if err != nil {
		return nil, s.internal(ctx, "analytics", err)
	}
	return &out, nil
}

func (s *AdminService) MaliciousFiles(ctx context.Context, actor *models.Account) ([]*models.MaliciousFile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Files().ListMalicious(ctx)
	if err != nil {
		return nil, s.internal(ctx, "malicious files", err)
	}
	return list, nil
}

func (s *AdminService) SuspiciousActivity(ctx context.Context, actor *models.Account) (*models.SuspiciousActivity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	events := s.repomanager.Events()

	var out models.SuspiciousActivity
	var err error
	if out.FailedLoginEmails, err = events.FailedLoginsByEmail(ctx, SuspiciousEmailFailures); err != nil {
		return nil, s.internal(ctx, "suspicious emails", err)
	}
	if out.FailedLoginAddrs, err = events.FailedLoginsByAddr(ctx, SuspiciousAddrFailures); err != nil {
		return nil, s.internal(ctx, "suspicious addresses", err)
	}
	if out.RecentLocks, err = events.RecentLocks(ctx, RecentLockLimit); err != nil {
		return nil, s.internal(ctx, "recent locks", err)
	}
	return &out, nil
}

// Watch subscribes an administrator to live audit events.
func (s *AdminService) Watch(actor *models.Account) (*audit.Subscription, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.bus.Subscribe(), nil
}

func (s *AdminService) internal(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, "admin operation failed", "op", op, "error", err)
	return common.ErrInternal
}
