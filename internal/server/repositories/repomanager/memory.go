package repomanager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/accounts"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/events"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/files"
)

// memState is the shared in-process store. Transactions hold mu for their
// whole duration and roll back by restoring a snapshot.
type memState struct {
	mu       sync.Mutex
	accounts []*models.Account
	files    []*models.StoredFile
	events   []models.AuditEvent
	nextID   int64
}

type memSnapshot struct {
	accounts []*models.Account
	files    []*models.StoredFile
	events   []models.AuditEvent
	nextID   int64
}

func (s *memState) snapshot() memSnapshot {
	snap := memSnapshot{
		accounts: make([]*models.Account, len(s.accounts)),
		files:    make([]*models.StoredFile, len(s.files)),
		events:   append([]models.AuditEvent(nil), s.events...),
		nextID:   s.nextID,
	}
	for i, a := range s.accounts {
		snap.accounts[i] = a.Clone()
	}
	for i, f := range s.files {
		snap.files[i] = f.Clone()
	}
	return snap
}

func (s *memState) restore(snap memSnapshot) {
	s.accounts = snap.accounts
	s.files = snap.files
	s.events = snap.events
	s.nextID = snap.nextID
}

// MemoryRepositoryManager keeps everything in process memory. It backs the
// development mode and the end-to-end tests.
type MemoryRepositoryManager struct {
	st     *memState
	locked bool
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{st: &memState{}}
}

// run executes fn under the state lock unless the caller already holds it.
func (m *MemoryRepositoryManager) run(fn func(s *memState) error) error {
	if !m.locked {
		m.st.mu.Lock()
		defer m.st.mu.Unlock()
	}
	return fn(m.st)
}

func (m *MemoryRepositoryManager) Accounts() accounts.Repository { return &memAccounts{m: m} }
func (m *MemoryRepositoryManager) Files() files.Repository       { return &memFiles{m: m} }
func (m *MemoryRepositoryManager) Events() events.Repository     { return &memEvents{m: m} }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx RepositoryManager) error) error {
	if m.locked {
		return fn(ctx, m)
	}

	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	snap := m.st.snapshot()
	committed := false
	defer func() {
		if !committed {
			m.st.restore(snap)
		}
	}()

	if err := fn(ctx, &MemoryRepositoryManager{st: m.st, locked: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Close() error                       { return nil }

type memAccounts struct{ m *MemoryRepositoryManager }

func (r *memAccounts) find(s *memState, pred func(*models.Account) bool) (int, *models.Account) {
	for i, a := range s.accounts {
		if pred(a) {
			return i, a
		}
	}
	return -1, nil
}

func (r *memAccounts) Create(_ context.Context, acc *models.Account) (*models.Account, error) {
	err := r.m.run(func(s *memState) error {
		if _, a := r.find(s, func(a *models.Account) bool { return a.Email == acc.Email }); a != nil {
			return common.ErrAlreadyExists
		}
		acc.LockState = models.LockActive
		acc.FailedAttempts = 0
		acc.LockTime = nil
		acc.TokenVersion = 0
		s.accounts = append(s.accounts, acc.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *memAccounts) get(pred func(*models.Account) bool) (*models.Account, error) {
	var out *models.Account
	err := r.m.run(func(s *memState) error {
		_, a := r.find(s, pred)
		if a == nil {
			return common.ErrNotFound
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *memAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return r.get(func(a *models.Account) bool { return a.ID == id })
}

func (r *memAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.get(func(a *models.Account) bool { return a.Email == email })
}

func (r *memAccounts) GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error) {
	return r.GetByEmail(ctx, email)
}

func (r *memAccounts) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *memAccounts) List(context.Context) ([]*models.Account, error) {
	var out []*models.Account
	err := r.m.run(func(s *memState) error {
		for _, a := range s.accounts {
			out = append(out, a.Clone())
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *memAccounts) mutate(id string, fn func(a *models.Account)) error {
	return r.m.run(func(s *memState) error {
		_, a := r.find(s, func(a *models.Account) bool { return a.ID == id })
		if a == nil {
			return common.ErrNotFound
		}
		fn(a)
		return nil
	})
}

func (r *memAccounts) UpdateLock(_ context.Context, id string, state models.LockState, failedAttempts int, lockTime *time.Time) error {
	return r.mutate(id, func(a *models.Account) {
		a.LockState = state
		a.FailedAttempts = failedAttempts
		a.LockTime = nil
		if lockTime != nil {
			t := *lockTime
			a.LockTime = &t
		}
	})
}

func (r *memAccounts) SetRole(_ context.Context, id string, role models.Role) (int64, error) {
	var v int64
	err := r.mutate(id, func(a *models.Account) {
		a.Role = role
		a.TokenVersion++
		v = a.TokenVersion
	})
	return v, err
}

func (r *memAccounts) BumpTokenVersion(_ context.Context, id string) (int64, error) {
	var v int64
	err := r.mutate(id, func(a *models.Account) {
		a.TokenVersion++
		v = a.TokenVersion
	})
	return v, err
}

func (r *memAccounts) Delete(_ context.Context, id string) error {
	return r.m.run(func(s *memState) error {
		i, a := r.find(s, func(a *models.Account) bool { return a.ID == id })
		if a == nil {
			return common.ErrNotFound
		}
		for _, f := range s.files {
			if f.OwnerID == id {
				return fmt.Errorf("db error: account %s still owns files", id)
			}
		}
		s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
		return nil
	})
}

func (r *memAccounts) Count(context.Context) (int64, int64, error) {
	var total, locked int64
	err := r.m.run(func(s *memState) error {
		for _, a := range s.accounts {
			total++
			if a.Locked() {
				locked++
			}
		}
		return nil
	})
	return total, locked, err
}

type memFiles struct{ m *MemoryRepositoryManager }

func (r *memFiles) Create(_ context.Context, f *models.StoredFile) error {
	return r.m.run(func(s *memState) error {
		owner := false
		for _, a := range s.accounts {
			if a.ID == f.OwnerID {
				owner = true
				break
			}
		}
		if !owner {
			return fmt.Errorf("db error: unknown owner %s", f.OwnerID)
		}
		for _, x := range s.files {
			if x.ID == f.ID || x.StorageName == f.StorageName {
				return common.ErrAlreadyExists
			}
		}
		s.files = append(s.files, f.Clone())
		return nil
	})
}

func (r *memFiles) GetForOwner(_ context.Context, ownerID, id string) (*models.StoredFile, error) {
	var out *models.StoredFile
	err := r.m.run(func(s *memState) error {
		for _, f := range s.files {
			if f.ID == id && f.OwnerID == ownerID && f.DeletingAt == nil {
				out = f.Clone()
				return nil
			}
		}
		return common.ErrNotFound
	})
	return out, err
}

func (r *memFiles) filter(pred func(*models.StoredFile) bool) ([]*models.StoredFile, error) {
	var out []*models.StoredFile
	err := r.m.run(func(s *memState) error {
		for _, f := range s.files {
			if pred(f) {
				out = append(out, f.Clone())
			}
		}
		return nil
	})
	return out, err
}

// newestFirst orders by creation time descending; among equal timestamps
// the later insert comes first.
func newestFirst(list []*models.StoredFile) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}

func (r *memFiles) ListByOwner(_ context.Context, ownerID string) ([]*models.StoredFile, error) {
	out, err := r.filter(func(f *models.StoredFile) bool { return f.OwnerID == ownerID && f.DeletingAt == nil })
	newestFirst(out)
	return out, err
}

func (r *memFiles) ListAllByOwner(_ context.Context, ownerID string) ([]*models.StoredFile, error) {
	return r.filter(func(f *models.StoredFile) bool { return f.OwnerID == ownerID })
}

func (r *memFiles) ListDeleting(context.Context) ([]*models.StoredFile, error) {
	return r.filter(func(f *models.StoredFile) bool { return f.DeletingAt != nil })
}

func (r *memFiles) MarkDeleting(_ context.Context, id string, at time.Time) error {
	return r.m.run(func(s *memState) error {
		for _, f := range s.files {
			if f.ID == id && f.DeletingAt == nil {
				t := at
				f.DeletingAt = &t
				return nil
			}
		}
		return common.ErrNotFound
	})
}

func (r *memFiles) Delete(_ context.Context, id string) error {
	return r.m.run(func(s *memState) error {
		for i, f := range s.files {
			if f.ID == id {
				s.files = append(s.files[:i], s.files[i+1:]...)
				return nil
			}
		}
		return common.ErrNotFound
	})
}

func (r *memFiles) ListMalicious(context.Context) ([]*models.MaliciousFile, error) {
	var out []*models.MaliciousFile
	err := r.m.run(func(s *memState) error {
		emails := make(map[string]string, len(s.accounts))
		for _, a := range s.accounts {
			emails[a.ID] = a.Email
		}
		var list []*models.StoredFile
		for _, f := range s.files {
			if f.Status == models.MalwareMalicious {
				list = append(list, f.Clone())
			}
		}
		newestFirst(list)
		for _, f := range list {
			out = append(out, &models.MaliciousFile{StoredFile: *f, OwnerEmail: emails[f.OwnerID]})
		}
		return nil
	})
	return out, err
}

func (r *memFiles) CountByStatus(_ context.Context, status models.MalwareStatus) (int64, error) {
	var n int64
	err := r.m.run(func(s *memState) error {
		for _, f := range s.files {
			if f.Status == status {
				n++
			}
		}
		return nil
	})
	return n, err
}

type memEvents struct{ m *MemoryRepositoryManager }

func (r *memEvents) Append(_ context.Context, ev *models.AuditEvent) error {
	return r.m.run(func(s *memState) error {
		s.nextID++
		ev.ID = s.nextID
		s.events = append(s.events, *ev)
		return nil
	})
}

func (r *memEvents) Recent(_ context.Context, limit int) ([]models.AuditEvent, error) {
	var out []models.AuditEvent
	err := r.m.run(func(s *memState) error {
		out = append(out, s.events...)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *memEvents) each(fn func(ev models.AuditEvent)) error {
	return r.m.run(func(s *memState) error {
		for _, ev := range s.events {
			fn(ev)
		}
		return nil
	})
}

func (r *memEvents) Count(_ context.Context, action string, outcome models.Outcome, since time.Time) (int64, error) {
	var n int64
	err := r.each(func(ev models.AuditEvent) {
		if ev.Action == action && (outcome == "" || ev.Outcome == outcome) && !ev.CreatedAt.Before(since) {
			n++
		}
	})
	return n, err
}

func isFailedLogin(ev models.AuditEvent) bool {
	return ev.Action == models.ActionLogin && ev.Outcome == models.OutcomeFailed
}

func (r *memEvents) FailedLoginsByEmail(_ context.Context, moreThan int64) ([]models.EmailCount, error) {
	counts := map[string]int64{}
	err := r.each(func(ev models.AuditEvent) {
		if isFailedLogin(ev) && ev.ActorEmail != nil {
			counts[*ev.ActorEmail]++
		}
	})

	var out []models.EmailCount
	for email, c := range counts {
		if c > moreThan {
			out = append(out, models.EmailCount{Email: email, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Email < out[j].Email
	})
	return out, err
}

func (r *memEvents) FailedLoginsByAddr(_ context.Context, moreThan int64) ([]models.AddrCount, error) {
	counts := map[string]int64{}
	err := r.each(func(ev models.AuditEvent) {
		if isFailedLogin(ev) {
			counts[ev.OriginAddr]++
		}
	})

	var out []models.AddrCount
	for addr, c := range counts {
		if c > moreThan {
			out = append(out, models.AddrCount{Addr: addr, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Addr < out[j].Addr
	})
	return out, err
}

func (r *memEvents) RecentLocks(ctx context.Context, limit int) ([]models.LockRecord, error) {
	all, err := r.Recent(ctx, -1)
	if err != nil {
		return nil, err
	}
	var out []models.LockRecord
	for _, ev := range all {
		if ev.Action != models.ActionAccountLock {
			continue
		}
		out = append(out, models.LockRecord{Email: ev.Email(), CreatedAt: ev.CreatedAt})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
