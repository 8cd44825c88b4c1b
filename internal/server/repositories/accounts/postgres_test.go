package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var accountCols = []string{"id", "email", "password_hash", "role", "lock_state", "failed_attempts", "lock_time", "token_version", "created_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email`).
		WithArgs("a1", "alice@example.com", "hash", "user", "active", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acc, err := repo.Create(context.Background(), &models.Account{
		ID: "a1", Email: "alice@example.com", PasswordHash: "hash", Role: models.RoleUser, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.LockState != models.LockActive || acc.TokenVersion != 0 {
		t.Fatalf("unexpected defaults: %+v", acc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.Account{ID: "a1", Email: "dup@example.com", Role: models.RoleUser})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{ID: "a1", Email: "x@example.com", Role: models.RoleUser})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmailForUpdate_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	locked := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	created := locked.Add(-time.Hour)
	rows := sqlmock.NewRows(accountCols).
		AddRow("a1", "bob@example.com", "h", "user", "brute_force_locked", 3, locked, int64(4), created)

	mock.ExpectQuery(`(?s)^SELECT .* FROM users WHERE email = \$1 FOR UPDATE$`).
		WithArgs("bob@example.com").
		WillReturnRows(rows)

	acc, err := repo.GetByEmailForUpdate(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.LockState != models.LockBruteForceLocked || acc.FailedAttempts != 3 || acc.TokenVersion != 4 {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if acc.LockTime == nil || !acc.LockTime.Equal(locked) {
		t.Fatalf("lock time not scanned: %v", acc.LockTime)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT .* FROM users WHERE id = \$1$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestList_OrderedByCreation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(accountCols).
		AddRow("a1", "admin@example.com", "h", "admin", "active", 0, nil, int64(0), t0).
		AddRow("a2", "u@example.com", "h", "user", "admin_locked", 0, t0, int64(1), t0.Add(time.Minute))

	mock.ExpectQuery(`(?s)FROM users ORDER BY created_at ASC`).WillReturnRows(rows)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Role != models.RoleAdmin || got[1].LockState != models.LockAdminLocked {
		t.Fatalf("unexpected list: %+v", got)
	}
	if got[0].LockTime != nil {
		t.Fatalf("null lock_time must scan as nil")
	}
}

func TestUpdateLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	q := `(?s)^UPDATE users SET lock_state = \$2, failed_attempts = \$3, lock_time = \$4\s+WHERE id = \$1$`

	mock.ExpectExec(q).
		WithArgs("a1", "brute_force_locked", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateLock(context.Background(), "a1", models.LockBruteForceLocked, 3, &now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec(q).
		WithArgs("gone", "active", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.UpdateLock(context.Background(), "gone", models.LockActive, 0, nil); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetRole_BumpsVersion(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE users SET role = \$2, token_version = token_version \+ 1.*RETURNING token_version$`).
		WithArgs("a1", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(int64(2)))

	v, err := repo.SetRole(context.Background(), "a1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Fatalf("want version 2, got %d", v)
	}
}

func TestBumpTokenVersion_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE users SET token_version = token_version \+ 1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.BumpTokenVersion(context.Background(), "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM users WHERE id = \$1$`).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec(`^DELETE FROM users WHERE id = \$1$`).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
	err := repo.Delete(context.Background(), "a1")
	if err == nil || !regexp.MustCompile(`rows affected error: .*rows-err`).MatchString(err.Error()) {
		t.Fatalf("expected rows affected error, got %v", err)
	}
}

func TestCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT COUNT\(\*\), COUNT\(\*\) FILTER`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "locked"}).AddRow(int64(7), int64(2)))

	total, locked, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 7 || locked != 2 {
		t.Fatalf("got total=%d locked=%d", total, locked)
	}
}
