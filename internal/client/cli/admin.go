package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/client/client"
)

func (a *App) Accounts(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	list, err := a.client.ListAccounts(ctx)
	if err := a.track(ctx, err); err != nil {
		return err
	}

	tw := newTable(a.out, "ID", "EMAIL", "ROLE", "STATE", "FAILED", "CREATED")
	for _, acc := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", acc.ID, acc.Email, acc.Role, acc.LockState, acc.FailedAttempts, ago(acc.CreatedAt))
	}
	return tw.Flush()
}

func (a *App) AccountAction(ctx context.Context, action client.AccountAction, id string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	acc, err := a.client.AccountAction(ctx, action, id)
	if err := a.track(ctx, err); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: role=%s state=%s\n", acc.Email, acc.Role, acc.LockState)
	return nil
}

// DeleteAccount asks for confirmation before removing the account and
// every file it owns.
func (a *App) DeleteAccount(ctx context.Context, id string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ok, err := confirm(a.reader, fmt.Sprintf("Delete account %s and all of its files?", id), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.track(ctx, a.client.DeleteAccount(ctx, id)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted account %s\n", id)
	return nil
}

func (a *App) Audit(ctx context.Context, limit int) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	events, err := a.client.AuditLog(ctx, limit)
	if err := a.track(ctx, err); err != nil {
		return err
	}

	tw := newTable(a.out, "TIME", "ACTION", "OUTCOME", "EMAIL", "ORIGIN")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", stamp(e.CreatedAt), e.Action, e.Outcome, orDash(e.Email), orDash(e.Origin))
	}
	return tw.Flush()
}

func (a *App) Stats(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	s, err := a.client.Analytics(ctx)
	if err := a.track(ctx, err); err != nil {
		return err
	}

	tw := newTable(a.out, "METRIC", "VALUE")
	rows := []struct {
		name  string
		value int64
	}{
		{"accounts", s.TotalAccounts},
		{"locked accounts", s.LockedAccounts},
		{"safe uploads", s.SafeUploads},
		{"downloads", s.TotalDownloads},
		{"failed logins (24h)", s.FailedLogins24h},
		{"lockouts (24h)", s.LockEvents24h},
		{"malicious files", s.MaliciousFiles},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", r.name, r.value)
	}
	return tw.Flush()
}

func (a *App) Malware(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	list, err := a.client.MaliciousFiles(ctx)
	if err := a.track(ctx, err); err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No malicious uploads")
		return nil
	}

	tw := newTable(a.out, "ID", "NAME", "OWNER", "ENGINES", "UPLOADED")
	for _, f := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Name, orDash(f.OwnerEmail), f.EngineHits, ago(f.CreatedAt))
	}
	return tw.Flush()
}

func (a *App) Suspicious(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	sa, err := a.client.SuspiciousActivity(ctx)
	if err := a.track(ctx, err); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Failed logins by email (24h):")
	tw := newTable(a.out, "EMAIL", "COUNT")
	for _, e := range sa.FailedLoginEmails {
		fmt.Fprintf(tw, "%s\t%d\n", e.Email, e.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nFailed logins by address (24h):")
	tw = newTable(a.out, "ADDRESS", "COUNT")
	for _, e := range sa.FailedLoginAddrs {
		fmt.Fprintf(tw, "%s\t%d\n", e.Addr, e.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nRecent lockouts:")
	tw = newTable(a.out, "EMAIL", "TIME")
	for _, l := range sa.RecentLocks {
		fmt.Fprintf(tw, "%s\t%s\n", l.Email, stamp(l.CreatedAt))
	}
	return tw.Flush()
}

// Watch prints live audit events until interrupted.
func (a *App) Watch(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(a.out, "Watching audit events, press Ctrl-C to stop")
	err := a.client.Watch(ctx, func(e *api.Event) error {
		_, err := fmt.Fprintln(a.out, formatEvent(e))
		return err
	})
	return a.track(ctx, err)
}
