package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/SakshiM22/secure-vault/internal/api"
)

// ErrUploadBlocked is returned when the scanner rejected an upload.
var ErrUploadBlocked = errors.New("upload blocked: malware detected")

func (a *App) Upload(ctx context.Context, path string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	resp, err := a.fileService.Upload(ctx, path)
	if err := a.track(ctx, err); err != nil {
		return err
	}

	if resp.Outcome == api.OutcomeBlocked {
		return fmt.Errorf("%w (%d engine hits)", ErrUploadBlocked, resp.EngineHits)
	}
	fmt.Fprintf(a.out, "Uploaded %s as %s (%s)\n", resp.File.Name, resp.File.ID, sizeOf(resp.File.Size))
	return nil
}

func (a *App) List(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	list, cached, err := a.fileService.List(ctx)
	if err := a.track(ctx, err); err != nil {
		return err
	}
	if cached {
		a.setMode(ModeOffline)
		fmt.Fprintln(a.out, "Server unavailable, showing the last known listing")
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}

	tw := newTable(a.out, "ID", "NAME", "SIZE", "STATUS", "UPLOADED")
	for _, f := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Name, sizeOf(f.Size), f.Status, ago(f.CreatedAt))
	}
	return tw.Flush()
}

func (a *App) Get(ctx context.Context, id, dest string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	path, err := a.fileService.Get(ctx, id, dest)
	if err := a.track(ctx, err); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved to %s\n", path)
	return nil
}

// Preview prints the file body to the terminal.
func (a *App) Preview(ctx context.Context, id string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	_, err := a.fileService.Preview(ctx, id, a.out)
	if err := a.track(ctx, err); err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) Remove(ctx context.Context, id string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	if err := a.track(ctx, a.fileService.Remove(ctx, id)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}
