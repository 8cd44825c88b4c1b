package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if a.session != nil {
		s = a.session.Email + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root runs the interactive prompt until the user exits.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to the secure vault CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
