package cli

import (
	"context"
	"fmt"

	"github.com/SakshiM22/secure-vault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	confirm       = Confirm
)

func (a *App) credentials(email string) (string, []byte, error) {
	if email == "" {
		var err error
		if email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return "", nil, err
		}
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Signup creates an account. The email is prompted for when not given.
func (a *App) Signup(ctx context.Context, email string) error {
	email, password, err := a.credentials(email)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	acc, err := a.authService.Signup(ctx, email, string(password))
	if err := a.observe(err); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Account %s created, you can login now\n", acc.Email)
	return nil
}

// Login authenticates and remembers the session for later runs.
func (a *App) Login(ctx context.Context, email string) error {
	email, password, err := a.credentials(email)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	sess, err := a.authService.Login(ctx, email, string(password))
	if err := a.observe(err); err != nil {
		return err
	}

	a.session = sess
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", sess.Email, sess.Role)
	return nil
}

// Logout forgets the saved session and cached listing. The server keeps
// the token valid until it expires.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.session = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
