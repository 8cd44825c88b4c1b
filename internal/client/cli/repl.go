package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/SakshiM22/secure-vault/internal/client/client"
)

// printlnFn and printFn are test seams for user-facing output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface is the command surface the prompt dispatches to. App satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool

	Signup(ctx context.Context, email string) error
	Login(ctx context.Context, email string) error
	Logout(ctx context.Context) error

	Upload(ctx context.Context, path string) error
	List(ctx context.Context) error
	Get(ctx context.Context, id, dest string) error
	Preview(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error

	Accounts(ctx context.Context) error
	AccountAction(ctx context.Context, action client.AccountAction, id string) error
	DeleteAccount(ctx context.Context, id string) error
	Audit(ctx context.Context, limit int) error
	Stats(ctx context.Context) error
	Malware(ctx context.Context) error
	Suspicious(ctx context.Context) error
	Watch(ctx context.Context) error
}

const (
	userHelp  = "Available commands: upload <path>, ls, get <id> [dest], preview <id>, rm <id>, logout, exit"
	adminHelp = "Admin commands: accounts, lock|unlock|promote|demote|force-logout <id>, delete-account <id>, audit [limit], stats, malware, suspicious, watch"
	guestHelp = "Available commands: signup [email], login [email], exit"
)

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// dispatch runs one command line. It reports quit=true for exit and quit.
func dispatch(ctx context.Context, a execIface, parts []string) (bool, error) {
	cmd, args := parts[0], parts[1:]

	need := func(usage string) (string, error) {
		if len(args) == 0 {
			return "", usageError(usage)
		}
		return args[0], nil
	}

	switch cmd {
	case "help":
		switch {
		case !a.isLoggedIn():
			printlnFn(guestHelp)
		case a.isAdmin():
			printlnFn(userHelp)
			printlnFn(adminHelp)
		default:
			printlnFn(userHelp)
		}
		return false, nil

	case "exit", "quit":
		return true, nil

	case "signup", "register":
		return false, a.Signup(ctx, argAt(args, 0))
	case "login":
		return false, a.Login(ctx, argAt(args, 0))
	case "logout":
		return false, a.Logout(ctx)

	case "upload":
		path, err := need("upload <path>")
		if err != nil {
			return false, err
		}
		return false, a.Upload(ctx, path)
	case "ls", "l", "list":
		return false, a.List(ctx)
	case "get":
		id, err := need("get <id> [dest]")
		if err != nil {
			return false, err
		}
		dest := argAt(args, 1)
		if dest == "" {
			dest = "."
		}
		return false, a.Get(ctx, id, dest)
	case "preview":
		id, err := need("preview <id>")
		if err != nil {
			return false, err
		}
		return false, a.Preview(ctx, id)
	case "rm", "delete":
		id, err := need("rm <id>")
		if err != nil {
			return false, err
		}
		return false, a.Remove(ctx, id)

	case "accounts":
		return false, a.Accounts(ctx)
	case string(client.ActionLock), string(client.ActionUnlock), string(client.ActionPromote),
		string(client.ActionDemote), string(client.ActionForceLogout):
		id, err := need(cmd + " <account-id>")
		if err != nil {
			return false, err
		}
		return false, a.AccountAction(ctx, client.AccountAction(cmd), id)
	case "delete-account":
		id, err := need("delete-account <account-id>")
		if err != nil {
			return false, err
		}
		return false, a.DeleteAccount(ctx, id)
	case "audit":
		limit := 0
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return false, usageError("audit [limit]")
			}
			limit = n
		}
		return false, a.Audit(ctx, limit)
	case "stats":
		return false, a.Stats(ctx)
	case "malware":
		return false, a.Malware(ctx)
	case "suspicious":
		return false, a.Suspicious(ctx)
	case "watch":
		return false, a.Watch(ctx)
	}

	return false, fmt.Errorf("unknown command: %s", cmd)
}

// runREPL reads commands line by line and dispatches them until EOF or
// exit. Command errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("vault %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			printlnFn()
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		quit, err := dispatch(ctx, a, parts)
		if quit {
			printlnFn("Bye!")
			return
		}
		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
