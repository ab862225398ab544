package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

type commands struct {
	*app
	engine       *goAccount.Engine
	passwordless bool
}

func (c *commands) dispatch(ctx context.Context, name string, args []string) error {
	ctx = goAccount.WithOperator(ctx)

	switch name {
	case "create":
		return c.create(ctx, args)
	case "reset-password":
		return c.resetPassword(ctx, args)
	case "list":
		return c.list(ctx, args)
	case "enable":
		return c.simple(ctx, args, "enabled", c.engine.EnableAccount)
	case "disable":
		return c.simple(ctx, args, "disabled", c.engine.DisableAccount)
	case "promote":
		return c.simple(ctx, args, "promoted", c.engine.PromoteAccount)
	case "demote":
		return c.simple(ctx, args, "demoted", c.engine.DemoteAccount)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// handleArg splits "<handle> [flags]" and parses the flags.
func handleArg(fs *flag.FlagSet, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", fmt.Errorf("%s: missing handle", fs.Name())
	}
	if err := fs.Parse(args[1:]); err != nil {
		return "", fmt.Errorf("%s: %w", fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("%s: unexpected argument %q", fs.Name(), fs.Arg(0))
	}
	return args[0], nil
}

func (c *commands) create(ctx context.Context, args []string) error {
	fs := newFlags("create")
	name := fs.String("name", "", "display name")
	admin := fs.Bool("admin", false, "grant administrator rights")
	noPassword := fs.Bool("no-password", false, "create a passwordless account")
	handle, err := handleArg(fs, args)
	if err != nil {
		return err
	}

	req := goAccount.CreateAccountRequest{Handle: handle, Name: *name, Admin: *admin}
	if !*noPassword {
		pw, err := c.promptNewPassword()
		if err != nil {
			return err
		}
		req.Password = pw
	}

	res, err := c.engine.CreateAccount(ctx, req)
	if err != nil {
		return err
	}
	role := "user"
	if res.Admin {
		role = "admin"
	}
	fmt.Fprintf(c.out, "created %s (%s)\n", res.Handle, role)
	return nil
}

func (c *commands) resetPassword(ctx context.Context, args []string) error {
	fs := newFlags("reset-password")
	clearPassword := fs.Bool("clear", false, "remove the password")
	handle, err := handleArg(fs, args)
	if err != nil {
		return err
	}

	var pw string
	if !*clearPassword {
		if pw, err = c.promptNewPassword(); err != nil {
			return err
		}
	}
	if err := c.engine.ChangePassword(ctx, goAccount.ChangePasswordRequest{Handle: handle, NewPassword: pw}); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "password updated for %s\n", handle)
	return nil
}

func (c *commands) list(ctx context.Context, args []string) error {
	fs := newFlags("list")
	search := fs.String("search", "", "filter by handle or name")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 0, "page size")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("list: %w", err)
	}

	res, err := c.engine.ListAccounts(ctx, goAccount.ListQuery{Page: *page, PageSize: *size, Search: *search})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tNAME\tADMIN\tENABLED\tPASSWORD\tCREATED")
	for _, v := range res.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%t\t%s\n",
			v.Handle, v.Name, v.Admin, v.Enabled, v.HasPassword,
			time.UnixMilli(v.Created).UTC().Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "page %d/%d, %d accounts\n", res.Page, res.TotalPages, res.Total)
	return nil
}

func (c *commands) simple(ctx context.Context, args []string, verb string, fn func(context.Context, string) error) error {
	handle, err := handleArg(newFlags(verb), args)
	if err != nil {
		return err
	}
	if err := fn(ctx, handle); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s\n", verb, handle)
	return nil
}

func (c *commands) promptNewPassword() (string, error) {
	fmt.Fprint(c.out, "New password: ")
	first, err := c.readPassword()
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(c.out, "Repeat password: ")
	second, err := c.readPassword()
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 && !c.passwordless {
		return "", errors.New("a password is required")
	}
	return string(first), nil
}

func (a *app) lint(res goAccount.LintResult) error {
	if len(res) == 0 {
		fmt.Fprintln(a.out, "no findings")
		return nil
	}
	for _, w := range res {
		fmt.Fprintf(a.out, "%-4s %s: %s\n", w.Severity, w.Code, w.Message)
	}
	return res.AsError(goAccount.LintHigh)
}
