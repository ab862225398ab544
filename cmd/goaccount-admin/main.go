// Command goaccount-admin manages accounts directly in the configured store.
// It reads the same configuration sources as goaccount-server and acts as a
// trusted operator, so it can bootstrap or repair a deployment without a
// session.
//
//	goaccount-admin [server flags] create <handle> [-name N] [-admin] [-no-password]
//	goaccount-admin [server flags] reset-password <handle> [-clear]
//	goaccount-admin [server flags] list [-search S] [-page N] [-size N]
//	goaccount-admin [server flags] enable|disable|promote|demote <handle>
//	goaccount-admin [server flags] lint
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrEthical07/goAccount/internal/backend"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/internal/serverconfig"
	"golang.org/x/term"
)

func main() {
	cli := &app{
		out:          os.Stdout,
		readPassword: func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) },
	}
	if err := cli.run(context.Background(), os.Args[1:], os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "goaccount-admin: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	out          io.Writer
	readPassword func() ([]byte, error)
}

func (a *app) run(ctx context.Context, args []string, getenv func(string) string) error {
	cfg, rest, err := serverconfig.LoadArgs(args, getenv)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("missing command (create, reset-password, list, enable, disable, promote, demote, lint)")
	}

	engineCfg := cfg.EngineConfig()
	if rest[0] == "lint" {
		return a.lint(engineCfg.Lint())
	}

	be, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	engine, err := be.Builder(engineCfg).WithLogger(logger).WithMetricsEnabled(false).Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	c := &commands{app: a, engine: engine, passwordless: engineCfg.Account.AllowPasswordless}
	return c.dispatch(ctx, rest[0], rest[1:])
}
