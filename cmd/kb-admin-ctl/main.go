package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/ifrugal/kb-admin/config"
	"github.com/ifrugal/kb-admin/internal/bootstrap"
	"github.com/redis/go-redis/v9"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Redis  redis.UniversalClient // nil when REDIS_ENABLED=false
	In     io.Reader
	Out    io.Writer
}

var errNeedsRedis = errors.New("this command needs Redis (set REDIS_ENABLED=true)")

func (c *commandContext) requireRedis() (redis.UniversalClient, error) {
	if c.Redis == nil {
		return nil, errNeedsRedis
	}
	return c.Redis, nil
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.ParseConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx := context.Background()
	redisClient, err := bootstrap.ConnectRedis(ctx, bootstrap.RedisOptions{Config: cfg.Redis})
	if err != nil {
		logger.ErrorContext(ctx, "connect redis", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal infrastructure failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Redis:  redisClient,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	if redisClient != nil {
		if closeErr := redisClient.Close(); closeErr != nil {
			logger.Warn("redis close failed", "error", closeErr)
		}
	}
	if runErr != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"allowlist-list": {
			name:        "allowlist-list",
			description: "Print the admin allow-list from the configured source",
			run:         runAllowlistList,
		},
		"allowlist-add": {
			name:        "allowlist-add",
			description: "Add admin emails to the Redis allow-list",
			run:         runAllowlistAdd,
		},
		"allowlist-remove": {
			name:        "allowlist-remove",
			description: "Remove admin emails from the Redis allow-list",
			run:         runAllowlistRemove,
		},
		"check-email": {
			name:        "check-email",
			description: "Report whether an email would be admitted right now",
			run:         runCheckEmail,
		},
		"revoke-token": {
			name:        "revoke-token",
			description: "Revoke a session token by its id (jti)",
			run:         runRevokeToken,
		},
		"list-revoked": {
			name:        "list-revoked",
			description: "List revoked session token ids and their remaining TTL",
			run:         runListRevoked,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: kb-admin-ctl <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-20s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// confirmAction asks for an explicit yes unless skipped with -yes.
func confirmAction(cmdCtx *commandContext, prompt string, yes bool) error {
	if yes {
		return nil
	}
	if err := writef(cmdCtx.Out, "%s Continue? [y/N]: ", prompt); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
