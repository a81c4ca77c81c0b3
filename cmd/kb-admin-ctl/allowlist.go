package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ifrugal/kb-admin/config"
	"github.com/ifrugal/kb-admin/internal/adapters/allowlist"
	"github.com/ifrugal/kb-admin/internal/ports"
	"github.com/ifrugal/kb-admin/internal/service"
)

//nolint:ireturn // source kind follows configuration.
func allowlistSource(cmdCtx *commandContext) (ports.AllowlistSource, error) {
	cfg := cmdCtx.Config.Auth.Allowlist
	if cfg.Source == config.AllowlistSourceRedis {
		return redisAllowlist(cmdCtx)
	}
	return allowlist.NewEnvSource(cfg.EnvVar, nil), nil
}

func redisAllowlist(cmdCtx *commandContext) (*allowlist.RedisSource, error) {
	if cmdCtx.Config.Auth.Allowlist.Source != config.AllowlistSourceRedis {
		return nil, fmt.Errorf("allow-list source is %q; edit %s instead",
			cmdCtx.Config.Auth.Allowlist.Source, cmdCtx.Config.Auth.Allowlist.EnvVar)
	}
	client, err := cmdCtx.requireRedis()
	if err != nil {
		return nil, err
	}
	return allowlist.NewRedisSource(client, cmdCtx.Config.Auth.Allowlist.RedisKey), nil
}

func runAllowlistList(cmdCtx *commandContext, _ []string) error {
	src, err := allowlistSource(cmdCtx)
	if err != nil {
		return err
	}
	list, err := src.Allowlist(cmdCtx.Ctx)
	if err != nil {
		return fmt.Errorf("read allow-list: %w", err)
	}

	cfg := cmdCtx.Config.Auth.Allowlist
	origin := "env " + cfg.EnvVar
	if cfg.Source == config.AllowlistSourceRedis {
		origin = "redis set " + cfg.RedisKey
	}
	if list.Empty() {
		return writef(cmdCtx.Out, "Allow-list (%s) is empty: nobody can sign in.\n", origin)
	}
	if err := writef(cmdCtx.Out, "Allow-list (%s), %d entries:\n", origin, list.Len()); err != nil {
		return err
	}
	for _, m := range list.Members() {
		if err := writef(cmdCtx.Out, "  %s\n", m); err != nil {
			return err
		}
	}
	return nil
}

type allowlistEditOptions struct {
	Emails []string
	Yes    bool
}

func parseAllowlistEditFlags(name string, args []string, stderr io.Writer) (allowlistEditOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts allowlistEditOptions
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return allowlistEditOptions{}, err
	}
	for _, arg := range fs.Args() {
		for _, e := range strings.Split(arg, ",") {
			if e = strings.TrimSpace(e); e != "" {
				opts.Emails = append(opts.Emails, e)
			}
		}
	}
	if len(opts.Emails) == 0 {
		return allowlistEditOptions{}, errors.New("at least one email is required")
	}
	return opts, nil
}

func runAllowlistAdd(cmdCtx *commandContext, args []string) error {
	opts, err := parseAllowlistEditFlags("allowlist-add", args, cmdCtx.Out)
	if err != nil {
		return err
	}
	src, err := redisAllowlist(cmdCtx)
	if err != nil {
		return err
	}
	added, err := src.Add(cmdCtx.Ctx, opts.Emails...)
	if err != nil {
		return err
	}
	cmdCtx.Logger.InfoContext(cmdCtx.Ctx, "allow-list updated", "action", "add", "added", added, "key", src.Key())
	return writef(cmdCtx.Out, "Added %d new entries to %s.\n", added, src.Key())
}

func runAllowlistRemove(cmdCtx *commandContext, args []string) error {
	opts, err := parseAllowlistEditFlags("allowlist-remove", args, cmdCtx.Out)
	if err != nil {
		return err
	}
	src, err := redisAllowlist(cmdCtx)
	if err != nil {
		return err
	}
	prompt := fmt.Sprintf("About to remove %s from %s; their sessions stop working on the next request.",
		strings.Join(opts.Emails, ", "), src.Key())
	if confirmErr := confirmAction(cmdCtx, prompt, opts.Yes); confirmErr != nil {
		return confirmErr
	}
	removed, err := src.Remove(cmdCtx.Ctx, opts.Emails...)
	if err != nil {
		return err
	}
	cmdCtx.Logger.InfoContext(cmdCtx.Ctx, "allow-list updated", "action", "remove", "removed", removed, "key", src.Key())
	return writef(cmdCtx.Out, "Removed %d entries from %s.\n", removed, src.Key())
}

func runCheckEmail(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: check-email <email>")
	}
	src, err := allowlistSource(cmdCtx)
	if err != nil {
		return err
	}
	authz, err := service.NewAuthorizer(service.AuthorizerOptions{Source: src, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	verdict := "denied"
	if authz.IsAllowed(cmdCtx.Ctx, args[0]) {
		verdict = "allowed"
	}
	return writef(cmdCtx.Out, "%s: %s\n", args[0], verdict)
}
