package main

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	redisadapter "github.com/ifrugal/kb-admin/internal/adapters/redis"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
)

type revokeOptions struct {
	TokenID string
	TTL     time.Duration
}

func parseRevokeFlags(args []string, cmdCtx *commandContext) (revokeOptions, error) {
	fs := flag.NewFlagSet("revoke-token", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Out)

	opts := revokeOptions{}
	fs.DurationVar(&opts.TTL, "ttl", domainauth.TokenMaxAge, "How long to remember the revocation (at least the token's remaining lifetime)")
	if err := fs.Parse(args); err != nil {
		return revokeOptions{}, err
	}
	if fs.NArg() != 1 {
		return revokeOptions{}, errors.New("usage: revoke-token [-ttl 8h] <token-id>")
	}
	opts.TokenID = strings.TrimSpace(fs.Arg(0))
	if opts.TokenID == "" {
		return revokeOptions{}, errors.New("token id is required")
	}
	if opts.TTL <= 0 {
		return revokeOptions{}, errors.New("-ttl must be positive")
	}
	return opts, nil
}

func runRevokeToken(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeFlags(args, cmdCtx)
	if err != nil {
		return err
	}
	client, err := cmdCtx.requireRedis()
	if err != nil {
		return err
	}
	store := redisadapter.NewRevocationStoreWithPrefix(client, cmdCtx.Config.Redis.RevocationPrefix)
	if err := store.Revoke(cmdCtx.Ctx, opts.TokenID, time.Now().Add(opts.TTL)); err != nil {
		return err
	}
	cmdCtx.Logger.InfoContext(cmdCtx.Ctx, "session token revoked", "token_id", opts.TokenID, "ttl", opts.TTL)
	return writef(cmdCtx.Out, "Revoked %s for %s.\n", opts.TokenID, opts.TTL)
}

type revokedEntry struct {
	TokenID string
	TTL     time.Duration
}

func runListRevoked(cmdCtx *commandContext, _ []string) error {
	client, err := cmdCtx.requireRedis()
	if err != nil {
		return err
	}
	prefix := cmdCtx.Config.Redis.RevocationPrefix

	var entries []revokedEntry
	iter := client.Scan(cmdCtx.Ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(cmdCtx.Ctx) {
		key := iter.Val()
		ttl, ttlErr := client.TTL(cmdCtx.Ctx, key).Result()
		if ttlErr != nil {
			return fmt.Errorf("ttl %s: %w", key, ttlErr)
		}
		entries = append(entries, revokedEntry{TokenID: strings.TrimPrefix(key, prefix), TTL: ttl})
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan revoked tokens: %w", err)
	}

	if len(entries) == 0 {
		return writeln(cmdCtx.Out, "No revoked tokens.")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TokenID < entries[j].TokenID })

	tw := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "TOKEN ID\tTTL"); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	for _, e := range entries {
		if err := writef(tw, "%s\t%s\n", e.TokenID, formatRedisTTL(e.TTL)); err != nil {
			return fmt.Errorf("write revoked row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush revoked table: %w", err)
	}
	return nil
}

func formatRedisTTL(ttl time.Duration) string {
	switch {
	case ttl == -1:
		return "no expiry"
	case ttl == -2:
		return "missing"
	case ttl < 0:
		return ttl.String()
	default:
		return ttl.Round(time.Second).String()
	}
}
