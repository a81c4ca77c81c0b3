// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout = 2 * time.Second
	// DB 0 holds the reservations, so test databases are drawn from 1..15.
	firstTestDB = 1
	lastTestDB  = 15
	reserveTTL  = 30 * time.Minute
)

// redisCandidates lists where a test Redis may be listening, most specific first.
func redisCandidates() []string {
	var addrs []string
	for _, key := range []string{"TEST_REDIS_ADDR", "REDIS_ADDR"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			addrs = append(addrs, v)
		}
	}
	// "redis" is the compose service name in CI.
	for _, addr := range []string{"localhost:6379", "redis:6379"} {
		if !slices.Contains(addrs, addr) {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// redisMandatory reports whether a missing Redis fails the test instead of skipping it.
func redisMandatory() bool {
	return truthy(os.Getenv("TEST_REQUIRE_REDIS")) || truthy(os.Getenv("TEST_REQUIRE_INFRA"))
}

func ping(addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// reachableRedis returns the first candidate address that answers PING.
func reachableRedis(t testing.TB) (string, bool) {
	t.Helper()
	for _, addr := range redisCandidates() {
		client, err := ping(addr, 0)
		if err != nil {
			t.Logf("redis not reachable at %s: %v", addr, err)
			continue
		}
		_ = client.Close()
		return addr, true
	}
	return "", false
}

// reserveDB picks a database index no other test package is using. Packages
// run in parallel processes, so the claim lives in Redis itself.
func reserveDB(t testing.TB, addr string) int {
	t.Helper()
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil && db >= 0 {
			return db
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta, err := ping(addr, 0)
	if err != nil {
		return firstTestDB
	}
	defer func() { _ = meta.Close() }()

	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for db := firstTestDB; db <= lastTestDB; db++ {
		key := fmt.Sprintf("kb-admin:test-db:%d", db)
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		claimed, claimErr := meta.SetNX(ctx, key, owner, reserveTTL).Result()
		cancel()
		if claimErr != nil || !claimed {
			continue
		}
		t.Cleanup(func() { releaseDB(t, addr, key) })
		return db
	}
	t.Logf("all redis test databases reserved; sharing DB %d", firstTestDB)
	return firstTestDB
}

func releaseDB(t testing.TB, addr, key string) {
	meta, err := ping(addr, 0)
	if err != nil {
		t.Logf("release %s: %v", key, err)
		return
	}
	defer func() { _ = meta.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := meta.Del(ctx, key).Err(); err != nil {
		t.Logf("release %s: %v", key, err)
	}
}

// SetupTestRedis returns a client on an empty, reserved database. The test is
// skipped when no Redis is reachable unless TEST_REQUIRE_REDIS is set.
// Callers close the client.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	addr, ok := reachableRedis(t)
	if !ok {
		if redisMandatory() {
			t.Fatal("redis required but not reachable")
		}
		t.Skip("redis not reachable")
	}

	db := reserveDB(t, addr)
	client, err := ping(addr, db)
	if err != nil {
		if redisMandatory() {
			t.Fatalf("redis db %d at %s: %v", db, addr, err)
		}
		t.Skipf("redis db %d at %s: %v", db, addr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis db %d: %v", db, err)
	}
	return client
}

// BoolPtr returns a pointer to b, for optional profile claims.
func BoolPtr(b bool) *bool { return &b }

// TestTime is the fixed instant clock-driven tests start from.
func TestTime() time.Time {
	return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
}
