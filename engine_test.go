package goAccount

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Recovery.SweepInterval = 0
	return cfg
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// codeBox captures recovery codes in place of an out-of-band channel.
type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
}

func (b *codeBox) NotifyRecoveryCode(_ context.Context, handle, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.codes == nil {
		b.codes = make(map[string]string)
	}
	b.codes[handle] = code
	b.sent++
	return nil
}

func (b *codeBox) last(t *testing.T, handle string) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	code, ok := b.codes[handle]
	if !ok {
		t.Fatalf("no recovery code sent for %q", handle)
	}
	return code
}

type testEngine struct {
	*Engine
	clock *testClock
	codes *codeBox
}

func newTestEngine(t *testing.T, cfg Config, configure ...func(*Builder)) *testEngine {
	t.Helper()

	clock := newTestClock()
	codes := &codeBox{}
	b := New().
		WithConfig(cfg).
		WithClock(clock.Now).
		WithRecoveryNotifier(codes)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, clock: clock, codes: codes}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func fromAddr(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}

// seed creates the bootstrap admin "root" and, as root, the given accounts
// with their passwords.
func seed(t *testing.T, e *testEngine, passwords map[string]string) {
	t.Helper()

	ctx := context.Background()
	if _, err := e.CreateAccount(ctx, CreateAccountRequest{Handle: "root", Name: "Root", Password: passwords["root"]}); err != nil {
		t.Fatalf("bootstrap create failed: %v", err)
	}
	asRoot := WithActor(ctx, "root")
	for handle, pw := range passwords {
		if handle == "root" {
			continue
		}
		if _, err := e.CreateAccount(asRoot, CreateAccountRequest{Handle: handle, Password: pw}); err != nil {
			t.Fatalf("create %s failed: %v", handle, err)
		}
	}
}

func TestBuilderCannotBeReused(t *testing.T) {
	b := New().WithConfig(testConfig())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Login.MaxAttempts = 0
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected Build to reject invalid config")
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a", ""); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if e.AuditDropped() != 0 {
		t.Fatal("nil engine should report zero dropped events")
	}
	e.Close()
}

func TestCloseIsIdempotentWithSweeper(t *testing.T) {
	cfg := testConfig()
	cfg.Recovery.SweepInterval = time.Millisecond
	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	engine.Close()
	engine.Close()
}
