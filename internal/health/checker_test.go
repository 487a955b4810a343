package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.pingErr
}

func TestCheck_NoDependencies(t *testing.T) {
	c := NewChecker(0)
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !c.Ready() {
		t.Error("checker with no dependencies should be ready")
	}
}

func TestCheck_AllHealthy(t *testing.T) {
	c := NewChecker(time.Second)
	c.Add("postgres", &mockPinger{})
	c.Add("redis", PingFunc(func(context.Context) error { return nil }))
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheck_FailureNamesDependency(t *testing.T) {
	c := NewChecker(time.Second)
	c.Add("postgres", &mockPinger{})
	c.Add("redis", &mockPinger{pingErr: errors.New("connection refused")})

	err := c.Check(context.Background())
	if err == nil {
		t.Fatal("Check should fail when a dependency is down")
	}
	if !strings.Contains(err.Error(), "redis: connection refused") {
		t.Errorf("error = %q, want it to name redis", err)
	}
	if c.Ready() {
		t.Error("Ready should be false")
	}
}

func TestCheck_Timeout(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Add("slow", PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	err := c.Check(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestAdd_NilIgnored(t *testing.T) {
	c := NewChecker(0)
	c.Add("nothing", nil)
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
}
