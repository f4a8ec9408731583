package uniqueness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	backend "github.com/redis/go-redis/v9"
)

func TestHTTPChecker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("field") != "email" {
			http.Error(w, "unknown field", http.StatusBadRequest)
			return
		}
		if q.Get("token") != "abc" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if q.Get("value") == "taken@b.com" {
			_, _ = w.Write([]byte(`{"available": false}`))
			return
		}
		_, _ = w.Write([]byte(`{"available": true}`))
	}))
	defer server.Close()

	checker, err := NewHTTP(server.URL + "/check?token=abc")
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	ctx := context.Background()
	if free, err := checker.Available(ctx, "email", "a@b.com"); err != nil || !free {
		t.Fatalf("expected a@b.com to be free, got %v %v", free, err)
	}
	if free, err := checker.Available(ctx, "email", "taken@b.com"); err != nil || free {
		t.Fatalf("expected taken@b.com to be taken, got %v %v", free, err)
	}
	if _, err := checker.Available(ctx, "login", "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on error status, got %v", err)
	}
	if _, err := checker.Available(ctx, "email", " "); !errors.Is(err, ErrEmptyValue) {
		t.Fatalf("expected ErrEmptyValue, got %v", err)
	}
}

func TestHTTPChecker_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	checker, _ := NewHTTP(server.URL)
	if _, err := checker.Available(context.Background(), "email", "a@b.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewHTTP_RejectsRelativeEndpoint(t *testing.T) {
	if _, err := NewHTTP("/check"); err == nil {
		t.Fatal("expected error for relative endpoint")
	}
}

func TestRedisChecker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	checker := NewFromClient(client, WithPrefix("test:"))
	defer checker.Close()

	ctx := context.Background()
	if err := checker.Reserve(ctx, "username", "Admin", " root ", ""); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	members, err := mr.Members("test:username")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if diff := cmp.Diff([]string{"admin", "root"}, members); diff != "" {
		t.Fatalf("stored members mismatch (-want +got):\n%s", diff)
	}

	if free, err := checker.Available(ctx, "username", "ADMIN"); err != nil || free {
		t.Fatalf("expected admin to be taken, got %v %v", free, err)
	}
	if free, err := checker.Available(ctx, "username", "ann"); err != nil || !free {
		t.Fatalf("expected ann to be free, got %v %v", free, err)
	}

	if err := checker.Release(ctx, "username", "admin"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if free, _ := checker.Available(ctx, "username", "admin"); !free {
		t.Fatal("expected admin to be free after release")
	}
}

func TestRedisChecker_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1})
	checker := NewFromClient(client)
	defer checker.Close()
	mr.Close()

	if _, err := checker.Available(context.Background(), "username", "ann"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestShared_CollapsesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	backendChecker := CheckerFunc(func(ctx context.Context, field, value string) (bool, error) {
		calls.Add(1)
		<-release
		return value != "taken", nil
	})
	shared := NewShared(backendChecker)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			free, err := shared.Available(context.Background(), "email", "a@b.com")
			if err != nil {
				t.Errorf("Available: %v", err)
			}
			results[i] = free
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 backend call, got %d", got)
	}
	for i, free := range results {
		if !free {
			t.Fatalf("caller %d got taken", i)
		}
	}
}

func TestShared_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	shared := NewShared(CheckerFunc(func(ctx context.Context, field, value string) (bool, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return true, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := shared.Available(ctx, "email", "a@b.com"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestShared_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	shared := NewShared(CheckerFunc(func(ctx context.Context, field, value string) (bool, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}), WithSharedTimeout(time.Second))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := shared.Available(firstCtx, "email", "a@b.com")
		firstErr <- err
	}()
	<-started

	secondDone := make(chan struct{})
	var (
		free      bool
		secondErr error
	)
	go func() {
		defer close(secondDone)
		free, secondErr = shared.Available(context.Background(), "email", "a@b.com")
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected first caller cancelled, got %v", err)
	}
	close(release)
	<-secondDone
	if secondErr != nil || !free {
		t.Fatalf("expected second caller to get the shared result, got free=%v err=%v", free, secondErr)
	}
}

func TestCheckAll(t *testing.T) {
	checker := CheckerFunc(func(ctx context.Context, field, value string) (bool, error) {
		return value != "taken", nil
	})
	taken, err := CheckAll(context.Background(), checker, map[string]string{
		"email":    "taken",
		"username": "taken",
		"nick":     "free",
		"blank":    "",
	})
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if diff := cmp.Diff([]string{"email", "username"}, taken); diff != "" {
		t.Fatalf("taken mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckAll_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	checker := CheckerFunc(func(ctx context.Context, field, value string) (bool, error) {
		return false, boom
	})
	_, err := CheckAll(context.Background(), checker, map[string]string{"email": "a@b.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
