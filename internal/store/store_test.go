package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func openTest(t *testing.T, limits Limits) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), limits)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCheckCooldownAndWindow(t *testing.T) {
	s := openTest(t, Limits{})
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	d, err := s.Check(ctx, "1.2.3.4", t0)
	if err != nil || !d.Allowed {
		t.Fatalf("first request: %+v, %v", d, err)
	}

	d, _ = s.Check(ctx, "1.2.3.4", t0.Add(10*time.Second))
	if d.Allowed {
		t.Fatal("request within cooldown allowed")
	}
	if d.Reason != "Too many requests. Please wait 20s before starting another download." {
		t.Errorf("Reason = %q", d.Reason)
	}
	if d.RetryAfter != 20*time.Second {
		t.Errorf("RetryAfter = %v", d.RetryAfter)
	}

	// Other clients are independent.
	if d, _ := s.Check(ctx, "5.6.7.8", t0.Add(10*time.Second)); !d.Allowed {
		t.Error("other ip blocked")
	}

	if d, _ := s.Check(ctx, "1.2.3.4", t0.Add(40*time.Second)); !d.Allowed {
		t.Error("second request after cooldown blocked")
	}
	if d, _ := s.Check(ctx, "1.2.3.4", t0.Add(80*time.Second)); !d.Allowed {
		t.Error("third request blocked")
	}

	d, _ = s.Check(ctx, "1.2.3.4", t0.Add(120*time.Second))
	if d.Allowed || d.Reason != "Rate limit exceeded. Try again later." {
		t.Errorf("fourth request: %+v", d)
	}
	if d.RetryAfter != 480*time.Second {
		t.Errorf("RetryAfter = %v, want 8m", d.RetryAfter)
	}

	// Once the first request leaves the window a new one is allowed.
	if d, _ := s.Check(ctx, "1.2.3.4", t0.Add(601*time.Second)); !d.Allowed {
		t.Errorf("request after window: %+v", d)
	}
}

func TestCheckRejectedAttemptsAreNotRecorded(t *testing.T) {
	s := openTest(t, Limits{Max: 1, Window: time.Minute, Cooldown: 0})
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	if d, _ := s.Check(ctx, "ip", t0); !d.Allowed {
		t.Fatal("first blocked")
	}
	for i := 1; i <= 3; i++ {
		if d, _ := s.Check(ctx, "ip", t0.Add(time.Duration(i)*time.Second)); d.Allowed {
			t.Fatalf("attempt %d allowed", i)
		}
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM request_log`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestCheckPurgesOldRows(t *testing.T) {
	s := openTest(t, Limits{Max: 5, Window: time.Minute, Cooldown: 0})
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		if _, err := s.Check(ctx, "old", t0.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}
	// window (1m) + retention (1h) later, the old rows go.
	if _, err := s.Check(ctx, "new", t0.Add(time.Hour+2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM request_log WHERE ip = 'old'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("old rows = %d, want 0", n)
	}
}

func TestCheckConcurrent(t *testing.T) {
	s := openTest(t, Limits{Max: 3, Window: time.Minute, Cooldown: 0})
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Check(ctx, "ip", now)
			if err != nil {
				t.Error(err)
				return
			}
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 3 {
		t.Errorf("allowed = %d, want 3", allowed)
	}
}

func TestAccounts(t *testing.T) {
	s := openTest(t, Limits{})
	ctx := context.Background()

	if _, err := s.Account(ctx, "nobody"); !errors.Is(err, ErrNoAccount) {
		t.Errorf("err = %v, want ErrNoAccount", err)
	}

	tok := &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	acct := Account{UserID: "sub-1", Email: "u@example.com", Name: "User", Token: tok, UpdatedAt: time.Unix(1_700_000_000, 0)}
	if err := s.SaveAccount(ctx, acct); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	got, err := s.Account(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if got.Email != "u@example.com" || got.Name != "User" || got.Token == nil || got.Token.AccessToken != "a1" || got.Token.RefreshToken != "r1" {
		t.Errorf("Account() = %+v", got)
	}
	if !got.Token.Expiry.Equal(tok.Expiry) {
		t.Errorf("expiry = %v, want %v", got.Token.Expiry, tok.Expiry)
	}

	acct.Name = "Renamed"
	if err := s.SaveAccount(ctx, acct); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, _ := s.Account(ctx, "sub-1"); got.Name != "Renamed" {
		t.Errorf("Name = %q after replace", got.Name)
	}

	src, err := s.TokenSource(ctx, &oauth2.Config{}, "sub-1")
	if err != nil {
		t.Fatalf("TokenSource: %v", err)
	}
	if tk, err := src.Token(); err != nil || tk.AccessToken != "a1" {
		t.Errorf("Token() = %v, %v", tk, err)
	}

	if err := s.DeleteAccount(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Account(ctx, "sub-1"); !errors.Is(err, ErrNoAccount) {
		t.Errorf("after delete err = %v", err)
	}
	if err := s.SaveAccount(ctx, Account{}); err == nil || !strings.Contains(err.Error(), "user id") {
		t.Errorf("empty account err = %v", err)
	}
}
