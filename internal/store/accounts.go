package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoAccount is returned when no account matches.
var ErrNoAccount = errors.New("account not found")

// Account is a signed-in user and their OAuth token.
type Account struct {
	UserID    string
	Email     string
	Name      string
	Token     *oauth2.Token
	UpdatedAt time.Time
}

// SaveAccount inserts or replaces an account.
func (s *Store) SaveAccount(ctx context.Context, a Account) error {
	if a.UserID == "" {
		return errors.New("account user id is required")
	}
	var tok []byte
	if a.Token != nil {
		var err error
		if tok, err = json.Marshal(a.Token); err != nil {
			return fmt.Errorf("encoding token: %w", err)
		}
	}
	var email any
	if a.Email != "" {
		email = a.Email
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (user_id, email, name, token, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.UserID, email, a.Name, string(tok), a.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("saving account: %w", err)
	}
	return nil
}

// Account loads the account with userID.
func (s *Store) Account(ctx context.Context, userID string) (Account, error) {
	var (
		a     Account
		email sql.NullString
		tok   string
		ts    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email, name, token, updated_at FROM accounts WHERE user_id = ?`, userID).
		Scan(&a.UserID, &email, &a.Name, &tok, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNoAccount
	}
	if err != nil {
		return Account{}, fmt.Errorf("loading account: %w", err)
	}
	a.Email = email.String
	a.UpdatedAt = time.Unix(ts, 0)
	if tok != "" {
		var t oauth2.Token
		if err := json.Unmarshal([]byte(tok), &t); err != nil {
			return Account{}, fmt.Errorf("decoding token: %w", err)
		}
		a.Token = &t
	}
	return a, nil
}

// DeleteAccount removes the account with userID. Missing accounts are not an error.
func (s *Store) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// TokenSource returns a TokenSource that persists refreshed tokens for userID.
func (s *Store) TokenSource(ctx context.Context, cfg *oauth2.Config, userID string) (oauth2.TokenSource, error) {
	a, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a.Token == nil {
		return nil, fmt.Errorf("account %s has no token", userID)
	}
	return &persistingSource{
		base:    cfg.TokenSource(ctx, a.Token),
		store:   s,
		account: a,
	}, nil
}

type persistingSource struct {
	base  oauth2.TokenSource
	store *Store

	mu      sync.Mutex
	account Account
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	t, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account.Token == nil || t.AccessToken != p.account.Token.AccessToken {
		p.account.Token = t
		p.account.UpdatedAt = time.Now()
		if err := p.store.SaveAccount(context.Background(), p.account); err != nil {
			return nil, err
		}
	}
	return t, nil
}
