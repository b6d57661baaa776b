package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"vidgrab/internal/credentials"
	"vidgrab/internal/store"
)

const (
	sessionCookie     = "vidgrab_session"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	notConfigured     = "Server not configured for Google OAuth. Set GOOGLE_OAUTH_CLIENT_SECRETS to a client_secret.json path."
)

// OAuthScopes are requested at sign-in.
var OAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// LoadOAuthConfig reads a Google client_secret.json ("web" or "installed").
// An empty path means sign-in is disabled and yields nil.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oauth client secrets: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, OAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth client secrets %s: %w", path, err)
	}
	return cfg, nil
}

type session struct {
	State  string
	UserID string
	Email  string
	Name   string
}

// sessions is an in-memory store keyed by a random cookie value.
type sessions struct {
	mu   sync.Mutex
	byID map[string]*session
}

func newSessions() *sessions {
	return &sessions{byID: make(map[string]*session)}
}

// get returns a copy of the caller's session; the zero session when none.
func (ss *sessions) get(c *gin.Context) session {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return session{}
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.byID[id]; ok {
		return *s
	}
	return session{}
}

// update mutates the caller's session, creating it and its cookie if needed.
func (ss *sessions) update(c *gin.Context, fn func(*session)) {
	id, err := c.Cookie(sessionCookie)
	ss.mu.Lock()
	s, ok := ss.byID[id]
	if err != nil || !ok {
		id = uuid.NewString()
		s = &session{}
		ss.byID[id] = s
	}
	fn(s)
	ss.mu.Unlock()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int((30 * 24 * time.Hour).Seconds()), "/", "", c.Request.TLS != nil, true)
}

func (ss *sessions) clear(c *gin.Context) session {
	var old session
	if id, err := c.Cookie(sessionCookie); err == nil {
		ss.mu.Lock()
		if s, ok := ss.byID[id]; ok {
			old = *s
		}
		delete(ss.byID, id)
		ss.mu.Unlock()
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	return old
}

// oauthConfig returns the OAuth config with a redirect URL for this request.
func (s *Server) oauthConfig(c *gin.Context) *oauth2.Config {
	cfg := *s.oauth
	base := s.publicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	cfg.RedirectURL = base + "/auth/callback"
	return &cfg
}

func (s *Server) login(c *gin.Context) {
	if s.oauth == nil {
		c.String(http.StatusInternalServerError, notConfigured)
		return
	}
	state := uuid.NewString()
	s.sessions.update(c, func(sess *session) { sess.State = state })
	u := s.oauthConfig(c).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	c.Redirect(http.StatusFound, u)
}

type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) callback(c *gin.Context) {
	if s.oauth == nil {
		c.String(http.StatusInternalServerError, "Server not configured for Google OAuth.")
		return
	}
	sess := s.sessions.get(c)
	if sess.State == "" || c.Query("state") != sess.State {
		c.String(http.StatusBadRequest, "Invalid OAuth state.")
		return
	}
	if e := c.Query("error"); e != "" {
		c.String(http.StatusUnauthorized, "Sign-in failed: "+e)
		return
	}

	ctx := c.Request.Context()
	cfg := s.oauthConfig(c)
	tok, err := cfg.Exchange(ctx, c.Query("code"))
	if err != nil {
		s.log.WithError(err).Warn("oauth code exchange failed")
		c.String(http.StatusBadGateway, "Sign-in failed.")
		return
	}
	ui, err := s.fetchUserInfo(ctx, cfg, tok)
	if err != nil {
		s.log.WithError(err).Warn("oauth userinfo failed")
		c.String(http.StatusBadGateway, "Sign-in failed.")
		return
	}
	err = s.store.SaveAccount(ctx, store.Account{UserID: ui.Sub, Email: ui.Email, Name: ui.Name, Token: tok})
	if err != nil {
		s.log.WithError(err).Error("save account")
		c.String(http.StatusInternalServerError, "Sign-in failed.")
		return
	}
	s.sessions.update(c, func(sess *session) {
		*sess = session{UserID: ui.Sub, Email: ui.Email, Name: ui.Name}
	})
	s.log.WithField("email", ui.Email).Info("signed in")
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) fetchUserInfo(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (userInfo, error) {
	var ui userInfo
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return ui, err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return ui, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ui, fmt.Errorf("userinfo: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return ui, fmt.Errorf("userinfo: %w", err)
	}
	if ui.Sub == "" {
		return ui, errors.New("userinfo: missing subject")
	}
	return ui, nil
}

func (s *Server) logout(c *gin.Context) {
	old := s.sessions.clear(c)
	if old.UserID != "" {
		if err := s.store.DeleteAccount(c.Request.Context(), old.UserID); err != nil {
			s.log.WithError(err).Warn("delete account")
		}
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) me(c *gin.Context) {
	sess := s.sessions.get(c)
	c.JSON(http.StatusOK, gin.H{
		"signed_in":       sess.UserID != "",
		"email":           sess.Email,
		"name":            sess.Name,
		"oauth_available": s.oauth != nil,
		"api_key_needed":  len(s.apiKeys) > 0,
	})
}

// credentialsFor prefers the session's Google token, then the server default.
func (s *Server) credentialsFor(ctx context.Context, sess session) credentials.Provider {
	if sess.UserID == "" || s.oauth == nil {
		return s.creds
	}
	// Jobs resolve the token after the request is gone; refreshes must not be tied to it.
	src, err := s.store.TokenSource(context.WithoutCancel(ctx), s.oauth, sess.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNoAccount) {
			s.log.WithError(err).Warn("load account token")
		}
		return s.creds
	}
	return credentials.Chain{credentials.OAuth{Source: src}, s.creds}
}
