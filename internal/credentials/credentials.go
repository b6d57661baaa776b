// Package credentials resolves how yt-dlp should authenticate a request.
//
// A Provider yields a Credential: nothing, a Netscape cookie file, a browser
// whose cookie store yt-dlp reads itself, or an OAuth bearer token sent as a
// request header. Providers never touch the downloader; the resolved
// Credential is merged into the download config by the caller.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type Kind string

const (
	KindNone       Kind = "none"
	KindCookieFile Kind = "cookie-file"
	KindBrowser    Kind = "browser"
	KindOAuth      Kind = "oauth"
)

// Credential is the resolved form handed to the downloader.
type Credential struct {
	Kind       Kind
	CookieFile string
	Browser    string // yt-dlp browser spec, e.g. "chrome" or "chrome:Default"
	Headers    map[string]string
}

// IsZero reports whether c carries no credential at all.
func (c Credential) IsZero() bool {
	return c.Kind == "" || c.Kind == KindNone
}

// Provider resolves a Credential. Implementations must be safe for concurrent use.
type Provider interface {
	Resolve(ctx context.Context) (Credential, error)
}

// ErrNoCredential is returned by providers that have nothing to offer.
var ErrNoCredential = errors.New("no credential available")

// None resolves to the empty credential.
type None struct{}

func (None) Resolve(context.Context) (Credential, error) {
	return Credential{Kind: KindNone}, nil
}

// CookieFile points yt-dlp at a Netscape-format cookie file.
type CookieFile struct {
	Path string
}

func (c CookieFile) Resolve(context.Context) (Credential, error) {
	p := strings.TrimSpace(c.Path)
	if p == "" {
		return Credential{}, ErrNoCredential
	}
	st, err := os.Stat(p)
	if err != nil {
		return Credential{}, fmt.Errorf("cookie file: %w", err)
	}
	if st.IsDir() {
		return Credential{}, fmt.Errorf("cookie file %q is a directory", p)
	}
	return Credential{Kind: KindCookieFile, CookieFile: p}, nil
}

// BrowserAuto asks Browser to pick the first installed browser.
const BrowserAuto = "auto"

// Browser delegates cookie extraction to yt-dlp's --cookies-from-browser.
type Browser struct {
	Name    string // browser name or BrowserAuto
	Profile string // optional profile, e.g. "Default"

	// Locations overrides profile lookup for Name == BrowserAuto.
	Locations *Locations
}

func (b Browser) Resolve(context.Context) (Credential, error) {
	name := strings.ToLower(strings.TrimSpace(b.Name))
	if name == "" {
		return Credential{}, ErrNoCredential
	}
	if name == BrowserAuto {
		loc := DefaultLocations()
		if b.Locations != nil {
			loc = *b.Locations
		}
		found := DetectBrowsers(loc)
		if len(found) == 0 {
			return Credential{}, fmt.Errorf("no supported browser profile found: %w", ErrNoCredential)
		}
		name = found[0]
	}
	spec := name
	if b.Profile != "" {
		spec += ":" + b.Profile
	}
	return Credential{Kind: KindBrowser, Browser: spec}, nil
}

// OAuth sends the current access token of Source as an Authorization header.
type OAuth struct {
	Source oauth2.TokenSource
}

func (o OAuth) Resolve(context.Context) (Credential, error) {
	if o.Source == nil {
		return Credential{}, ErrNoCredential
	}
	tok, err := o.Source.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("oauth token: %w", err)
	}
	if !tok.Valid() {
		return Credential{}, errors.New("oauth token is expired or empty")
	}
	return Credential{
		Kind:    KindOAuth,
		Headers: map[string]string{"Authorization": tok.Type() + " " + tok.AccessToken},
	}, nil
}

// Chain returns the first credential a provider resolves successfully.
// Providers reporting ErrNoCredential are skipped silently; other failures
// are collected and returned only when nothing resolves.
type Chain []Provider

func (c Chain) Resolve(ctx context.Context) (Credential, error) {
	var errs []error
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Credential{}, err
		}
		cred, err := p.Resolve(ctx)
		if err == nil && !cred.IsZero() {
			return cred, nil
		}
		if err != nil && !errors.Is(err, ErrNoCredential) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Credential{}, errors.Join(errs...)
	}
	return Credential{Kind: KindNone}, nil
}

// Fallback wraps a Provider so a failure degrades to no credential.
// The failure is logged here and nowhere else.
type Fallback struct {
	Provider Provider
	Log      log.FieldLogger
}

func (f Fallback) Resolve(ctx context.Context) (Credential, error) {
	if f.Provider == nil {
		return Credential{Kind: KindNone}, nil
	}
	cred, err := f.Provider.Resolve(ctx)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, ErrNoCredential) {
		l := f.Log
		if l == nil {
			l = log.StandardLogger()
		}
		l.WithError(err).Warn("credential unavailable, continuing without authentication")
	}
	return Credential{Kind: KindNone}, nil
}
