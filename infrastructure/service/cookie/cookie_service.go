package cookie

import (
	"net/http"
	"time"

	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/infrastructure/config"
)

type CookieService struct {
	domain   string
	sameSite http.SameSite
	secure   bool
	now      func() time.Time
}

var _ outbound.CookieTransport = (*CookieService)(nil)

func NewCookieService(cfg *config.Config) *CookieService {
	return &CookieService{
		domain:   cfg.CookieDomain,
		sameSite: ParseSameSite(cfg.CookieSameSite),
		secure:   cfg.CookieSecure,
		now:      time.Now,
	}
}

// ParseSameSite maps the configured name to its http constant, defaulting to Lax.
func ParseSameSite(name string) http.SameSite {
	switch name {
	case "Strict":
		return http.SameSiteStrictMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (s *CookieService) BuildSessionCookie(name, value string, maxAgeSeconds int) *http.Cookie {
	c := s.base(name, value)
	c.MaxAge = maxAgeSeconds
	c.Expires = s.now().Add(time.Duration(maxAgeSeconds) * time.Second).UTC()
	return c
}

// BuildClearedCookie serializes with Max-Age=0 and an epoch Expires so every
// browser drops the cookie.
func (s *CookieService) BuildClearedCookie(name string) *http.Cookie {
	c := s.base(name, "")
	// net/http writes Max-Age=0 for negative values and omits it for 0
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	return c
}

// BuildStateCookie carries the OAuth state across the provider redirect. It is
// scoped to the callback and always Lax so the top-level return navigation
// still sends it.
func (s *CookieService) BuildStateCookie(name, value, path string, maxAge time.Duration) *http.Cookie {
	c := s.base(name, value)
	c.Path = path
	c.SameSite = http.SameSiteLaxMode
	c.MaxAge = int(maxAge / time.Second)
	c.Expires = s.now().Add(maxAge).UTC()
	return c
}

func (s *CookieService) ClearStateCookie(name, path string) *http.Cookie {
	c := s.BuildClearedCookie(name)
	c.Path = path
	c.SameSite = http.SameSiteLaxMode
	return c
}

func (s *CookieService) base(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite,
	}
}
