package outbound

import "net/http"

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieTransport builds the cookies that carry credentials to the browser.
type CookieTransport interface {
	BuildSessionCookie(name, value string, maxAgeSeconds int) *http.Cookie
	BuildClearedCookie(name string) *http.Cookie
}
