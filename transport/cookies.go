package transport

import (
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"
)

// NewMemoryCookieStore returns an empty in-memory cookie store that honors
// public suffix boundaries.
func NewMemoryCookieStore() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}
