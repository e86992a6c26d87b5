package csrf

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var (
	errNoOrigin  = errors.New("no origin/referer")
	errBadOrigin = errors.New("bad origin")
	errBadRef    = errors.New("bad referer")
)

// validateOriginOrReferer checks whether the request comes from the allowed
// host. When allowed is empty, it falls back to r.Host. It prefers the Origin
// header; if empty, it falls back to Referer.
func validateOriginOrReferer(r *http.Request, allowed string) error {
	host := allowed
	if host == "" {
		host = r.Host
	}

	origin := r.Header.Get("Origin")
	ref := r.Header.Get("Referer")

	switch {
	case origin == "" && ref == "":
		return errNoOrigin
	case origin != "":
		if !sameHost(origin, host) {
			return errBadOrigin
		}
	case !sameHost(ref, host):
		return errBadRef
	}
	return nil
}

// sameHost compares only the host part (port included) of originOrRef.
func sameHost(originOrRef, allowedHost string) bool {
	u, err := url.Parse(originOrRef)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, allowedHost)
}
