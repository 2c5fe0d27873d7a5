package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/kailas-cloud/nosqlite/internal/transport/wire"
)

// openPaths are served without credentials so probes and scrapers work.
var openPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

var (
	errNoCredentials = errors.New("missing authorization header")
	errWrongScheme   = errors.New("authorization header must use Bearer scheme")
	errUnknownKey    = errors.New("invalid api key")
)

// keyring holds digests of the accepted API keys. Comparing fixed-size
// digests keeps the check constant-time regardless of key length.
type keyring [][sha256.Size]byte

func newKeyring(apiKeys []string) keyring {
	var k keyring
	for _, key := range apiKeys {
		if key != "" {
			k = append(k, sha256.Sum256([]byte(key)))
		}
	}
	return k
}

func (k keyring) allows(token string) bool {
	sum := sha256.Sum256([]byte(token))
	ok := 0
	for i := range k {
		ok |= subtle.ConstantTimeCompare(sum[:], k[i][:])
	}
	return ok == 1
}

// bearerToken extracts the token from an Authorization header value.
// The scheme name is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errWrongScheme
	}
	return strings.TrimSpace(token), nil
}

// BearerAuthMiddleware rejects requests whose Bearer token is not one of
// apiKeys. An empty key list disables authentication.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := newKeyring(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := openPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, err := bearerToken(r.Header.Get("Authorization"))
			if err == nil && !keys.allows(token) {
				err = errUnknownKey
			}
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="nosqlite"`)
				writeError(w, http.StatusUnauthorized, wire.CodeUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
