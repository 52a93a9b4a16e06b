package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Teacher endpoints are guarded by a single shared access code, supplied as
// X-Access-Code or an Authorization bearer token. The code is compared by
// sha256 digest in constant time; deployments that prefer not to keep the
// plain code in config can set a bcrypt hash instead.
var (
	accessCodeDigest []byte
	accessCodeBcrypt string
)

// SetAccessCode installs the shared teacher access code. An empty code
// disables the auth check entirely.
func SetAccessCode(code string) {
	if code == "" {
		accessCodeDigest = nil
		return
	}
	sum := sha256.Sum256([]byte(code))
	accessCodeDigest = sum[:]
}

// SetAccessCodeHash installs a bcrypt hash of the access code. Takes
// precedence over SetAccessCode when non-empty.
func SetAccessCodeHash(hash string) { accessCodeBcrypt = hash }

func authEnabled() bool { return accessCodeBcrypt != "" || accessCodeDigest != nil }

func codeFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Access-Code"); v != "" {
		return v
	}
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return ""
}

func codeMatches(code string) bool {
	if code == "" {
		return false
	}
	if accessCodeBcrypt != "" {
		return bcrypt.CompareHashAndPassword([]byte(accessCodeBcrypt), []byte(code)) == nil
	}
	sum := sha256.Sum256([]byte(code))
	return subtle.ConstantTimeCompare(sum[:], accessCodeDigest) == 1
}

// requireAccessCode rejects teacher requests without a valid access code.
// Share-token routes never pass through this middleware.
func requireAccessCode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authEnabled() {
			next.ServeHTTP(w, r)
			return
		}
		if !codeMatches(codeFromRequest(r)) {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing access code")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// generateLimiter throttles generation kicks so a stuck UI retry loop cannot
// saturate the admission queue. Nil disables limiting.
var generateLimiter *rate.Limiter

// SetGenerateRateLimit configures the generation rate limit in requests per
// second with the given burst. perSecond <= 0 disables limiting.
func SetGenerateRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		generateLimiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	generateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func rateLimitGenerate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if generateLimiter != nil && !generateLimiter.Allow() {
			IncrementBackpressure("rate_limit")
			writeJSONError(w, http.StatusTooManyRequests, "generation rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
