package transport

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pitabwire/loom/internal/config"
	"github.com/pitabwire/loom/model"
)

// jwk is a single JSON Web Key as published by the identity provider. Only
// the members needed to rebuild RSA and EC public keys are decoded.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	Crv string `json:"crv"`
	N   string `json:"n"`
	E   string `json:"e"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// publicKey rebuilds the crypto.PublicKey described by the JWK.
func (k jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		n, err := decodeKeyMember(k.N, "n")
		if err != nil {
			return nil, err
		}
		e, err := decodeKeyMember(k.E, "e")
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := decodeKeyMember(k.X, "x")
		if err != nil {
			return nil, err
		}
		y, err := decodeKeyMember(k.Y, "y")
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
}

func decodeKeyMember(s, member string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing %s member", member)
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", member, err)
	}
	return new(big.Int).SetBytes(b), nil
}

// JWKSClient fetches the identity provider's key set and caches the parsed
// signing keys. When a refresh fails, previously cached keys keep serving
// lookups so token verification survives short provider outages.
type JWKSClient struct {
	mu         sync.RWMutex
	url        string
	keys       map[string]crypto.PublicKey
	fetchedAt  time.Time
	ttl        time.Duration
	minRefresh time.Duration
	httpClient *http.Client
}

// NewJWKSClient creates a key-set client for the identity provider named in
// the config.
func NewJWKSClient(cfg config.IdentityConfig) *JWKSClient {
	ttl := cfg.JWKSCacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWKSClient{
		url:        cfg.JWKSURL,
		keys:       make(map[string]crypto.PublicKey),
		ttl:        ttl,
		minRefresh: 5 * time.Minute,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the signing key with the given key ID, refreshing the
// cached key set when it has expired or does not contain the ID.
func (c *JWKSClient) GetKey(kid string) (crypto.PublicKey, error) {
	if key, ok := c.cachedKey(kid, false); ok {
		return key, nil
	}

	if err := c.refresh(); err != nil {
		// A stale key beats no key while the provider is unreachable.
		if key, ok := c.cachedKey(kid, true); ok {
			slog.Warn("jwks refresh failed, verifying with cached key", "error", err)
			return key, nil
		}
		return nil, fmt.Errorf("jwks: fetch %s: %w", c.url, err)
	}

	if key, ok := c.cachedKey(kid, true); ok {
		return key, nil
	}
	return nil, fmt.Errorf("jwks: no signing key with kid %q", kid)
}

// cachedKey looks up kid in the cache. Unless stale is set, an expired
// cache counts as a miss.
func (c *JWKSClient) cachedKey(kid string, stale bool) (crypto.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	if !ok {
		return nil, false
	}
	if !stale && time.Since(c.fetchedAt) > c.ttl {
		return nil, false
	}
	return key, true
}

func (c *JWKSClient) refresh() error {
	// Rate-limit refreshes so a flood of unknown-kid tokens cannot hammer
	// the provider.
	c.mu.RLock()
	recent := time.Since(c.fetchedAt) < c.minRefresh && len(c.keys) > 0
	c.mu.RUnlock()
	if recent {
		return nil
	}

	resp, err := c.httpClient.Get(c.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, c.url)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]crypto.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kid == "" {
			continue
		}
		// Encryption keys have no business verifying tokens.
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		key, err := k.publicKey()
		if err != nil {
			slog.Warn("jwks key skipped", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = key
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// JWTAuthenticator returns middleware that verifies bearer tokens against
// the provider's key set and stores the verified claims in the request
// context. Tokens must carry a subject; every record in the system is keyed
// by it.
func JWTAuthenticator(cfg config.IdentityConfig, jwks *JWKSClient) func(http.Handler) http.Handler {
	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = []string{"RS256"}
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		return jwks.GetKey(kid)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, model.NewUnauthorizedError("Missing authorization header"))
				return
			}
			rawToken, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				WriteError(w, model.NewUnauthorizedError("Invalid authorization header format"))
				return
			}

			token, err := jwt.Parse(rawToken, keyFunc,
				jwt.WithValidMethods(algorithms),
				jwt.WithIssuer(cfg.Issuer),
				jwt.WithAudience(cfg.Audience),
				jwt.WithLeeway(30*time.Second),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				WriteError(w, model.NewUnauthorizedError(describeTokenError(err)))
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				WriteError(w, model.NewUnauthorizedError("Invalid token"))
				return
			}
			if subject, _ := claims["sub"].(string); subject == "" {
				WriteError(w, model.NewUnauthorizedError("Token has no subject"))
				return
			}

			ctx := WithClaims(r.Context(), map[string]any(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// describeTokenError turns a verification failure into a client-safe
// message without leaking parser internals.
func describeTokenError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "Token not yet valid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "Invalid token issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "Invalid token audience"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Malformed token"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "Token could not be verified"
	default:
		return "Invalid token"
	}
}
