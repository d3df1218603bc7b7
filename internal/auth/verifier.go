package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/merchstats/reportgate/internal/config"
)

// ErrUnauthenticated is returned when a credential is missing, malformed,
// or rejected by the identity service. Malformed input is a normal outcome,
// never a panic.
var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier validates a raw Authorization header value and extracts the
// caller identity encoded in the credential.
type Verifier interface {
	Verify(ctx context.Context, authorization string) (*Identity, error)
}

// NewVerifier selects the verification mode from the identity configuration:
// local HS256 verification when the issuer's shared secret is configured,
// otherwise delegation to the identity service's user endpoint.
func NewVerifier(cfg *config.IdentityConfig) (Verifier, error) {
	if cfg.LocalVerification() {
		return NewHS256Verifier(cfg.JWTSecret), nil
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("identity verifier requires a JWT secret or service URL")
	}
	return NewRemoteVerifier(cfg.URL, cfg.APIKey), nil
}

// ParseBearer extracts the token from a "Bearer <token>" header value.
// Returns false for missing or malformed headers.
func ParseBearer(authorization string) (string, bool) {
	const prefix = "bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(authorization[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// HS256Verifier verifies tokens locally using the external issuer's shared
// HS256 signing secret. The gateway never issues tokens itself.
type HS256Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewHS256Verifier creates a verifier for HS256-signed bearer tokens.
func NewHS256Verifier(secret string) *HS256Verifier {
	return &HS256Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Verify validates the header's bearer token signature and expiry and
// extracts the subject plus any role claim.
func (v *HS256Verifier) Verify(_ context.Context, authorization string) (*Identity, error) {
	token, ok := ParseBearer(authorization)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer credential", ErrUnauthenticated)
	}

	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: token missing sub claim", ErrUnauthenticated)
	}

	return &Identity{UserID: sub, Role: RoleFromClaims(claims)}, nil
}

// RemoteVerifier verifies tokens by calling the identity service's user
// endpoint. Any rejection, including transport failure, maps to
// ErrUnauthenticated; the gateway treats the service as the sole authority.
type RemoteVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteVerifier creates a verifier backed by the identity service at baseURL.
func NewRemoteVerifier(baseURL, apiKey string) *RemoteVerifier {
	return &RemoteVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// remoteUser is the subset of the identity service's user document the
// gateway reads.
type remoteUser struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	AppMetadata map[string]any `json:"app_metadata"`
}

// Verify calls the identity service's user endpoint with the bearer token.
func (v *RemoteVerifier) Verify(ctx context.Context, authorization string) (*Identity, error) {
	token, ok := ParseBearer(authorization)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer credential", ErrUnauthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: identity service unreachable: %v", ErrUnauthenticated, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: identity service rejected credential (status %d)", ErrUnauthenticated, resp.StatusCode)
	}

	var user remoteUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode user document: %v", ErrUnauthenticated, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user document missing id", ErrUnauthenticated)
	}

	role := user.Role
	if role == "" {
		role = roleFromMetadata(user.AppMetadata)
	}

	return &Identity{UserID: user.ID, Role: role}, nil
}
