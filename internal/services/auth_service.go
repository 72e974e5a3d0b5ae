package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sports_club_backend/pkg/utils"
)

// Auth modes.
const (
	AuthModeJWT           = "jwt"
	AuthModeIntrospection = "introspection"
)

var ErrTokenGeneration = errors.New("failed to generate token")

// Identity is the caller behind a validated bearer token.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// AuthConfig selects and configures the token validator.
type AuthConfig struct {
	Mode             string
	JWTSecret        string
	TokenTTL         time.Duration
	IntrospectionURL string
	HTTPClient       *http.Client
}

// --- AuthService Interface ---
type AuthService interface {
	// ValidateToken resolves a bearer token to an identity or returns ErrInvalidToken.
	ValidateToken(ctx context.Context, token string) (*Identity, error)
}

// TokenIssuer is implemented by validators that can mint their own tokens.
type TokenIssuer interface {
	IssueToken(email, name string) (string, error)
}

// NewAuthService builds the validator for cfg.Mode.
func NewAuthService(cfg AuthConfig) (AuthService, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", AuthModeJWT:
		if cfg.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET is required in jwt auth mode")
		}
		ttl := cfg.TokenTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &jwtAuthService{secret: []byte(cfg.JWTSecret), ttl: ttl}, nil
	case AuthModeIntrospection:
		if cfg.IntrospectionURL == "" {
			return nil, errors.New("TOKEN_INTROSPECTION_URL is required in introspection auth mode")
		}
		if _, err := url.ParseRequestURI(cfg.IntrospectionURL); err != nil {
			return nil, fmt.Errorf("invalid TOKEN_INTROSPECTION_URL: %w", err)
		}
		client := cfg.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 10 * time.Second}
		}
		return &introspectionAuthService{endpoint: cfg.IntrospectionURL, client: client}, nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
}

// --- jwtAuthService Implementation ---
type jwtAuthService struct {
	secret []byte
	ttl    time.Duration
}

func (s *jwtAuthService) ValidateToken(_ context.Context, token string) (*Identity, error) {
	claims, err := utils.ValidateToken(token, s.secret)
	if err != nil {
		utils.LogDebug("JWT rejected", map[string]interface{}{"reason": err.Error()})
		return nil, ErrInvalidToken
	}
	if utils.NormalizeEmail(claims.Email) == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{Email: utils.NormalizeEmail(claims.Email), Name: claims.Name}, nil
}

// IssueToken signs a token for email valid for the configured TTL.
func (s *jwtAuthService) IssueToken(email, name string) (string, error) {
	token, err := utils.GenerateAccessToken(utils.NormalizeEmail(email), name, s.secret, s.ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return token, nil
}

// --- introspectionAuthService Implementation ---

// introspectionAuthService asks an OAuth token-info endpoint about the token.
type introspectionAuthService struct {
	endpoint string
	client   *http.Client
}

type tokenInfo struct {
	Email            string          `json:"email"`
	Name             string          `json:"name"`
	ExpiresIn        json.RawMessage `json:"expires_in"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// expiresIn accepts the number both as JSON number and string.
func (t tokenInfo) expiresIn() int64 {
	raw := strings.Trim(string(t.ExpiresIn), `"`)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *introspectionAuthService) ValidateToken(ctx context.Context, token string) (*Identity, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing introspection url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building introspection request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling token introspection: %w", err)
	}
	defer resp.Body.Close()

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("decoding token introspection response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || info.Error != "" {
		utils.LogDebug("Token introspection rejected token", map[string]interface{}{
			"status": resp.StatusCode, "error": info.Error, "description": info.ErrorDescription,
		})
		return nil, ErrInvalidToken
	}
	if info.expiresIn() <= 0 || utils.NormalizeEmail(info.Email) == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{Email: utils.NormalizeEmail(info.Email), Name: info.Name}, nil
}
