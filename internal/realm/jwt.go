package realm

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/secctx/go-core/pkg/types"
)

// Claims represents the JWT claims this realm maps onto an account
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`

	Roles    []string               `json:"roles,omitempty"`
	Scopes   []string               `json:"scopes,omitempty"`
	TenantID string                 `json:"tenant_id,omitempty"`
	Attrs    map[string]interface{} `json:"attrs,omitempty"`
}

// JWTConfig contains JWT realm configuration
type JWTConfig struct {
	// HS256 configuration
	Secret string

	// RS256 configuration
	PublicKey *rsa.PublicKey

	// Token validation
	Issuer   string
	Audience string

	Logger *zap.Logger
}

// Validate checks if the configuration is valid
func (c *JWTConfig) Validate() error {
	if c.Secret == "" && c.PublicKey == nil {
		return fmt.Errorf("no verification key configured (need Secret or PublicKey)")
	}
	if c.Secret != "" && c.PublicKey != nil {
		return fmt.Errorf("configure either Secret or PublicKey, not both")
	}
	return nil
}

// JWTRealm authenticates bearer tokens carrying signed JWTs. The token is
// self-describing: principals, roles, and scope permissions are taken from
// the verified claims, no account lookup is performed.
type JWTRealm struct {
	cfg    JWTConfig
	logger *zap.Logger
}

// NewJWTRealm creates a JWT realm
func NewJWTRealm(cfg JWTConfig) (*JWTRealm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTRealm{cfg: cfg, logger: logger}, nil
}

// Name identifies the realm
func (r *JWTRealm) Name() string { return "jwt" }

// Supports reports whether the token is a bearer token
func (r *JWTRealm) Supports(token types.AuthenticationToken) bool {
	_, ok := token.(*types.BearerToken)
	return ok
}

// Authenticate verifies the JWT and maps its claims onto an account
func (r *JWTRealm) Authenticate(_ context.Context, token types.AuthenticationToken) (*types.Account, error) {
	bt, ok := token.(*types.BearerToken)
	if !ok {
		return nil, ErrUnsupportedToken
	}
	if bt.Token == "" {
		return nil, ErrInvalidCredentials
	}

	claims, err := r.parse(bt.Token)
	if err != nil {
		r.logger.Debug("JWT validation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	return r.accountFromClaims(claims)
}

func (r *JWTRealm) parse(raw string) (*Claims, error) {
	var (
		keyFunc jwt.Keyfunc
		methods []string
	)
	if r.cfg.Secret != "" {
		methods = []string{"HS256"}
		keyFunc = func(*jwt.Token) (interface{}, error) { return []byte(r.cfg.Secret), nil }
	} else {
		methods = []string{"RS256"}
		keyFunc = func(*jwt.Token) (interface{}, error) { return r.cfg.PublicKey, nil }
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if r.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.cfg.Issuer))
	}
	if r.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(r.cfg.Audience))
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, keyFunc, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (r *JWTRealm) accountFromClaims(claims *Claims) (*types.Account, error) {
	// Username leads so Primary() is the human-facing identity, matching
	// the ordering buildAccount uses for the other realms.
	var principals []types.Principal
	if claims.Username != "" {
		principals = append(principals, types.Username(claims.Username))
	}
	if claims.UserID != "" {
		principals = append(principals, types.UserID(claims.UserID))
	} else if claims.Subject != "" {
		principals = append(principals, types.UserID(claims.Subject))
	}
	if claims.Email != "" {
		principals = append(principals, types.Email(claims.Email))
	}
	if len(principals) == 0 {
		return nil, fmt.Errorf("%w: token carries no identifying claims", ErrInvalidCredentials)
	}

	perms, err := parsePermissions(claims.Scopes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	attrs := claims.Attrs
	if claims.TenantID != "" {
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		attrs["tenant_id"] = claims.TenantID
	}

	return &types.Account{
		Principals:  principals,
		Roles:       append([]string(nil), claims.Roles...),
		Permissions: perms,
		Attributes:  attrs,
	}, nil
}
