// Package auth provides HMAC-based API key authentication for the admin API.
//
// Keys have the form sb-v1-<secret_id>-<random>. Only the HMAC-SHA256 of a
// key under the secret named by secret_id is stored. Each key belongs to a
// principal; superuser principals may run privileged operations such as
// switch import.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/solatis/switchboard/internal/types"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// MetadataKey is the gRPC metadata header carrying the API key.
const MetadataKey = "x-api-key"

// lastUsedThrottle bounds how often a busy key rewrites last_used_at.
const lastUsedThrottle = time.Minute

type contextKey string

const principalKey = contextKey("principal")

// Principal is the authenticated caller.
type Principal struct {
	ID        string
	Superuser bool
}

// Queries defines the database operations authentication needs.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest any, args ...any) error
	Exec(ctx context.Context, name string, args ...any) (sql.Result, error)
}

// Authenticator validates API keys against stored HMACs.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets keyed by secret ID.
func NewAuthenticator(secrets map[string][]byte, queries Queries, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		logger:  logger,
		now:     time.Now,
	}
}

type apiKeyRow struct {
	APIKeyID   string       `db:"api_key_id"`
	Principal  string       `db:"principal"`
	Superuser  int          `db:"superuser"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
}

// Authenticate validates apiKey and returns its principal.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (*Principal, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return nil, err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return nil, ErrUnknownKey
	}

	var row apiKeyRow
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if row.RevokedAt.Valid {
		return nil, ErrKeyRevoked
	}

	if a.shouldUpdateLastUsed(row.LastUsedAt) {
		if _, err := a.queries.Exec(ctx, "update-last-used", a.now().UTC(), row.APIKeyID); err != nil {
			a.logger.Warn("failed to update api key last_used_at",
				zap.String("api_key_id", row.APIKeyID), zap.Error(err))
		}
	}

	return &Principal{ID: row.Principal, Superuser: row.Superuser != 0}, nil
}

func (a *Authenticator) shouldUpdateLastUsed(lastUsed sql.NullTime) bool {
	if !lastUsed.Valid {
		return true
	}
	return a.now().Sub(lastUsed.Time) > lastUsedThrottle
}

// IssuedKey is a freshly created API key. Key is shown once and never stored.
type IssuedKey struct {
	ID        string
	Key       string
	Principal string
	Superuser bool
}

// Issue creates and stores a key for principal, signed with the newest secret.
// Secret IDs are UUIDv7 hex, so the lexicographically greatest is the newest.
func (a *Authenticator) Issue(ctx context.Context, principal string, superuser bool) (*IssuedKey, error) {
	if principal == "" {
		return nil, fmt.Errorf("principal is required")
	}
	if len(a.secrets) == 0 {
		return nil, fmt.Errorf("no HMAC secrets configured")
	}
	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	secretID := ids[len(ids)-1]

	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	key := FormatAPIKey(secretID, hex.EncodeToString(random))

	issued := &IssuedKey{
		ID:        types.NewAPIKeyID(),
		Key:       key,
		Principal: principal,
		Superuser: superuser,
	}
	superuserFlag := 0
	if superuser {
		superuserFlag = 1
	}
	_, err := a.queries.Exec(ctx, "insert-api-key",
		issued.ID, principal, secretID, ComputeHMAC(a.secrets[secretID], key), superuserFlag, a.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to store api key: %w", err)
	}
	return issued, nil
}

// Revoke marks an API key revoked. Revoking an unknown or already revoked
// key fails with types.ErrNotFound.
func (a *Authenticator) Revoke(ctx context.Context, apiKeyID string) error {
	res, err := a.queries.Exec(ctx, "revoke-api-key", a.now().UTC(), apiKeyID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("active api key %s: %w", apiKeyID, types.ErrNotFound)
	}
	a.logger.Info("api key revoked", zap.String("api_key_id", apiKeyID))
	return nil
}

// UnaryInterceptor returns a gRPC interceptor that authenticates every call
// and stores the principal in the handler context.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get(MetadataKey)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		principal, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case errors.Is(err, ErrDatabase):
				a.logger.Error("authentication unavailable", zap.String("method", info.FullMethod), zap.Error(err))
				return nil, status.Error(codes.Unavailable, err.Error())
			default:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		return handler(WithPrincipal(ctx, principal), req)
	}
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// RequireSuperuser fails with types.ErrAuthorizationRequired unless the
// context carries a superuser principal.
func RequireSuperuser(ctx context.Context) error {
	p := PrincipalFromContext(ctx)
	if p == nil || !p.Superuser {
		return types.ErrAuthorizationRequired
	}
	return nil
}
