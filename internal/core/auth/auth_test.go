package auth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solatis/switchboard/internal/core/db"
	"github.com/solatis/switchboard/internal/types"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("testsecret1234567890abcdefghijklmnop")

func newQueries(t *testing.T) *db.Queries {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateUp(ctx, conn))

	q, err := db.LoadQueries(conn)
	require.NoError(t, err)
	return q
}

func newAuthenticator(t *testing.T) (*Authenticator, *db.Queries) {
	q := newQueries(t)
	return NewAuthenticator(map[string][]byte{testSecretID: testSecret}, q, nil), q
}

func TestParseAPIKey(t *testing.T) {
	random := strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", FormatAPIKey(testSecretID, random), false},
		{"wrong prefix", "xx-v1-" + testSecretID + "-" + random, true},
		{"wrong version", "sb-v2-" + testSecretID + "-" + random, true},
		{"short random", FormatAPIKey(testSecretID, "abcd"), true},
		{"uppercase", FormatAPIKey(strings.ToUpper(testSecretID), random), true},
		{"extra segment", FormatAPIKey(testSecretID, random) + "-x", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secretID, randomData, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidKeyFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, testSecretID, secretID)
			require.Equal(t, random, randomData)
		})
	}
}

func TestIssueAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuthenticator(t)

	issued, err := a.Issue(ctx, "ops", true)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(issued.Key, "sb-v1-"+testSecretID+"-"))

	p, err := a.Authenticate(ctx, issued.Key)
	require.NoError(t, err)
	require.Equal(t, &Principal{ID: "ops", Superuser: true}, p)

	plain, err := a.Issue(ctx, "viewer", false)
	require.NoError(t, err)
	p, err = a.Authenticate(ctx, plain.Key)
	require.NoError(t, err)
	require.False(t, p.Superuser)
}

func TestIssueUsesNewestSecret(t *testing.T) {
	newer := "fedcba9876543210fedcba9876543210"
	a := NewAuthenticator(map[string][]byte{testSecretID: testSecret, newer: testSecret}, newQueries(t), nil)

	issued, err := a.Issue(context.Background(), "ops", false)
	require.NoError(t, err)
	secretID, _, err := ParseAPIKey(issued.Key)
	require.NoError(t, err)
	require.Equal(t, newer, secretID)
}

func TestAuthenticateFailures(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuthenticator(t)

	issued, err := a.Issue(ctx, "ops", false)
	require.NoError(t, err)

	t.Run("malformed", func(t *testing.T) {
		_, err := a.Authenticate(ctx, "not-a-key")
		require.ErrorIs(t, err, ErrInvalidKeyFormat)
	})

	t.Run("unknown secret", func(t *testing.T) {
		key := FormatAPIKey("fedcba9876543210fedcba9876543210", strings.Repeat("0", 64))
		_, err := a.Authenticate(ctx, key)
		require.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("not stored", func(t *testing.T) {
		key := FormatAPIKey(testSecretID, strings.Repeat("0", 64))
		_, err := a.Authenticate(ctx, key)
		require.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, a.Revoke(ctx, issued.ID))

		_, err := a.Authenticate(ctx, issued.Key)
		require.ErrorIs(t, err, ErrKeyRevoked)

		err = a.Revoke(ctx, issued.ID)
		require.ErrorIs(t, err, types.ErrNotFound)
	})
}

// brokenQueries fails every lookup.
type brokenQueries struct{}

func (brokenQueries) Get(ctx context.Context, name string, dest any, args ...any) error {
	return errors.New("connection refused")
}

func (brokenQueries) Exec(ctx context.Context, name string, args ...any) (sql.Result, error) {
	return nil, errors.New("connection refused")
}

func TestUnaryInterceptor(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuthenticator(t)
	issued, err := a.Issue(ctx, "ops", true)
	require.NoError(t, err)

	var seen *Principal
	handler := func(ctx context.Context, req any) (any, error) {
		seen = PrincipalFromContext(ctx)
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/switchboard.admin.v1.AdminAPI/ListSwitches"}
	withKey := func(key string) context.Context {
		return metadata.NewIncomingContext(ctx, metadata.Pairs(MetadataKey, key))
	}

	tests := []struct {
		name     string
		auth     *Authenticator
		ctx      context.Context
		wantCode codes.Code
	}{
		{"valid key", a, withKey(issued.Key), codes.OK},
		{"no metadata", a, ctx, codes.Unauthenticated},
		{"no key", a, metadata.NewIncomingContext(ctx, metadata.MD{}), codes.Unauthenticated},
		{"bad key", a, withKey("sb-v1-nope"), codes.Unauthenticated},
		{"database down", NewAuthenticator(map[string][]byte{testSecretID: testSecret}, brokenQueries{}, nil),
			withKey(issued.Key), codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			_, err := tt.auth.UnaryInterceptor()(tt.ctx, nil, info, handler)
			require.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				require.Equal(t, &Principal{ID: "ops", Superuser: true}, seen)
			} else {
				require.Nil(t, seen)
			}
		})
	}
}

func TestRequireSuperuser(t *testing.T) {
	ctx := context.Background()
	require.ErrorIs(t, RequireSuperuser(ctx), types.ErrAuthorizationRequired)
	require.ErrorIs(t, RequireSuperuser(WithPrincipal(ctx, &Principal{ID: "viewer"})), types.ErrAuthorizationRequired)
	require.NoError(t, RequireSuperuser(WithPrincipal(ctx, &Principal{ID: "ops", Superuser: true})))
}
