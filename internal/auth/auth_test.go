package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lifelink/internal/adapter/repo"
	"lifelink/internal/domain"
)

func newTestService(adminCode string) *Service {
	return NewService(
		repo.NewUserMemory(),
		NewTokens("test-secret", time.Hour),
		NewPolicyStore(DefaultPolicy(), zerolog.Nop()),
		zerolog.Nop(),
		Options{AdminCode: adminCode, BcryptCost: bcrypt.MinCost},
	)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService("")
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "ngo1", Password: "pw", Role: "ngo"})
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleNGO, user.Role)
	assert.NotEqual(t, "pw", user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Username: "ngo1", Password: "other", Role: "ngo"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	res, err := svc.Login(ctx, "ngo1", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleNGO, res.Role)

	claims, err := svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "ngo1", claims.Username)
	assert.Equal(t, domain.UserRoleNGO, claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService("letmein")
	ctx := context.Background()
	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing username", RegisterInput{Password: "pw"}, domain.ErrValidation},
		{"missing password", RegisterInput{Username: "u"}, domain.ErrValidation},
		{"unknown role", RegisterInput{Username: "u", Password: "pw", Role: "wizard"}, domain.ErrValidation},
		{"admin without code", RegisterInput{Username: "a", Password: "pw", Role: "admin"}, domain.ErrForbidden},
		{"govt with wrong code", RegisterInput{Username: "g", Password: "pw", Role: "govt", AdminCode: "nope"}, domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	admin, err := svc.Register(ctx, RegisterInput{Username: "root", Password: "pw", Role: "admin", AdminCode: "letmein"})
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAdmin, admin.Role)

	public, err := svc.Register(ctx, RegisterInput{Username: "visitor", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, domain.UserRolePublic, public.Role)
}

func TestPrivilegedRoleNeedsConfiguredCode(t *testing.T) {
	svc := newTestService("")
	_, err := svc.Register(context.Background(), RegisterInput{Username: "a", Password: "pw", Role: "admin", AdminCode: ""})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// the CLI path bypasses the code
	user, err := svc.AddUser(context.Background(), "a", "pw", "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAdmin, user.Role)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService("")
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "ngo1", Password: "pw", Role: "ngo"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "ngo1", "bad")
	_, unknownUser := svc.Login(ctx, "ghost", "pw")
	require.ErrorIs(t, wrongPassword, domain.ErrUnauthorized)
	require.ErrorIs(t, unknownUser, domain.ErrUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestTokens(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens("secret", time.Hour)
	tokens.now = func() time.Time { return now }

	raw, err := tokens.Issue(&domain.User{Username: "aud", Role: domain.UserRoleAuditor})
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "aud", claims.Username)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	tokens.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x", "role": "admin", "iss": TokenIssuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(noneToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.Allows(domain.UserRoleNGO, ActionDonate))
	assert.True(t, p.Allows(domain.UserRoleAdmin, ActionDispatch))
	assert.False(t, p.Allows(domain.UserRolePublic, ActionDonate))
	assert.False(t, p.Allows(domain.UserRoleAuditor, ActionDonate))
	assert.True(t, p.Allows(domain.UserRoleAuditor, ActionAudit))
	assert.False(t, p.Allows(domain.UserRoleAdmin, Action("delete")))
	assert.True(t, p.IsPrivileged(domain.UserRoleGovt))
	assert.False(t, p.IsPrivileged(domain.UserRoleNGO))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]byte("actions:\n  donate: [admin]\nprivileged: [admin]\n"))
	require.NoError(t, err)
	assert.False(t, p.Allows(domain.UserRoleNGO, ActionDonate))
	assert.True(t, p.Allows(domain.UserRoleNGO, ActionDispatch), "unlisted actions keep defaults")
	assert.False(t, p.IsPrivileged(domain.UserRoleGovt))

	_, err = ParsePolicy([]byte("actions:\n  donate: [wizard]\n"))
	assert.Error(t, err)
	_, err = ParsePolicy([]byte("unknown_key: 1\n"))
	assert.Error(t, err)
}

func TestPolicyFileReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actions:\n  audit: [admin]\n"), 0o644))

	store, err := LoadPolicyFile(path, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, store.Allows(domain.UserRoleNGO, ActionAudit))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("actions:\n  audit: [admin, ngo]\n"), 0o644))
	assert.Eventually(t, func() bool {
		return store.Allows(domain.UserRoleNGO, ActionAudit)
	}, 5*time.Second, 20*time.Millisecond)

	// a broken file keeps the previous policy
	require.NoError(t, os.WriteFile(path, []byte("actions: [\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.True(t, store.Allows(domain.UserRoleNGO, ActionAudit))
}
