package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/velmart/backend-store/internal/common"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, subject string, now time.Time, ttl time.Duration) string {
	t.Helper()
	token, err := jwt.NewBuilder().
		Issuer("velmart").
		Audience([]string{"storefront"}).
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func newVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{
		Secret:   testSecret,
		Issuer:   "velmart",
		Audience: "storefront",
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	return v
}

func TestVerifierSubject(t *testing.T) {
	now := time.Now()
	user := uuid.NewString()
	v := newVerifier(t, now)

	subject, err := v.Subject(signToken(t, user, now, time.Minute))
	require.NoError(t, err)
	require.Equal(t, user, subject)
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	v := newVerifier(t, now)

	_, err := v.Subject(signToken(t, uuid.NewString(), now.Add(-time.Hour), time.Minute))
	require.Error(t, err)
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	v := newVerifier(t, now)

	token, err := jwt.NewBuilder().
		Issuer("velmart").
		Audience([]string{"storefront"}).
		Subject("someone").
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte("another-secret-another-secret!!!")))
	require.NoError(t, err)

	_, err = v.Subject(string(signed))
	require.Error(t, err)
}

type stubRoles struct {
	granted map[uuid.UUID]string
}

func (s stubRoles) UserHasRole(_ context.Context, userID uuid.UUID, role string) (bool, error) {
	return s.granted[userID] == role, nil
}

func TestMiddlewareAuthenticate(t *testing.T) {
	now := time.Now()
	user := uuid.New()
	m := Middleware{Verifier: newVerifier(t, now)}

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.String(), now, time.Minute))
	rec := httptest.NewRecorder()
	m.Authenticate(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, user.String(), seen)

	// Anonymous requests pass through without a user.
	seen = ""
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	m.Authenticate(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, seen)
}

func TestMiddlewareRequireAuth(t *testing.T) {
	m := Middleware{Verifier: newVerifier(t, time.Now())}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	m.RequireAuth(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	m.RequireAuth(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRequireRole(t *testing.T) {
	now := time.Now()
	adminUser := uuid.New()
	plainUser := uuid.New()
	m := Middleware{
		Verifier: newVerifier(t, now),
		Roles:    stubRoles{granted: map[uuid.UUID]string{adminUser: "admin"}},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	guard := m.RequireRole("admin")(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminUser.String(), now, time.Minute))
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, plainUser.String(), now, time.Minute))
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
