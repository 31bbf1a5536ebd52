package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var issuedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func TestVerify(t *testing.T) {
	clock := clockwork.NewFakeClockAt(issuedAt)
	v := NewVerifier(testSecret, "aquasens", clock)

	token, err := NewToken(testSecret, "aquasens", "farmer-1", issuedAt, time.Hour)
	require.NoError(t, err)

	owner, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", owner)

	clock.Advance(2 * time.Hour)
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerify_Rejections(t *testing.T) {
	clock := clockwork.NewFakeClockAt(issuedAt)

	wrongSecret, err := NewToken("other-secret", "aquasens", "farmer-1", issuedAt, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := NewToken(testSecret, "someone-else", "farmer-1", issuedAt, time.Hour)
	require.NoError(t, err)
	noSubject, err := NewToken(testSecret, "aquasens", "", issuedAt, time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "farmer-1"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "farmer-1",
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "  ", ErrMissingToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
		{"wrong secret", wrongSecret, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
		{"missing subject", noSubject, ErrInvalidToken},
		{"missing expiry", noExpiry, ErrInvalidToken},
		{"other algorithm", hs512, ErrInvalidToken},
	}

	v := NewVerifier(testSecret, "aquasens", clock)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerify_NoIssuerConfigured(t *testing.T) {
	v := NewVerifier(testSecret, "", clockwork.NewFakeClockAt(issuedAt))
	token, err := NewToken(testSecret, "anything", "farmer-2", issuedAt, time.Minute)
	require.NoError(t, err)

	owner, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "farmer-2", owner)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer  abc ", "abc", nil},
		{"", "", ErrMissingToken},
		{"Bearer ", "", ErrMissingToken},
		{"BEARER", "", ErrMissingToken},
		{"Basic dXNlcjpwYXNz", "", ErrInvalidToken},
		{"abc", "", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret, "", clockwork.NewFakeClockAt(issuedAt))

	var gotOwner string
	var gotErr error
	h := Middleware(v, func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, _ = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := NewToken(testSecret, "", "farmer-3", issuedAt, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "farmer-3", gotOwner)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.ErrorIs(t, gotErr, ErrMissingToken)
}

func TestOwnerFromContext_Empty(t *testing.T) {
	_, ok := OwnerFromContext(WithOwner(httptest.NewRequest(http.MethodGet, "/", nil).Context(), ""))
	assert.False(t, ok)
}
