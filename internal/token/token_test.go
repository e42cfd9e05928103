package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/taskkeeper/internal/errs"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newSvc(t *testing.T, secret []byte, c *clock) *Service {
	t.Helper()
	s, err := New(Config{Secret: secret, TTL: time.Hour, Issuer: "taskkeeper", Now: c.now})
	require.NoError(t, err)
	return s
}

func requireReason(t *testing.T, err error, want errs.AuthReason) {
	t.Helper()
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	var ae *errs.AuthError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, want, ae.Reason)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Secret: []byte("short")})
	require.Error(t, err)

	_, err = New(Config{Secret: testSecret, TTL: -time.Second})
	require.Error(t, err)

	s, err := New(Config{Secret: testSecret})
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, s.ttl)
}

func TestNew_CopiesSecret(t *testing.T) {
	t.Parallel()

	secret := append([]byte(nil), testSecret...)
	c := &clock{t: time.Now()}
	s := newSvc(t, secret, c)
	tok, _, err := s.Issue(uuid.Must(uuid.NewV4()), 0)
	require.NoError(t, err)

	secret[0] ^= 0xff
	_, err = s.Verify(tok)
	require.NoError(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	s := newSvc(t, testSecret, c)
	uid := uuid.Must(uuid.NewV4())

	tok, exp, err := s.Issue(uid, 3)
	require.NoError(t, err)
	require.Equal(t, c.t.Add(time.Hour), exp)

	id, err := s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, uid, id.UserID)
	require.Equal(t, int64(3), id.CredVer)
	require.True(t, id.ExpiresAt.Equal(exp))
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newSvc(t, testSecret, c)
	tok, _, err := s.Issue(uuid.Must(uuid.NewV4()), 0)
	require.NoError(t, err)

	c.t = c.t.Add(time.Hour + time.Second)
	_, err = s.Verify(tok)
	requireReason(t, err, errs.ReasonExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	issuer := newSvc(t, []byte("ffffffffffffffffffffffffffffffff"), c)
	verifier := newSvc(t, testSecret, c)

	tok, _, err := issuer.Issue(uuid.Must(uuid.NewV4()), 0)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	requireReason(t, err, errs.ReasonBadSignature)
}

func TestVerify_TamperedExpiry(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newSvc(t, testSecret, c)
	uid := uuid.Must(uuid.NewV4())

	short, _, err := s.Issue(uid, 0)
	require.NoError(t, err)

	// same subject, later expiry, signed separately
	c.t = c.t.Add(24 * time.Hour)
	long, _, err := s.Issue(uid, 0)
	require.NoError(t, err)
	c.t = c.t.Add(-24 * time.Hour)

	sp := strings.Split(short, ".")
	lp := strings.Split(long, ".")
	forged := sp[0] + "." + lp[1] + "." + sp[2]

	_, err = s.Verify(forged)
	requireReason(t, err, errs.ReasonBadSignature)
}

func TestVerify_WrongAlg(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newSvc(t, testSecret, c)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "taskkeeper",
		Subject:   uuid.Must(uuid.NewV4()).String(),
		ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = s.Verify(tok)
	requireReason(t, err, errs.ReasonBadSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newSvc(t, testSecret, c)

	for _, raw := range []string{"", "this-is-not-a-jwt", "a.b", "a.b.c"} {
		_, err := s.Verify(raw)
		requireReason(t, err, errs.ReasonMalformed)
	}
}

func TestVerify_BadSubjectAndMissingExpiry(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	s := newSvc(t, testSecret, c)

	bad := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "taskkeeper",
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, bad).SignedString(testSecret)
	require.NoError(t, err)
	_, err = s.Verify(tok)
	requireReason(t, err, errs.ReasonMalformed)

	noExp := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:  "taskkeeper",
		Subject: uuid.Must(uuid.NewV4()).String(),
	}}
	tok, err = jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString(testSecret)
	require.NoError(t, err)
	_, err = s.Verify(tok)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}
