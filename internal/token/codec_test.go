package token

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueConsume(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, err := NewCodec("secret", WithClock(fixedClock(now)))
	require.NoError(t, err)

	tok, exp, err := c.Issue(42, "2026-03-02", 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour), exp)

	claims, err := c.Consume(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.SlotID)
	assert.Equal(t, "2026-03-02", claims.SessionDate)
	assert.True(t, claims.ExpiresAt.Equal(exp))
}

func TestTokensAreUnique(t *testing.T) {
	c, err := NewCodec("secret")
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour)

	a, err := c.IssueUntil(1, "2026-03-02", exp)
	require.NoError(t, err)
	b, err := c.IssueUntil(1, "2026-03-02", exp)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestConsumeErrors(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, err := NewCodec("secret", WithClock(fixedClock(now)))
	require.NoError(t, err)
	other, err := NewCodec("another-secret", WithClock(fixedClock(now)))
	require.NoError(t, err)

	valid, err := c.IssueUntil(7, "2026-03-02", now.Add(time.Minute))
	require.NoError(t, err)
	expired, err := c.IssueUntil(7, "2026-03-02", now.Add(-time.Second))
	require.NoError(t, err)
	atExpiry, err := c.IssueUntil(7, "2026-03-02", now)
	require.NoError(t, err)
	foreign, err := other.IssueUntil(7, "2026-03-02", now.Add(time.Minute))
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(valid)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: ErrInvalidToken},
		{name: "not base64", token: "***", wantErr: ErrInvalidToken},
		{name: "too short", token: "AAAA", wantErr: ErrInvalidToken},
		{name: "tampered", token: tampered, wantErr: ErrInvalidToken},
		{name: "other key", token: foreign, wantErr: ErrInvalidToken},
		{name: "expired", token: expired, wantErr: ErrExpiredToken},
		{name: "now equals expiry", token: atExpiry, wantErr: ErrExpiredToken},
		{name: "valid", token: valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Consume(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpiredRegardlessOfPayload(t *testing.T) {
	issuedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, err := NewCodec("secret", WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)
	// slot 999999 does not exist anywhere; expiry is still reported first
	tok, _, err := c.Issue(999999, "1999-01-01", time.Minute)
	require.NoError(t, err)

	c.now = fixedClock(issuedAt.Add(time.Hour))
	_, err = c.Consume(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestIssueValidation(t *testing.T) {
	c, err := NewCodec("secret")
	require.NoError(t, err)
	_, err = c.IssueUntil(0, "2026-03-02", time.Now())
	assert.Error(t, err)
	_, err = c.IssueUntil(1, "", time.Now())
	assert.Error(t, err)

	_, err = NewCodec("")
	assert.Error(t, err)
}
