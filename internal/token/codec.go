// Package token issues and opens attendance tokens.
//
// A token is the base64url encoding of nonce || XChaCha20-Poly1305(payload). The payload binds a
// teaching slot to a session date and an absolute expiry, plus 16 random bytes so two tokens for the
// same session never repeat. The codec keeps no state: whether a token was already used is decided
// by the attendance ledger.
package token

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	nonceLen = 16
	keyInfo  = "qrattend attendance token key"
)

var additionalData = []byte("qrattend.token.v1")

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is what a valid token grants.
type Claims struct {
	SlotID      int64
	SessionDate string
	ExpiresAt   time.Time
}

type payload struct {
	SlotID    int64  `json:"s"`
	Date      string `json:"d"`
	Nonce     []byte `json:"n"`
	ExpiresAt int64  `json:"e"` // unix milliseconds
}

// Codec seals and opens tokens with a server-held key.
type Codec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec derives the encryption key from secret with HKDF-SHA256.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret required")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	c := &Codec{aead: aead, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue creates a token valid for the given window starting now.
func (c *Codec) Issue(slotID int64, sessionDate string, validity time.Duration) (string, time.Time, error) {
	exp := c.now().Add(validity)
	tok, err := c.IssueUntil(slotID, sessionDate, exp)
	return tok, exp, err
}

// IssueUntil creates a token that expires at an absolute instant.
func (c *Codec) IssueUntil(slotID int64, sessionDate string, expiresAt time.Time) (string, error) {
	if slotID <= 0 || sessionDate == "" {
		return "", errors.New("slot id and session date required")
	}
	p := payload{
		SlotID:    slotID,
		Date:      sessionDate,
		Nonce:     make([]byte, nonceLen),
		ExpiresAt: expiresAt.UnixMilli(),
	}
	if _, err := rand.Read(p.Nonce); err != nil {
		return "", fmt.Errorf("token nonce: %w", err)
	}
	plain, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("aead nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plain, additionalData)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Consume authenticates and decodes a token. The token is valid only while now < ExpiresAt.
func (c *Codec) Consume(tok string) (Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return Claims{}, ErrInvalidToken
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], additionalData)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var p payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if p.SlotID <= 0 || len(p.Nonce) < nonceLen || p.ExpiresAt <= 0 {
		return Claims{}, ErrInvalidToken
	}
	if _, err := time.Parse("2006-01-02", p.Date); err != nil {
		return Claims{}, ErrInvalidToken
	}

	exp := time.UnixMilli(p.ExpiresAt)
	if !c.now().Before(exp) {
		return Claims{}, ErrExpiredToken
	}
	return Claims{SlotID: p.SlotID, SessionDate: p.Date, ExpiresAt: exp}, nil
}
