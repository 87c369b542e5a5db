package cryptoutil

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// ErrInvalidMAC is returned by Verify when a tag does not match.
var ErrInvalidMAC = errors.New("invalid mac")

// MinHMACKeyLen is the shortest accepted local HMAC key.
const MinHMACKeyLen = 32

// Signer computes and verifies MAC tags over a message.
type Signer interface {
	Sign(ctx context.Context, msg []byte) ([]byte, error)
	Verify(ctx context.Context, msg, tag []byte) error
}

// HMACSigner is an in-process HMAC-SHA256 Signer.
type HMACSigner struct {
	key []byte
}

func NewHMACSigner(key []byte) (*HMACSigner, error) {
	if len(key) < MinHMACKeyLen {
		return nil, xerrors.Newf("hmac key must be at least %d bytes, got %d", MinHMACKeyLen, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &HMACSigner{key: k}, nil
}

func (s *HMACSigner) Sign(_ context.Context, msg []byte) ([]byte, error) {
	m := hmac.New(sha256.New, s.key)
	m.Write(msg)
	return m.Sum(nil), nil
}

func (s *HMACSigner) Verify(ctx context.Context, msg, tag []byte) error {
	want, _ := s.Sign(ctx, msg)
	if !hmac.Equal(want, tag) {
		return ErrInvalidMAC
	}
	return nil
}
