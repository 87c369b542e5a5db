package cryptoutil

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// kmsMACAPI is the subset of the KMS client used for HMAC keys.
type kmsMACAPI interface {
	GenerateMac(ctx context.Context, params *kms.GenerateMacInput, optFns ...func(*kms.Options)) (*kms.GenerateMacOutput, error)
	VerifyMac(ctx context.Context, params *kms.VerifyMacInput, optFns ...func(*kms.Options)) (*kms.VerifyMacOutput, error)
}

// KMSSigner signs with an HMAC_256 KMS key. Every Sign and Verify is a
// KMS round trip.
type KMSSigner struct {
	client kmsMACAPI
	keyID  string
}

func NewKMSSigner(client *kms.Client, keyID string) *KMSSigner {
	return &KMSSigner{client: client, keyID: keyID}
}

func (s *KMSSigner) Sign(ctx context.Context, msg []byte) ([]byte, error) {
	if s.client == nil {
		return nil, xerrors.New("kms client is not configured")
	}
	out, err := s.client.GenerateMac(ctx, &kms.GenerateMacInput{
		KeyId:        aws.String(s.keyID),
		MacAlgorithm: kmstypes.MacAlgorithmSpecHmacSha256,
		Message:      msg,
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "kms generate mac")
	}
	return out.Mac, nil
}

func (s *KMSSigner) Verify(ctx context.Context, msg, tag []byte) error {
	if s.client == nil {
		return xerrors.New("kms client is not configured")
	}
	out, err := s.client.VerifyMac(ctx, &kms.VerifyMacInput{
		KeyId:        aws.String(s.keyID),
		MacAlgorithm: kmstypes.MacAlgorithmSpecHmacSha256,
		Message:      msg,
		Mac:          tag,
	})
	if err != nil {
		var invalid *kmstypes.KMSInvalidMacException
		if errors.As(err, &invalid) {
			return ErrInvalidMAC
		}
		return xerrors.Wrap(err, "kms verify mac")
	}
	if !out.MacValid {
		return ErrInvalidMAC
	}
	return nil
}
