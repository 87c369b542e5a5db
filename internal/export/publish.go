package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type parameterPutter interface {
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

type PublisherOptions struct {
	Logger log.Logger

	// S3 location for bundles: s3://{bucket}/{prefix}/{hash}.tar.gz
	Bucket string
	Prefix string

	// SSM parameter receiving the bundle SHA256 hash
	SSMParam string
}

type Publisher struct {
	opts   PublisherOptions
	s3     objectPutter
	ssm    parameterPutter
	logger log.Logger
}

// NewPublisher creates a Publisher using clients built from awsCfg.
func NewPublisher(awsCfg aws.Config, opts PublisherOptions) (*Publisher, error) {
	return newPublisher(opts, s3.NewFromConfig(awsCfg), ssm.NewFromConfig(awsCfg))
}

func newPublisher(opts PublisherOptions, s3c objectPutter, ssmc parameterPutter) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, xerrors.New("Bucket is required")
	}
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Publisher{
		opts:   opts,
		s3:     s3c,
		ssm:    ssmc,
		logger: opts.Logger.With("component", "export"),
	}, nil
}

// Key returns the S3 object key for a given hash
func (p *Publisher) Key(hash string) string {
	if p.opts.Prefix != "" {
		return fmt.Sprintf("%s/%s.tar.gz", p.opts.Prefix, hash)
	}
	return fmt.Sprintf("%s.tar.gz", hash)
}

// Publish verifies b, uploads it, then points the SSM parameter at its
// hash. The pointer is only written after the upload succeeded.
func (p *Publisher) Publish(ctx context.Context, b *Bundle) error {
	if err := Verify(b); err != nil {
		return xerrors.Wrap(err, "verify bundle")
	}
	key := p.Key(b.SHA256)

	p.logger.Info(ctx, "uploading site bundle",
		"bucket", p.opts.Bucket,
		"key", key,
		"bytes", len(b.Data),
		"build_id", b.Manifest.BuildID,
	)
	_, err := p.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(b.Data),
		ContentLength: aws.Int64(int64(len(b.Data))),
		ContentType:   aws.String("application/gzip"),
		Metadata: map[string]string{
			"build-id": b.Manifest.BuildID,
			"sha256":   b.SHA256,
		},
	})
	if err != nil {
		return xerrors.Wrapf(err, "put S3 object s3://%s/%s", p.opts.Bucket, key)
	}

	_, err = p.ssm.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(p.opts.SSMParam),
		Value:     aws.String(b.SHA256),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return xerrors.Wrapf(err, "put SSM parameter %s", p.opts.SSMParam)
	}

	p.logger.Info(ctx, "site bundle released",
		"ssm_param", p.opts.SSMParam,
		"sha256", b.SHA256,
	)
	return nil
}

// WriteFile stores b at path for a dry run.
func WriteFile(path string, b *Bundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return xerrors.Wrapf(err, "write %s", path)
	}
	return nil
}
