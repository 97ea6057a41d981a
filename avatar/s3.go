// Package avatar stores avatar images in an S3 compatible bucket.
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/spacegame/users"
)

const DefaultPresignTTL = 15 * time.Minute

type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type GetPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput,
		optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Serve avatars from <PublicBaseUrl>/<key> instead of presigned urls.
	PublicBaseUrl string
	PresignTTL    time.Duration
	UsePathStyle  bool
}

type S3Relay struct {
	Putter    ObjectPutter
	Presigner GetPresigner

	Bucket        string
	PublicBaseUrl string
	PresignTTL    time.Duration

	Now func() time.Time
}

var _ users.AvatarRelay = (*S3Relay)(nil)

func NewS3Relay(ctx context.Context, cfg S3Config) (*S3Relay, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Relay{
		Putter:        client,
		Presigner:     s3.NewPresignClient(client),
		Bucket:        cfg.Bucket,
		PublicBaseUrl: cfg.PublicBaseUrl,
		PresignTTL:    cfg.PresignTTL,
	}, nil
}

func (r *S3Relay) storageKey(fileName string) string {
	d := time.Now().UTC()
	if r.Now != nil {
		d = r.Now()
	}
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("avatars/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (r *S3Relay) Upload(ctx context.Context, avatar users.Avatar) (string, error) {
	key := r.storageKey(avatar.FileName)
	in := &s3.PutObjectInput{
		Bucket:        aws.String(r.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(avatar.Data),
		ContentLength: aws.Int64(int64(len(avatar.Data))),
	}
	if avatar.ContentType != "" {
		in.ContentType = aws.String(avatar.ContentType)
	}
	if _, err := r.Putter.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func (r *S3Relay) ResolveUrl(ctx context.Context, key string) (string, error) {
	if r.PublicBaseUrl != "" {
		return strings.TrimSuffix(r.PublicBaseUrl, "/") + "/" + key, nil
	}

	ttl := r.PresignTTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	req, err := r.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}
