// Package s3 stores photo copies in an S3-compatible bucket (AWS, R2, MinIO).
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/m3rciful/reviewbot/core/logger"
	"github.com/m3rciful/reviewbot/internal/photos"
)

// Options configures the bucket client.
type Options struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	// PublicACL applies the public-read canned ACL on Publish. Leave it off
	// for buckets that are public through a policy (R2 public buckets).
	PublicACL bool
	KeyPrefix string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	PutObjectAcl(ctx context.Context, in *awss3.PutObjectAclInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectAclOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Store uploads objects and builds their public URLs.
type Store struct {
	api  objectAPI
	opts Options
}

// New builds a store. Static credentials are used when AccessKey is set,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, opts Options) (*Store, error) {
	loaders := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{api: client, opts: opts}, nil
}

// Key returns the object key for name.
func (s *Store) Key(name string) string {
	prefix := strings.Trim(s.opts.KeyPrefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// URL returns the public URL for key.
func (s *Store) URL(key string) string {
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + key
}

// Upload implements photos.ObjectStore.
func (s *Store) Upload(ctx context.Context, localPath, name, mimeType string) (photos.Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return photos.Object{}, fmt.Errorf("s3: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := s.Key(name)
	_, err = s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return photos.Object{}, fmt.Errorf("s3: put %s: %w", key, err)
	}
	logger.Debug(ctx, "store.objects", "object.upload",
		slog.String("status", "ok"),
		slog.String("backend", "s3"),
		slog.String("object_key", key),
	)
	return photos.Object{ID: key, URL: s.URL(key)}, nil
}

// Publish implements photos.ObjectStore.
func (s *Store) Publish(ctx context.Context, obj photos.Object) (photos.Object, error) {
	if s.opts.PublicACL {
		_, err := s.api.PutObjectAcl(ctx, &awss3.PutObjectAclInput{
			Bucket: aws.String(s.opts.Bucket),
			Key:    aws.String(obj.ID),
			ACL:    types.ObjectCannedACLPublicRead,
		})
		if err != nil {
			return photos.Object{}, fmt.Errorf("s3: acl %s: %w", obj.ID, err)
		}
	}
	obj.URL = s.URL(obj.ID)
	return obj, nil
}

// Delete implements photos.ObjectStore.
func (s *Store) Delete(ctx context.Context, obj photos.Object) error {
	_, err := s.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(obj.ID),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", obj.ID, err)
	}
	return nil
}
