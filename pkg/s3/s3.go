// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package s3 implements an object source backed by Amazon S3 or any
// S3-compatible service such as MinIO or LocalStack.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Client is the subset of the S3 API used by the object source.
type Client interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 is an object source that lists and mutates S3 buckets.
type S3 struct {
	client Client
}

// New creates a new S3 object source. Configure must be called before use
// unless a client is injected with NewWithClient.
func New() *S3 {
	return &S3{}
}

// NewWithClient creates an S3 object source around an existing client.
func NewWithClient(client Client) *S3 {
	return &S3{client: client}
}

// Configure sets up the backend with the necessary settings.
// Settings:
//   - region: AWS region (defaults to the SDK's resolution chain)
//   - endpoint: custom endpoint for S3-compatible services (optional)
//   - accessKey, secretKey: static credentials (optional, both or neither)
//   - usePathStyle: "true" to force path-style addressing (optional, implied by endpoint)
func (s *S3) Configure(settings map[string]string) error {
	ctx := context.Background()

	var opts []func(*awsconfig.LoadOptions) error
	if region := settings["region"]; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	accessKey, secretKey := settings["accessKey"], settings["secretKey"]
	if (accessKey == "") != (secretKey == "") {
		return fmt.Errorf("%w: accessKey and secretKey must be set together", common.ErrNotConfigured)
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		return common.ErrRegionNotSet
	}

	endpoint := settings["endpoint"]
	pathStyle := endpoint != ""
	if v, ok := settings["usePathStyle"]; ok && v != "" {
		pathStyle, err = strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid usePathStyle %q: %w", v, err)
		}
	}

	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if pathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return nil
}

// List pages through ListObjectsV2 and returns every object in the bucket.
func (s *S3) List(ctx context.Context, bucket string) ([]common.ObjectRef, error) {
	if s.client == nil {
		return nil, common.ErrNotConfigured
	}

	refs := make([]common.ObjectRef, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isBucketNotFound(err) {
				return nil, fmt.Errorf("%w: %s", common.ErrBucketNotFound, bucket)
			}
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			refs = append(refs, common.ObjectRef{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return refs, nil
}

// Delete removes an object. S3 deletes are idempotent, so the object is
// probed first to report a missing key as ErrObjectNotFound.
func (s *S3) Delete(ctx context.Context, bucket, key string) error {
	if s.client == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
		}
		return fmt.Errorf("s3 head object: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
		}
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

// Put uploads an object. The body is buffered so the request can be signed
// and retried.
func (s *S3) Put(ctx context.Context, bucket, key string, data io.Reader) error {
	if s.client == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isBucketNotFound(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}
