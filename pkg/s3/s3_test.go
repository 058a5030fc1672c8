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

package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

type mockS3Client struct {
	listObjectsV2Outputs []*s3.ListObjectsV2Output
	listObjectsV2Error   error
	listObjectsV2Calls   int
	headObjectError      error
	deleteObjectError    error
	putObjectError       error
	deletedKeys          []string
	putBodies            map[string]string
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.listObjectsV2Error != nil {
		return nil, m.listObjectsV2Error
	}
	out := m.listObjectsV2Outputs[m.listObjectsV2Calls]
	m.listObjectsV2Calls++
	return out, nil
}

func (m *mockS3Client) HeadObject(ctx context.Context, input *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.headObjectError != nil {
		return nil, m.headObjectError
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *mockS3Client) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.deleteObjectError != nil {
		return nil, m.deleteObjectError
	}
	m.deletedKeys = append(m.deletedKeys, aws.ToString(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putObjectError != nil {
		return nil, m.putObjectError
	}
	body, _ := io.ReadAll(input.Body)
	if m.putBodies == nil {
		m.putBodies = make(map[string]string)
	}
	m.putBodies[aws.ToString(input.Key)] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3_ListPaginates(t *testing.T) {
	mock := &mockS3Client{
		listObjectsV2Outputs: []*s3.ListObjectsV2Output{
			{
				Contents: []types.Object{
					{Key: aws.String("assignment1.txt"), Size: aws.Int64(19)},
				},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("token"),
			},
			{
				Contents: []types.Object{
					{Key: aws.String("assignment2.txt"), Size: aws.Int64(28)},
				},
				IsTruncated: aws.Bool(false),
			},
		},
	}
	source := NewWithClient(mock)

	refs, err := source.List(context.Background(), "bucket1")
	if err != nil {
		t.Fatalf("List() returned error: %v", err)
	}
	if mock.listObjectsV2Calls != 2 {
		t.Errorf("Expected 2 list calls, got %d", mock.listObjectsV2Calls)
	}
	if len(refs) != 2 || refs[0].Size != 19 || refs[1].Key != "assignment2.txt" {
		t.Errorf("Unexpected listing %+v", refs)
	}
}

func TestS3_ListErrors(t *testing.T) {
	source := NewWithClient(&mockS3Client{listObjectsV2Error: &types.NoSuchBucket{}})
	if _, err := source.List(context.Background(), "missing"); !errors.Is(err, common.ErrBucketNotFound) {
		t.Errorf("Expected ErrBucketNotFound, got %v", err)
	}

	cause := errors.New("connection reset")
	source = NewWithClient(&mockS3Client{listObjectsV2Error: cause})
	if _, err := source.List(context.Background(), "bucket1"); !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
}

func TestS3_Delete(t *testing.T) {
	mock := &mockS3Client{}
	source := NewWithClient(mock)

	if err := source.Delete(context.Background(), "bucket1", "assignment2.txt"); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if len(mock.deletedKeys) != 1 || mock.deletedKeys[0] != "assignment2.txt" {
		t.Errorf("Unexpected deletes %v", mock.deletedKeys)
	}
}

func TestS3_DeleteMissingKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"typed not found", &types.NotFound{}},
		{"api error code", &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockS3Client{headObjectError: tt.err}
			err := NewWithClient(mock).Delete(context.Background(), "bucket1", "gone.txt")
			if !errors.Is(err, common.ErrObjectNotFound) {
				t.Errorf("Expected ErrObjectNotFound, got %v", err)
			}
			if len(mock.deletedKeys) != 0 {
				t.Error("DeleteObject should not be called for a missing key")
			}
		})
	}
}

func TestS3_DeleteFailure(t *testing.T) {
	cause := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	err := NewWithClient(&mockS3Client{deleteObjectError: cause}).Delete(context.Background(), "bucket1", "k.txt")
	if err == nil || errors.Is(err, common.ErrObjectNotFound) {
		t.Errorf("Expected non-not-found error, got %v", err)
	}
}

func TestS3_Put(t *testing.T) {
	mock := &mockS3Client{}
	source := NewWithClient(mock)

	if err := source.Put(context.Background(), "bucket1", "assignment3.txt", strings.NewReader("33")); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}
	if mock.putBodies["assignment3.txt"] != "33" {
		t.Errorf("Unexpected body %q", mock.putBodies["assignment3.txt"])
	}

	if err := source.Put(context.Background(), "bucket1", "", strings.NewReader("x")); err == nil {
		t.Error("Expected empty key to be rejected")
	}
}

func TestS3_NotConfigured(t *testing.T) {
	source := New()
	ctx := context.Background()
	if _, err := source.List(ctx, "bucket1"); !errors.Is(err, common.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
	if err := source.Delete(ctx, "bucket1", "k"); !errors.Is(err, common.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestS3_ConfigureValidation(t *testing.T) {
	err := New().Configure(map[string]string{"region": "us-east-1", "accessKey": "AKIA"})
	if !errors.Is(err, common.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured for half-set credentials, got %v", err)
	}

	err = New().Configure(map[string]string{"region": "us-east-1", "usePathStyle": "maybe"})
	if err == nil {
		t.Error("Expected invalid usePathStyle to be rejected")
	}
}

func TestS3_ConfigureStatic(t *testing.T) {
	source := New()
	err := source.Configure(map[string]string{
		"region":    "us-east-1",
		"endpoint":  "http://localhost:9000",
		"accessKey": "minio",
		"secretKey": "minio123",
	})
	if err != nil {
		t.Fatalf("Configure() returned error: %v", err)
	}
	if source.client == nil {
		t.Error("Configure() should create a client")
	}
}
