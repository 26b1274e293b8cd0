package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/kozaktomas/photo-search/internal/constants"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Presigner is the subset of the S3 presign client used by S3Store.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements BlobStore on S3.
type S3Store struct {
	client    S3API
	presigner Presigner
	bucket    string
}

// NewS3Store creates a store whose default bucket is bucket.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return NewS3StoreWithAPI(client, s3.NewPresignClient(client), bucket)
}

// NewS3StoreWithAPI creates a store from explicit client interfaces.
func NewS3StoreWithAPI(client S3API, presigner Presigner, bucket string) *S3Store {
	return &S3Store{client: client, presigner: presigner, bucket: bucket}
}

// Location returns the address of key in the default bucket.
func (s *S3Store) Location(key string) Location {
	return Location{Bucket: s.bucket, Key: key}
}

// PresignPut returns a write URL for key.
func (s *S3Store) PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignGet returns a read URL for key.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// isNotFound matches both the modeled NoSuchKey error and bare 404 codes.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
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

// Get reads the object bytes.
func (s *S3Store) Get(ctx context.Context, loc Location) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get %s: %w", loc, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", loc, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return data, nil
}

// Put writes the object bytes.
func (s *S3Store) Put(ctx context.Context, loc Location, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(loc.Bucket),
		Key:           aws.String(loc.Key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", loc, err)
	}
	return nil
}

// listVersions collects every version and delete marker whose key equals loc.Key.
// The listing uses the key as prefix, so other keys sharing it are filtered out.
func (s *S3Store) listVersions(ctx context.Context, loc Location) ([]types.ObjectIdentifier, error) {
	var (
		ids       []types.ObjectIdentifier
		keyMarker *string
		verMarker *string
	)
	for {
		out, err := s.client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(loc.Bucket),
			Prefix:          aws.String(loc.Key),
			KeyMarker:       keyMarker,
			VersionIdMarker: verMarker,
		})
		if err != nil {
			return nil, fmt.Errorf("list versions %s: %w", loc, err)
		}

		for _, v := range out.Versions {
			if aws.ToString(v.Key) == loc.Key {
				ids = append(ids, types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
			}
		}
		for _, m := range out.DeleteMarkers {
			if aws.ToString(m.Key) == loc.Key {
				ids = append(ids, types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			return ids, nil
		}
		keyMarker, verMarker = out.NextKeyMarker, out.NextVersionIdMarker
	}
}

// DeleteAllVersions removes every version of the object.
func (s *S3Store) DeleteAllVersions(ctx context.Context, loc Location) error {
	ids, err := s.listVersions(ctx, loc)
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += constants.DeleteObjectsBatchSize {
		batch := ids[start:min(start+constants.DeleteObjectsBatchSize, len(ids))]
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(loc.Bucket),
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete versions %s: %w", loc, err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("delete versions %s: %d failed, first: %s %s",
				loc, len(out.Errors), aws.ToString(first.Code), aws.ToString(first.Message))
		}
	}
	return nil
}
