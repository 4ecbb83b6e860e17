package store

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when an artifact key does not exist.
var ErrNotFound = errors.New("artifact not found")

const jsonContentType = "application/json; charset=utf-8"

type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Artifacts reads and writes the pipeline's JSON snapshots in one bucket.
type Artifacts struct {
	Client S3API
	Bucket string
}

func NewArtifacts(cl S3API, bucket string) *Artifacts {
	return &Artifacts{Client: cl, Bucket: bucket}
}

// GetBytes returns the object body, or ErrNotFound.
func (a *Artifacts) GetBytes(ctx context.Context, key string) ([]byte, error) {
	out, err := a.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(ErrNotFound, "s3://%s/%s", a.Bucket, key)
		}
		return nil, errors.Wrapf(err, "get s3://%s/%s", a.Bucket, key)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read s3://%s/%s", a.Bucket, key)
	}
	return b, nil
}

// GetJSON decodes the object at key into v.
func (a *Artifacts) GetJSON(ctx context.Context, key string, v any) error {
	b, err := a.GetBytes(ctx, key)
	if err != nil {
		return err
	}
	if err := sonic.ConfigStd.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "invalid JSON in s3://%s/%s", a.Bucket, key)
	}
	return nil
}

// PutJSON encodes v with sorted map keys so identical input gives identical bytes.
func (a *Artifacts) PutJSON(ctx context.Context, key string, v any) error {
	b, err := EncodeJSON(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return a.PutBytes(ctx, key, b, jsonContentType)
}

func (a *Artifacts) PutBytes(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(err, "put s3://%s/%s", a.Bucket, key)
	}
	return nil
}

func EncodeJSON(v any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
