// Package storetest provides an in-memory S3 double for stage tests.
package storetest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bytedance/sonic"
)

// MemS3 keeps objects in memory, keyed by object key.
type MemS3 struct {
	mu           sync.Mutex
	Objects      map[string][]byte
	ContentTypes map[string]string
	// PutErr, when set, fails every PutObject.
	PutErr error
}

func NewMemS3() *MemS3 {
	return &MemS3{Objects: map[string][]byte{}, ContentTypes: map[string]string{}}
}

func (m *MemS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (m *MemS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutErr != nil {
		return nil, m.PutErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[aws.ToString(in.Key)] = b
	m.ContentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

// PutJSON seeds key with v encoded as JSON; it panics on encode errors.
func (m *MemS3) PutJSON(key string, v any) {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = b
}

// Get returns the stored bytes for key, or nil.
func (m *MemS3) Get(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Objects[key]
}
