package template

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oriys/golem/internal/domain"
)

// s3Client is the subset of *s3.Client used by BlobStore, so tests can
// substitute a fake without reaching into a real AWS account.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// BlobStore is a Store that keeps wasm bytes in an S3-compatible object
// store, content-addressed by key, and delegates version/metadata
// bookkeeping to an inner Store (e.g. MemoryStore or PostgresStore) so
// large artifacts never round-trip through the relational/in-memory
// layer. This is the natural home for the teacher's otherwise-unwired
// AWS SDK dependency (see DESIGN.md): large WASM binaries are the one
// artifact in this system big enough to warrant blob storage.
type BlobStore struct {
	inner  Store
	client s3Client
	bucket string
}

// NewBlobStore loads AWS config the way the teacher's credential
// plumbing does (default credential chain, region from environment),
// then wraps it around inner for metadata bookkeeping.
func NewBlobStore(ctx context.Context, bucket string, inner Store) (*BlobStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("template: load aws config: %w", err)
	}
	return &BlobStore{inner: inner, client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (b *BlobStore) objectKey(contentID string) string {
	return "templates/" + contentID + ".wasm"
}

func (b *BlobStore) Put(ctx context.Context, id domain.TemplateID, account domain.AccountID, name string, wasmBytes []byte) (*domain.Template, error) {
	hash := domain.ContentHash(wasmBytes)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(hash)),
		Body:   bytes.NewReader(wasmBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("template: s3 put: %w", err)
	}
	return b.inner.Put(ctx, id, account, name, wasmBytes)
}

func (b *BlobStore) hydrate(ctx context.Context, t *domain.Template) (*domain.Template, error) {
	if t == nil || t.ContentID == "" {
		return t, nil
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.objectKey(t.ContentID))})
	if err != nil {
		return nil, fmt.Errorf("template: s3 get: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	t.WasmBytes = data
	return t, nil
}

func (b *BlobStore) Get(ctx context.Context, id domain.TemplateID, version int) (*domain.Template, error) {
	t, err := b.inner.Get(ctx, id, version)
	if err != nil {
		return nil, err
	}
	return b.hydrate(ctx, t)
}

func (b *BlobStore) GetLatest(ctx context.Context, id domain.TemplateID) (*domain.Template, error) {
	t, err := b.inner.GetLatest(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.hydrate(ctx, t)
}

func (b *BlobStore) Find(ctx context.Context, account domain.AccountID, nameFilter string) ([]*domain.Template, error) {
	return b.inner.Find(ctx, account, nameFilter)
}

func (b *BlobStore) Metadata(ctx context.Context, id domain.TemplateID) ([]domain.Template, error) {
	return b.inner.Metadata(ctx, id)
}
