package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/imagefeed/backend/internal/media"
)

type uploaderStub struct {
	input *s3.PutObjectInput
	body  string
	out   *manager.UploadOutput
	err   error
}

func (u *uploaderStub) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	u.input = input
	if input.Body != nil {
		data, _ := io.ReadAll(input.Body)
		u.body = string(data)
	}
	if u.err != nil {
		return nil, u.err
	}
	return u.out, nil
}

func TestS3StorageUploadWithPublicBaseURL(t *testing.T) {
	stub := &uploaderStub{out: &manager.UploadOutput{Location: "http://minio:9000/media/u1/cat.png"}}
	store := NewS3StorageWithUploader(stub, "media", "https://cdn.example.com/")

	asset, err := store.Upload(context.Background(), media.Upload{
		Key:         "/u1/cat.png",
		FileName:    "cat.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if asset.URL != "https://cdn.example.com/u1/cat.png" {
		t.Fatalf("unexpected url: %s", asset.URL)
	}
	if asset.FileID != "u1/cat.png" {
		t.Fatalf("unexpected file id: %s", asset.FileID)
	}
	if aws.ToString(stub.input.Bucket) != "media" || aws.ToString(stub.input.Key) != "u1/cat.png" {
		t.Fatalf("unexpected put input: bucket=%s key=%s", aws.ToString(stub.input.Bucket), aws.ToString(stub.input.Key))
	}
	if aws.ToString(stub.input.ContentType) != "image/png" {
		t.Fatalf("unexpected content type: %s", aws.ToString(stub.input.ContentType))
	}
	if stub.body != "png-bytes" {
		t.Fatalf("unexpected body: %q", stub.body)
	}
}

func TestS3StorageUploadEscapesFileNameInURL(t *testing.T) {
	stub := &uploaderStub{out: &manager.UploadOutput{}}
	store := NewS3StorageWithUploader(stub, "media", "https://cdn.example.com")

	key := "u1/p1_summer party #1?.png"
	asset, err := store.Upload(context.Background(), media.Upload{Key: key, Body: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if asset.URL != "https://cdn.example.com/u1/p1_summer%20party%20%231%3F.png" {
		t.Fatalf("unexpected url: %s", asset.URL)
	}
	parsed, err := url.Parse(asset.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if parsed.Path != "/"+key || parsed.RawQuery != "" || parsed.Fragment != "" {
		t.Fatalf("url does not address the stored key: path=%q query=%q fragment=%q", parsed.Path, parsed.RawQuery, parsed.Fragment)
	}
	if aws.ToString(stub.input.Key) != key {
		t.Fatalf("object key should stay unescaped, got %s", aws.ToString(stub.input.Key))
	}
}

func TestS3StorageUploadFallsBackToLocation(t *testing.T) {
	stub := &uploaderStub{out: &manager.UploadOutput{Location: "http://minio:9000/media/u1/cat.png"}}
	store := NewS3StorageWithUploader(stub, "media", "")

	asset, err := store.Upload(context.Background(), media.Upload{Key: "u1/cat.png", Body: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.URL != "http://minio:9000/media/u1/cat.png" {
		t.Fatalf("unexpected url: %s", asset.URL)
	}
}

func TestS3StorageUploadErrors(t *testing.T) {
	boom := errors.New("access denied")
	store := NewS3StorageWithUploader(&uploaderStub{err: boom}, "media", "")

	if _, err := store.Upload(context.Background(), media.Upload{Key: "k", Body: strings.NewReader("x")}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}

	if _, err := store.Upload(context.Background(), media.Upload{Key: "/"}); err == nil {
		t.Fatal("expected error for empty key")
	}

	var nilStore *S3Storage
	if _, err := nilStore.Upload(context.Background(), media.Upload{Key: "k"}); !errors.Is(err, media.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
