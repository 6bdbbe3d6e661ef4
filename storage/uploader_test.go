package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeBucket struct {
	name  string
	fails int
	calls int
	keys  []string
}

func (b *fakeBucket) Name() string { return b.name }

func (b *fakeBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	b.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.fails < 0 || b.calls <= b.fails {
		return errors.New("bucket unavailable")
	}
	b.keys = append(b.keys, key)
	return nil
}

func (b *fakeBucket) URL(key string) string {
	return "https://storage.example.com/" + b.name + "/" + key
}

func fastRetries() Option {
	return WithPolicy(backoff.Constant(
		backoff.WithInterval(time.Millisecond),
		backoff.WithMaxRetries(2),
	))
}

func TestUpload(t *testing.T) {
	forms := &fakeBucket{name: "forms"}
	u := NewUploader([]Bucket{forms}, fastRetries())
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }

	url, err := u.Upload(context.Background(), FormImagesPrefix, pngData)
	require.NoError(t, err)

	require.Len(t, forms.keys, 1)
	key := forms.keys[0]
	assert.True(t, strings.HasPrefix(key, "form-images/1700000000000_"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "https://storage.example.com/forms/"+key, url)
}

func TestUpload_FallsBackToNextBucket(t *testing.T) {
	forms := &fakeBucket{name: "forms", fails: -1}
	public := &fakeBucket{name: "public"}
	u := NewUploader([]Bucket{forms, public}, fastRetries())

	url, err := u.Upload(context.Background(), FormResponsesPrefix, pngData)
	require.NoError(t, err)

	assert.Equal(t, 1, forms.calls)
	require.Len(t, public.keys, 1)
	assert.True(t, strings.HasPrefix(url, "https://storage.example.com/public/form-responses/"))
}

func TestUpload_RetriesTransientFailure(t *testing.T) {
	forms := &fakeBucket{name: "forms", fails: 1}
	u := NewUploader([]Bucket{forms}, fastRetries())

	_, err := u.Upload(context.Background(), FormImagesPrefix, pngData)
	require.NoError(t, err)
	assert.Equal(t, 2, forms.calls)
}

func TestUpload_PersistentFailure(t *testing.T) {
	forms := &fakeBucket{name: "forms", fails: -1}
	public := &fakeBucket{name: "public", fails: -1}
	u := NewUploader([]Bucket{forms, public}, fastRetries())

	url, err := u.Upload(context.Background(), FormImagesPrefix, pngData)

	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, PlaceholderURL, url)
	assert.Greater(t, forms.calls, 1, "retried")
	assert.Equal(t, forms.calls, public.calls)
}

func TestUpload_CanceledContext(t *testing.T) {
	forms := &fakeBucket{name: "forms"}
	u := NewUploader([]Bucket{forms}, fastRetries())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	url, err := u.Upload(ctx, FormImagesPrefix, pngData)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, PlaceholderURL, url)
}

func TestValidate(t *testing.T) {
	u := NewUploader(nil, WithMaxSize(64))

	tests := []struct {
		name    string
		data    []byte
		wantErr error
		mime    string
	}{
		{name: "png", data: pngData, mime: "image/png"},
		{name: "gif", data: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), mime: "image/gif"},
		{name: "jpeg", data: []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), mime: "image/jpeg"},
		{name: "empty", data: nil, wantErr: ErrInvalidType},
		{name: "text", data: []byte("just some text"), wantErr: ErrInvalidType},
		{name: "pdf", data: []byte("%PDF-1.4\n"), wantErr: ErrInvalidType},
		{name: "too large", data: append(append([]byte{}, pngData...), make([]byte, 64)...), wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := u.Validate(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mime, mime.String())
		})
	}
}

func TestDiskBucket(t *testing.T) {
	dir := t.TempDir()
	b := NewDiskBucket(dir, "/uploads/", "forms")

	require.NoError(t, b.Put(context.Background(), "form-images/a.png", pngData, "image/png"))

	data, err := os.ReadFile(filepath.Join(dir, "forms", "form-images", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, pngData, data)
	assert.Equal(t, "/uploads/forms/form-images/a.png", b.URL("form-images/a.png"))

	assert.Error(t, b.Put(context.Background(), "../escape.png", pngData, "image/png"))
	assert.Error(t, b.Put(context.Background(), "", pngData, "image/png"))
}

func TestDiskUploader(t *testing.T) {
	dir := t.TempDir()
	u := NewDiskUploader(dir, "/uploads", fastRetries())

	url, err := u.Upload(context.Background(), FormImagesPrefix, pngData)
	require.NoError(t, err)

	rel := strings.TrimPrefix(url, "/uploads/")
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.NoError(t, err)
}
