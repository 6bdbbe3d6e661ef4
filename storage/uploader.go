package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/lestrrat-go/backoff/v2"

	"github.com/mbolis/quick-forms/log"
)

const (
	DefaultMaxSize = 5 << 20

	// PlaceholderURL stands in for an image whose upload failed for good.
	PlaceholderURL = "https://placehold.co/600x400?text=Image+Upload+Failed"

	FormImagesPrefix    = "form-images"
	FormResponsesPrefix = "form-responses"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader validates images and stores them in the first bucket that
// accepts them.
type Uploader struct {
	buckets []Bucket
	maxSize int64
	policy  backoff.Policy
	now     func() time.Time
}

type Option func(*Uploader)

func WithMaxSize(n int64) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.maxSize = n
		}
	}
}

func WithPolicy(p backoff.Policy) Option {
	return func(u *Uploader) { u.policy = p }
}

// NewUploader tries buckets in the given order.
func NewUploader(buckets []Bucket, opts ...Option) *Uploader {
	u := &Uploader{
		buckets: buckets,
		maxSize: DefaultMaxSize,
		policy: backoff.Exponential(
			backoff.WithMinInterval(200*time.Millisecond),
			backoff.WithMaxInterval(2*time.Second),
			backoff.WithJitterFactor(0.1),
			backoff.WithMaxRetries(2),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// NewDiskUploader is the default layout: a "forms" bucket with a "public"
// fallback, both under dir.
func NewDiskUploader(dir, baseURL string, opts ...Option) *Uploader {
	return NewUploader([]Bucket{
		NewDiskBucket(dir, baseURL, "forms"),
		NewDiskBucket(dir, baseURL, "public"),
	}, opts...)
}

func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// Validate checks size and sniffed content type, and returns the detected
// MIME type.
func (u *Uploader) Validate(data []byte) (*mimetype.MIME, error) {
	if int64(len(data)) > u.maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), u.maxSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidType)
	}

	mime := mimetype.Detect(data)
	for m := mime; m != nil; m = m.Parent() {
		if _, ok := allowedTypes[m.String()]; ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidType, mime.String())
}

// Upload stores data under prefix and returns its public URL. When every
// bucket keeps failing after the retries, it returns PlaceholderURL along
// with an error wrapping ErrUploadFailed.
func (u *Uploader) Upload(ctx context.Context, prefix string, data []byte) (string, error) {
	mime, err := u.Validate(data)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%d_%s%s", prefix, u.now().UnixMilli(), id, allowedTypes[mime.String()])

	var errs *multierror.Error
	b := u.policy.Start(ctx)
	for backoff.Continue(b) {
		for _, bucket := range u.buckets {
			err := bucket.Put(ctx, key, data, mime.String())
			if err == nil {
				return bucket.URL(key), nil
			}
			log.WithFields(log.Fields{"bucket": bucket.Name(), "key": key}).
				Warnf("storage.upload.put: %s", err)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", bucket.Name(), err))
		}
	}

	if err := ctx.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err = errs.ErrorOrNil(); err == nil {
		err = errors.New("no bucket attempted")
	}
	return PlaceholderURL, fmt.Errorf("%w: %v", ErrUploadFailed, err)
}
