// Package storage uploads chat attachments to Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

type Uploader struct {
	bucket string
	client *storage.Client
}

func NewUploader(ctx context.Context, bucket string) (*Uploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Uploader{bucket: bucket, client: client}, nil
}

// Upload writes r to a fresh object under chat/ and returns its public
// URL. filename is only used for its extension.
func (u *Uploader) Upload(ctx context.Context, r io.Reader, contentType, filename string) (string, error) {
	name := fmt.Sprintf("chat/%s%s", uuid.NewString(), path.Ext(filename))
	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, name), nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}
