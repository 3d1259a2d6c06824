package core

import (
	"context"
	"io"
)

// Attachment is an uploaded file on its way to a FileStorage.
type Attachment struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// FileStorage persists report attachments and returns their public URL.
type FileStorage interface {
	Upload(ctx context.Context, folder string, file Attachment) (url string, err error)
	// Delete removes the file behind url. It reports false when the host did not remove anything.
	Delete(ctx context.Context, url string) (bool, error)
}
