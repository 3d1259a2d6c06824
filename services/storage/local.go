package storagesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
)

// Local keeps attachments on disk under dir. The api server exposes dir at publicURL.
type Local struct {
	dir       string
	publicURL string
}

var _ core.FileStorage = (*Local)(nil)

func NewLocal(conf core.StorageConfig) (*Local, error) {
	if err := os.MkdirAll(conf.LocalDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &Local{dir: conf.LocalDir, publicURL: strings.TrimRight(conf.PublicURL, "/")}, nil
}

func (l *Local) Upload(_ context.Context, folder string, file core.Attachment) (string, error) {
	name := uuid.New().String() + "-" + path.Base(filepath.ToSlash(file.Filename))
	if err := os.MkdirAll(filepath.Join(l.dir, folder), 0o755); err != nil {
		return "", errors.Wrap(err, "creating folder")
	}

	f, err := os.Create(filepath.Join(l.dir, folder, name))
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()
	if _, err = io.Copy(f, file.Content); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	return l.publicURL + "/" + folder + "/" + name, nil
}

// Delete removes the file behind url. An unknown url reports false.
func (l *Local) Delete(_ context.Context, url string) (bool, error) {
	rel := strings.TrimPrefix(url, l.publicURL+"/")
	if rel == url || strings.Contains(rel, "..") {
		return false, nil
	}
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "removing file")
	}
	return true, nil
}
