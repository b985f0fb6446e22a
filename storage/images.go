package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/menu/config"
)

// PublicPrefix is the URL path under which stored images are served.
const PublicPrefix = "/uploads/"

var (
	ErrTooLarge        = errors.New("image is too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// sniffLen is how much http.DetectContentType looks at.
const sniffLen = 512

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore keeps uploaded meal images on the local disk.
type ImageStore struct {
	dir      string
	maxBytes int64
}

func NewImageStore(cfg config.UploadConfig) (*ImageStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &ImageStore{dir: cfg.Dir, maxBytes: cfg.MaxBytes}, nil
}

func (s *ImageStore) Dir() string { return s.dir }

func (s *ImageStore) MaxBytes() int64 { return s.maxBytes }

// Save stores r under a random name and returns its public path. The type
// is decided by sniffing the content, never by the client's file name.
// A failed or oversized write leaves no file behind.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	head = head[:n]
	if int64(n) > s.maxBytes {
		return "", ErrTooLarge
	}

	ext, ok := extensions[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.dir, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	content := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(f, io.LimitReader(content, s.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		if removeErr := os.Remove(dst); removeErr != nil {
			logrus.WithError(removeErr).WithField("file", dst).Warn("failed to remove partial upload")
		}
		return "", err
	}

	return PublicPrefix + name, nil
}

// Remove deletes an image previously returned by Save. Anything that does
// not point into the upload dir (external URLs, empty values) is ignored.
func (s *ImageStore) Remove(publicPath string) {
	if !strings.HasPrefix(publicPath, PublicPrefix) {
		return
	}
	name := path.Base(publicPath)
	if name != strings.TrimPrefix(publicPath, PublicPrefix) || name == "." || name == "/" {
		return
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).WithField("image", publicPath).Warn("failed to remove image")
	}
}

// Handler serves stored images under PublicPrefix.
func (s *ImageStore) Handler() http.Handler {
	return http.StripPrefix(PublicPrefix, http.FileServer(http.Dir(s.dir)))
}
