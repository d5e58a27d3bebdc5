// Package media stores uploaded post images under the media root and maps them to public URLs.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// UploadDir is the directory under the media root that holds post images.
const UploadDir = "blog_image"

var (
	// ErrInvalidImage is returned when the upload does not decode as a supported image.
	ErrInvalidImage = errors.New("media: not a supported image")
	// ErrEmptyFile is returned for zero-length uploads.
	ErrEmptyFile = errors.New("media: empty file")
)

// TooLargeError reports an upload above the configured size limit.
type TooLargeError struct {
	LimitMB int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("media: image larger than %dMB", e.LimitMB)
}

// Upload is an image that has been read and decoded but not yet written.
type Upload struct {
	Filename string
	Format   string
	Width    int
	Height   int
	data     []byte
}

// Store writes images below Root and serves them under URL.
type Store struct {
	root     string
	url      string
	maxBytes int64
}

// NewStore creates a Store. url is the public prefix, e.g. "/media/".
func NewStore(root, url string, maxUploadMB int) *Store {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Store{
		root:     root,
		url:      "/" + strings.Trim(url, "/") + "/",
		maxBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Open reads a multipart upload and checks it is a decodable image within the size limit.
func (s *Store) Open(fh *multipart.FileHeader) (*Upload, error) {
	if fh.Size > s.maxBytes {
		return nil, &TooLargeError{LimitMB: int(s.maxBytes / (1024 * 1024))}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Read(fh.Filename, f)
}

// Read consumes r and checks it is a decodable image within the size limit.
func (s *Store) Read(filename string, r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, &TooLargeError{LimitMB: int(s.maxBytes / (1024 * 1024))}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidImage
	}
	return &Upload{
		Filename: filepath.Base(filename),
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		data:     data,
	}, nil
}

// Save writes the upload into a date bucket and returns its media-relative path.
func (s *Store) Save(u *Upload, at time.Time) (string, error) {
	rel := path.Join(UploadDir, at.Format("2006"), at.Format("01"), at.Format("02"), uuid.NewString()+extensionFor(u))
	dst := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.WriteFile(dst, u.data, 0o644); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return rel, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	if err := os.Remove(s.Path(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path maps a media-relative path to the filesystem.
func (s *Store) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/" + rel)))
}

// URL returns the site-relative URL for a stored file, or "" when rel is empty.
func (s *Store) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.url + strings.TrimPrefix(rel, "/")
}

// AbsoluteURL returns the full URL for a stored file as seen from the given scheme and host.
func (s *Store) AbsoluteURL(scheme, host, rel string) string {
	u := s.URL(rel)
	if u == "" || host == "" {
		return u
	}
	return scheme + "://" + host + u
}

func extensionFor(u *Upload) string {
	switch u.Format {
	case "jpeg":
		return ".jpg"
	case "png", "gif", "webp", "bmp":
		return "." + u.Format
	}
	if ext := strings.ToLower(filepath.Ext(u.Filename)); ext != "" {
		return ext
	}
	return ".img"
}
