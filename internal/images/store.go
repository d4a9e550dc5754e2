package images

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	MaxImages    = 5
	maxFileSize  = 5 << 20 // 5MB per file
	maxDimension = 1200
	jpegQuality  = 80
)

var (
	ErrNoImage       = errors.New("please upload at least one image")
	ErrTooManyImages = errors.New("maximum 5 images allowed")
	ErrNotAnImage    = errors.New("not an image")
	ErrTooLarge      = errors.New("image exceeds the 5MB limit")
)

// Store normalizes uploaded images and keeps them on disk. Files are
// downscaled to fit within maxDimension on each side (never enlarged) and
// re-encoded as JPEG, so the stored format and dimensions are bounded
// regardless of what the client sent.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create assets dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// ProcessUpload reads up to max files from the named multipart field and
// returns their stored references (/assets/<name>.jpg). On any failure the
// files written so far are removed.
func (s *Store) ProcessUpload(r *http.Request, field string, max int) ([]string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, ErrNoImage
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, ErrNoImage
	}
	if len(files) > max {
		return nil, ErrTooManyImages
	}

	var refs []string
	for _, fh := range files {
		ref, err := s.saveOne(fh)
		if err != nil {
			for _, stored := range refs {
				s.Remove(stored)
			}
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *Store) saveOne(fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxFileSize {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return "", ErrNotAnImage
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrNotAnImage
	}

	img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

	name := uuid.New().String() + ".jpg"
	path := filepath.Join(s.dir, name)
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return "/assets/" + name, nil
}

// IsValidationError reports whether err should be a 400 rather than a 500.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoImage) || errors.Is(err, ErrTooManyImages) ||
		errors.Is(err, ErrNotAnImage) || errors.Is(err, ErrTooLarge)
}

// Remove deletes a stored image by its reference. Best effort: a missing
// file is not an error.
func (s *Store) Remove(ref string) {
	name := strings.TrimPrefix(ref, "/assets/")
	if name == "" || strings.Contains(name, "/") {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, name))
}
