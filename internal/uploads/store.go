package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

var filenameSanitize = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ErrBadFileType rejects uploads that are not an allowed image type.
var ErrBadFileType = errors.New("invalid file type, allowed: png, jpg, jpeg, gif")

// Store writes headshot uploads to local disk and serves them under
// /uploads/headshots/. It stands in for an external file store; callers keep
// only the returned URL.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SaveHeadshot stores the upload under a collision-free name and returns its
// public URL path.
func (s *Store) SaveHeadshot(realtorID, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrBadFileType
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d_%s", realtorID, time.Now().UnixNano(),
		filenameSanitize.ReplaceAllString(filepath.Base(filename), "_"))
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return "/uploads/headshots/" + name, nil
}
