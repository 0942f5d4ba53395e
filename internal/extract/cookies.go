package extract

import (
	"errors"
	"io/fs"
	"os"
)

// CookieStager stages request-supplied cookie blobs into transient files for
// yt-dlp's --cookies flag, implementing app.CredentialStager. The file lives
// for exactly one request; the cleanup func is the scoped release and must be
// invoked on every exit path.
type CookieStager struct {
	dir string
}

// NewCookieStager stages cookie files under dir.
func NewCookieStager(dir string) *CookieStager { return &CookieStager{dir: dir} }

// Stage writes blob to a fresh transient file and returns its path plus a
// cleanup that removes it. Removing an already-removed file is success.
func (s *CookieStager) Stage(blob string) (string, func() error, error) {
	f, err := os.CreateTemp(s.dir, "cookies-*.txt")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if _, err := f.WriteString(blob); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return path, cleanup, nil
}
