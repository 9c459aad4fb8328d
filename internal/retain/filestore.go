package retain

import (
	"os"
)

// FileStore persists the retention blob in a file. On the Walter board the
// blob lives in RTC retention memory; a Linux host uses a file on disk
// instead.
type FileStore struct {
	Path string
}

// Store writes the blob atomically by renaming a temporary file.
func (s *FileStore) Store(blob []byte) error {
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Load reads the blob. A missing file yields an empty blob.
func (s *FileStore) Load() ([]byte, error) {
	blob, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return blob, err
}
