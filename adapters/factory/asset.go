package factory

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/artpar/cassette/domain/module"
	"golang.org/x/crypto/blake2b"
)

// ErrReleased is returned when content is requested from a released asset.
var ErrReleased = errors.New("asset released")

// FileAsset is a source file found by a factory. The scan keeps only the
// fingerprint; content is read and buffered on the first Content call. Close
// drops the buffer and the asset cannot be read again.
type FileAsset struct {
	module.SourceFile

	fsys fs.FS
	path string

	mu       sync.Mutex
	content  []byte
	released bool
}

// Path returns the root-relative path of the file.
func (a *FileAsset) Path() string {
	return a.path
}

// Accept implements module.Asset.
func (a *FileAsset) Accept(v module.Visitor) {
	v.VisitAsset(a)
}

// Content returns the file content, reading it on first use.
func (a *FileAsset) Content() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil, fmt.Errorf("read %s: %w", a.path, ErrReleased)
	}
	if a.content == nil {
		data, err := fs.ReadFile(a.fsys, a.path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", a.path, err)
		}
		a.content = data
	}
	return a.content, nil
}

// Close releases the buffered content.
func (a *FileAsset) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.content = nil
	a.released = true
	return nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// loadAsset fingerprints the file at p without keeping its content.
func loadAsset(fsys fs.FS, p, name string) (*FileAsset, error) {
	info, err := fs.Stat(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	return &FileAsset{
		SourceFile: module.SourceFile{
			Filename:    name,
			Fingerprint: Fingerprint(data),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
		},
		fsys: fsys,
		path: p,
	}, nil
}
