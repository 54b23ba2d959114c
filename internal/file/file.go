package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const DEFAULT_STORAGE_ROOT = "server_files"
const DEFAULT_RECEIVED_PREFIX = "received_"

var ErrFileNotFound = errors.New("file not found")
var ErrFileExists = errors.New("file already exists")

// ------------------------------------------------------ Storage ------------------------------------------------------

// Root is the directory under which the server resolves all requested filenames.
// It is shared by all sessions and performs no locking: concurrent writers to
// the same name race, and readers may observe partially written content.
type Root struct {
	fs  afero.Fs
	dir string
}

type Option func(*Root)

// WithFs sets the filesystem the root lives on. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *Root) {
		r.fs = fs
	}
}

// Confined restricts all resolved paths to the root directory, names trying
// to escape it (e.g. "../secret") resolve inside it instead.
func Confined() Option {
	return func(r *Root) {
		r.fs = afero.NewBasePathFs(r.fs, r.dir)
		r.dir = string(filepath.Separator)
	}
}

// NewRoot returns a storage root at dir. Options are applied in order.
func NewRoot(dir string, opts ...Option) *Root {
	r := &Root{fs: afero.NewOsFs(), dir: dir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the location of name under the root.
func (r *Root) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// Open opens the named file for reading. Returns ErrFileNotFound if the file
// does not exist or is not a regular file.
func (r *Root) Open(name string) (afero.File, int64, error) {
	path := r.Path(name)
	info, err := r.fs.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, 0, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	case err != nil:
		return nil, 0, fmt.Errorf("resolving %s: %w", name, err)
	case !info.Mode().IsRegular():
		return nil, 0, fmt.Errorf("%w: %s is not a regular file", ErrFileNotFound, name)
	}
	f, err := r.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, 0, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, info.Size(), nil
}

// Create makes sure the root directory exists and creates the named file,
// truncating it if it is already present.
func (r *Root) Create(name string) (afero.File, error) {
	if err := r.fs.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	f, err := r.fs.OpenFile(r.Path(name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return f, nil
}

// Exists reports whether the named file is present under the root.
func (r *Root) Exists(name string) bool {
	_, err := r.fs.Stat(r.Path(name))
	return err == nil
}

// ----------------------------------------------------- Local files ---------------------------------------------------

// ReceivedName returns the local file name a downloaded file is stored under.
// Directory components of the requested name are kept, the prefix is applied
// to the base name.
func ReceivedName(prefix, name string) string {
	dir, base := filepath.Split(filepath.FromSlash(name))
	return filepath.Join(dir, prefix+base)
}

// ReadLocal opens a local file for upload. Returns ErrFileNotFound if it does
// not exist or is not a regular file.
func ReadLocal(fs afero.Fs, name string) (afero.File, int64, error) {
	return NewRoot("", WithFs(fs)).Open(name)
}

// CreateLocal creates (or truncates) a local file, creating parent directories as needed.
func CreateLocal(fs afero.Fs, name string) (afero.File, error) {
	return NewRoot(filepath.Dir(name), WithFs(fs)).Create(filepath.Base(name))
}
