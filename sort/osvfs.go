package sort

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// OSTempVFS is the default host-side TempVFS (spec §6 "Temp-file
// VFS"), backed by ordinary os.File handles in dir. Grounded on
// vdbesort.c's vfsOpenTemp/sqlite3OsOpen, which opens each temp file
// under a randomized name so concurrently-running sorters never
// collide; this implementation uses a uuid rather than SQLite's own
// random-name generator for that, matching the naming scheme the
// rest of this module's temp-file producers use.
//
// Fetch always declines: an os.File-backed region could be mapped
// with syscall.Mmap, but doing so portably across platforms is
// outside this package's scope, so every PmaReader built over an
// OSTempVFS file falls back to the buffered read path.
type OSTempVFS struct {
	dir string
}

func NewOSTempVFS(dir string) *OSTempVFS { return &OSTempVFS{dir: dir} }

func (v *OSTempVFS) OpenTemp() (TempFile, error) {
	name := filepath.Join(v.dir, "relcore-sort-"+uuid.NewString()+".pma")
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}
	return &osTempFile{file: f}, nil
}

func (v *OSTempVFS) ControlMmapSize(int64) {}

func (v *OSTempVFS) Now() int64 { return time.Now().UnixMilli() }

type osTempFile struct {
	file *os.File
}

func (f *osTempFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.file.ReadAt(p, off)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

func (f *osTempFile) WriteAt(p []byte, off int64) (int, error) { return f.file.WriteAt(p, off) }
func (f *osTempFile) Truncate(size int64) error                { return f.file.Truncate(size) }

func (f *osTempFile) Close() error {
	name := f.file.Name()
	err := f.file.Close()
	os.Remove(name)
	return err
}

func (f *osTempFile) Fetch(off, n int64) ([]byte, bool) { return nil, false }
func (f *osTempFile) Unfetch(off int64, data []byte)    {}
