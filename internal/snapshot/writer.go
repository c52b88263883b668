package snapshot

import (
	"os"
	"path/filepath"
)

// writeAtomic writes data to a temp file beside path and renames it into
// place, so a concurrent reader never observes a partially-written file
//. Shares the same idiom as internal/trace's writer of
// the same name -- both are independent implementations of the one rule
// states, rather than one importing the other, since emitting a
// snapshot document has no other dependency on the trace store.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func pathJoin(dir, name string) string {
	return filepath.Join(dir, name)
}
