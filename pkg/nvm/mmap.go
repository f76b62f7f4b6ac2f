package nvm

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// readFileBytes returns the full contents of path, preferring a read-only
// mmap for zero-copy parsing. The cleanup func releases the mapping (or is
// a no-op on the fallback path) and must be called after parsing finishes.
func readFileBytes(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size64 := fi.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, nil, ErrCorruptFile
	}
	size := int(size64)
	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return data, func() error { return unix.Munmap(data) }, nil
	}

	// Fallback path that does not require mmap support.
	data, err = readAllAt(f, size)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}
