package system

import (
	"fmt"
	"syscall"

	"github.com/dustin/go-humanize"
)

// AvailableSpace returns the bytes available to unprivileged users on the
// filesystem holding path.
func AvailableSpace(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("disk space for %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureSpace fails when dir cannot hold need bytes plus a 10% margin.
// Unknown sizes (need <= 0) always pass.
func EnsureSpace(dir string, need int64) error {
	if need <= 0 {
		return nil
	}
	avail, err := AvailableSpace(dir)
	if err != nil {
		return err
	}
	want := uint64(float64(need) * 1.1)
	if avail < want {
		return fmt.Errorf("not enough space in %s: need %s, have %s", dir, humanize.Bytes(want), humanize.Bytes(avail))
	}
	return nil
}
