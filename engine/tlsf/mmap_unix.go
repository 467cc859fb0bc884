//go:build unix

package tlsf

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

func mapMemory(size int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map %d bytes of anonymous memory", size)
	}
	return mem, nil
}

func unmapMemory(mem []byte) error {
	return unix.Munmap(mem)
}
