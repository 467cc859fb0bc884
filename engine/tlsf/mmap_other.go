//go:build !unix && !windows

package tlsf

import (
	"runtime"

	"github.com/cockroachdb/errors"
)

func mapMemory(size int) ([]byte, error) {
	return nil, errors.Newf("anonymous memory mappings are not supported on %s", runtime.GOOS)
}

func unmapMemory(mem []byte) error {
	return nil
}
