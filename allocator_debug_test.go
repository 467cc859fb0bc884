//go:build debug_tcalloc

package tcalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSentinelMismatchAsserts(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, _, allocator := readyAllocator(t, ctrl, CreateOptions{})

	layout := Layout{Size: 0, Align: 64}

	require.Panics(t, func() {
		allocator.Dealloc(Handle(32), layout)
	})
	require.Panics(t, func() {
		allocator.Realloc(Handle(32), layout, 16)
	})
	require.NotPanics(t, func() {
		allocator.Dealloc(layout.Sentinel(), layout)
	})
}

func TestNonPow2AlignmentAsserts(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, _, allocator := readyAllocator(t, ctrl, CreateOptions{})

	layout := Layout{Size: 8, Align: 24}

	require.Panics(t, func() {
		allocator.Alloc(layout)
	})
	require.Panics(t, func() {
		allocator.AllocZeroed(layout)
	})
}
