// Package tlsf is a malloc-family engine written in Go. It carves allocations out of anonymous memory
// mappings using two-level segregated fit metadata, rounds every request up to a size class, and
// enforces the sized-free contract strictly: freeing with any size other than the one UsableSize
// reports is treated as heap corruption and panics, as a native engine would abort.
//
// Memory handed out by this engine is invisible to the Go garbage collector. It must not hold the only
// reference to a Go-allocated object.
package tlsf

import (
	"math"
	"math/bits"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/tcalloc/engine"
	"github.com/vkngwrapper/tcalloc/internal/utils"
	"github.com/vkngwrapper/tcalloc/memutils"
	"github.com/vkngwrapper/tcalloc/memutils/metadata"
	"golang.org/x/exp/slog"
)

// maxAllocationSize bounds requests so that size class rounding can never overflow
const maxAllocationSize = uintptr(math.MaxInt >> 1)

type liveAllocation struct {
	arena  *arena
	handle metadata.BlockAllocationHandle
	usable uintptr
}

// Engine is a pure-Go implementation of engine.Engine
type Engine struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	arenaSize    int
	maxArenas    int
	minAlignment uintptr
	pageSize     uintptr
	strategy     metadata.AllocationStrategy

	arenas []*arena
	live   *swiss.Map[uintptr, liveAllocation]
}

var _ engine.Engine = &Engine{}

// New creates an engine and maps its first arena
//
// logger - Receives debug output about arena creation and release. slog.Default() is used if nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pageSize := os.Getpagesize()

	arenaSize := options.ArenaSize
	if arenaSize == 0 {
		arenaSize = DefaultArenaSize
	} else if arenaSize < 0 {
		return nil, errors.Newf("tlsf.CreateOptions.ArenaSize must not be negative, but it is %d", arenaSize)
	}

	if options.MaxArenas < 0 {
		return nil, errors.Newf("tlsf.CreateOptions.MaxArenas must not be negative, but it is %d", options.MaxArenas)
	}

	minAlignment := options.MinAlignment
	if minAlignment == 0 {
		minAlignment = DefaultMinAlignment
	}
	if err := memutils.CheckPow2(minAlignment, "tlsf.CreateOptions.MinAlignment"); err != nil {
		return nil, err
	}
	if minAlignment > uint(pageSize) {
		return nil, errors.Newf("tlsf.CreateOptions.MinAlignment must not exceed the page size %d, but it is %d", pageSize, minAlignment)
	}

	e := &Engine{
		logger:       logger,
		mutex:        utils.OptionalMutex{UseMutex: options.Flags&CreateExternallySynchronized == 0},
		arenaSize:    memutils.AlignUp(arenaSize, pageSize),
		maxArenas:    options.MaxArenas,
		minAlignment: uintptr(minAlignment),
		pageSize:     uintptr(pageSize),
		strategy:     options.Strategy,
		live:         swiss.NewMap[uintptr, liveAllocation](64),
	}

	if _, err := e.createArena(e.arenaSize); err != nil {
		return nil, err
	}

	logger.Debug("Engine::New",
		slog.Int("ArenaSize", e.arenaSize),
		slog.Int("MaxArenas", e.maxArenas),
		slog.Uint64("MinAlignment", uint64(e.minAlignment)),
		slog.String("Flags", options.Flags.String()),
		slog.String("Strategy", e.strategy.String()),
	)

	return e, nil
}

// SizeClass returns the usable size an allocation of size bytes receives
func (e *Engine) SizeClass(size uintptr) uintptr {
	if size <= metadata.SmallBufferSize {
		return memutils.AlignUp(max(size, 1), e.minAlignment)
	}

	step := uintptr(1) << (bits.Len64(uint64(size)) - 1 - int(metadata.SecondLevelIndex))
	return memutils.AlignUp(size, max(step, e.minAlignment))
}

func (e *Engine) DefaultAlignment() uintptr {
	return e.minAlignment
}

func (e *Engine) Malloc(size uintptr) unsafe.Pointer {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.allocate(size, e.minAlignment)
}

func (e *Engine) Calloc(count, size uintptr) unsafe.Pointer {
	hi, total := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || total > uint64(maxAllocationSize) {
		return nil
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	ptr := e.allocate(uintptr(total), e.minAlignment)
	if ptr != nil {
		clear(unsafe.Slice((*byte)(ptr), total))
	}
	return ptr
}

func (e *Engine) Memalign(alignment, size uintptr) unsafe.Pointer {
	if !memutils.IsPow2(alignment) {
		return nil
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.allocate(size, max(alignment, e.minAlignment))
}

func (e *Engine) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	if ptr == nil {
		return e.Malloc(size)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if size == 0 {
		e.release(ptr, 0, false)
		return nil
	}

	alloc := e.lookup(ptr)
	if size <= alloc.usable && size > alloc.usable/2 {
		return ptr
	}

	newPtr := e.allocate(size, e.minAlignment)
	if newPtr == nil {
		return nil
	}

	copySize := min(alloc.usable, size)
	copy(unsafe.Slice((*byte)(newPtr), copySize), unsafe.Slice((*byte)(ptr), copySize))
	e.release(ptr, 0, false)

	return newPtr
}

func (e *Engine) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.release(ptr, 0, false)
}

// Sdallocx frees ptr. The flags are accepted for compatibility and ignored.
func (e *Engine) Sdallocx(ptr unsafe.Pointer, size uintptr, flags int) {
	e.FreeSized(ptr, size)
}

func (e *Engine) FreeSized(ptr unsafe.Pointer, size uintptr) {
	if ptr == nil {
		return
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.release(ptr, size, true)
}

// UsableSize returns the usable size of a live allocation, or 0 for nil and for pointers this engine
// did not hand out
func (e *Engine) UsableSize(ptr unsafe.Pointer) uintptr {
	if ptr == nil {
		return 0
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	alloc, ok := e.live.Get(uintptr(ptr))
	if !ok {
		return 0
	}
	return alloc.usable
}

// Statistics reports the arenas currently mapped and the bytes reserved by live allocations within them
func (e *Engine) Statistics() memutils.Statistics {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var stats memutils.Statistics
	for _, a := range e.arenas {
		a.metadata.AddStatistics(&stats)
	}
	return stats
}

// Validate runs the consistency checks of every arena's metadata and verifies that the address index
// agrees with them. It is expensive and intended for tests.
func (e *Engine) Validate() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	allocationCount := 0
	for index, a := range e.arenas {
		if err := a.metadata.Validate(); err != nil {
			return errors.Wrapf(err, "arena %d failed validation", index)
		}
		allocationCount += a.metadata.AllocationCount()
	}

	if allocationCount != e.live.Count() {
		return errors.Newf("arenas hold %d allocations, but %d addresses are indexed", allocationCount, e.live.Count())
	}

	return nil
}

// Close unmaps every arena. Any allocation still live becomes invalid, and the engine must not be
// used afterward.
func (e *Engine) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var err error
	for _, a := range e.arenas {
		err = errors.CombineErrors(err, unmapMemory(a.mem))
	}
	e.arenas = nil
	e.live = swiss.NewMap[uintptr, liveAllocation](64)

	return err
}

func (e *Engine) allocate(size, alignment uintptr) unsafe.Pointer {
	if size > maxAllocationSize {
		return nil
	}

	usable := e.SizeClass(size)
	reserve := usable + uintptr(memutils.DebugMargin)

	// Arenas are only page aligned, so larger alignments are found by over-reserving
	blockAlignment := alignment
	if alignment > e.pageSize {
		blockAlignment = e.pageSize
		reserve += alignment - e.pageSize
	}

	for _, a := range e.arenas {
		if ptr := e.allocateFromArena(a, usable, reserve, alignment, blockAlignment); ptr != nil {
			return ptr
		}
	}

	if e.maxArenas > 0 && len(e.arenas) >= e.maxArenas {
		e.logger.Debug("Engine::allocate FAILED: arena limit reached",
			slog.Uint64("Size", uint64(size)),
			slog.Int("ArenaCount", len(e.arenas)),
		)
		return nil
	}

	a, err := e.createArena(max(e.arenaSize, memutils.AlignUp(int(reserve), int(e.pageSize))))
	if err != nil {
		e.logger.Debug("Engine::allocate FAILED", slog.Uint64("Size", uint64(size)), slog.Any("error", err))
		return nil
	}

	return e.allocateFromArena(a, usable, reserve, alignment, blockAlignment)
}

func (e *Engine) allocateFromArena(a *arena, usable, reserve, alignment, blockAlignment uintptr) unsafe.Pointer {
	success, req, err := a.metadata.CreateAllocationRequest(int(reserve), uint(blockAlignment), e.strategy)
	if err != nil {
		panic(errors.Wrap(err, "tlsf: arena rejected allocation request"))
	}
	if !success {
		return nil
	}

	if err := a.metadata.Alloc(req); err != nil {
		panic(errors.Wrap(err, "tlsf: arena failed to commit allocation request"))
	}

	blockOffset := int(req.AlgorithmData)
	offset := blockOffset
	if alignment > blockAlignment {
		offset = int(memutils.AlignUp(a.base()+uintptr(blockOffset), alignment) - a.base())
		usable = reserve - uintptr(offset-blockOffset) - uintptr(memutils.DebugMargin)
	}

	ptr := unsafe.Add(a.ptr, offset)
	memutils.WriteMagicValue(ptr, int(usable))

	e.live.Put(uintptr(ptr), liveAllocation{
		arena:  a,
		handle: req.BlockAllocationHandle,
		usable: usable,
	})

	return ptr
}

func (e *Engine) lookup(ptr unsafe.Pointer) liveAllocation {
	alloc, ok := e.live.Get(uintptr(ptr))
	if !ok {
		panic(errors.AssertionFailedf("tlsf: pointer %p was not allocated by this engine or was already freed", ptr))
	}
	return alloc
}

func (e *Engine) release(ptr unsafe.Pointer, size uintptr, sized bool) {
	alloc := e.lookup(ptr)

	if sized && size != alloc.usable {
		panic(errors.AssertionFailedf("tlsf: sized free of %d bytes at %p does not match its usable size of %d bytes", size, ptr, alloc.usable))
	}

	if !memutils.ValidateMagicValue(ptr, int(alloc.usable)) {
		panic(errors.AssertionFailedf("tlsf: memory corruption detected past the end of the allocation at %p", ptr))
	}

	e.live.Delete(uintptr(ptr))
	if err := alloc.arena.metadata.Free(alloc.handle); err != nil {
		panic(errors.Wrap(err, "tlsf: arena failed to free allocation"))
	}

	if alloc.arena.metadata.IsEmpty() && len(e.arenas) > 1 {
		e.releaseArena(alloc.arena)
	}
}

func (e *Engine) createArena(size int) (*arena, error) {
	mem, err := mapMemory(size)
	if err != nil {
		return nil, err
	}

	a := newArena(mem)
	e.arenas = append(e.arenas, a)

	e.logger.Debug("Engine::createArena", slog.Int("Size", a.size()), slog.Int("ArenaCount", len(e.arenas)))
	return a, nil
}

func (e *Engine) releaseArena(a *arena) {
	for index, candidate := range e.arenas {
		if candidate == a {
			e.arenas = append(e.arenas[:index], e.arenas[index+1:]...)
			break
		}
	}

	if err := unmapMemory(a.mem); err != nil {
		e.logger.Error("Engine::releaseArena failed to unmap arena", slog.Int("Size", a.size()), slog.Any("error", err))
		return
	}

	e.logger.Debug("Engine::releaseArena", slog.Int("Size", a.size()), slog.Int("ArenaCount", len(e.arenas)))
}
