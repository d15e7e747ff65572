package simmod

import (
	"fmt"
	"sort"
)

const (
	heapBase  = 1024 // below this lies the module's static data
	heapAlign = 8
)

type block struct {
	ptr  uint32
	size uint32
}

// Allocator is a first-fit allocator over a Memory. Freed blocks are
// coalesced and the heap top shrinks when its last block is released.
type Allocator struct {
	mem       *Memory
	live      map[uint32]uint32
	free      []block // sorted by ptr
	top       uint32
	highWater uint32
	failAfter int // allocations allowed before failing; negative means never
}

func newAllocator(mem *Memory) *Allocator {
	return &Allocator{
		mem:       mem,
		live:      make(map[uint32]uint32),
		top:       heapBase,
		highWater: heapBase,
		failAfter: -1,
	}
}

func alignUp(n uint32) uint32 {
	return (n + heapAlign - 1) &^ (heapAlign - 1)
}

func (a *Allocator) Alloc(size uint32) (uint32, error) {
	if a.failAfter == 0 {
		return 0, fmt.Errorf("out of memory: allocation of %d bytes refused", size)
	}
	if a.failAfter > 0 {
		a.failAfter--
	}

	if size == 0 {
		size = 1
	}
	size = alignUp(size)

	for i, b := range a.free {
		if b.size < size {
			continue
		}
		if b.size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = block{ptr: b.ptr + size, size: b.size - size}
		}
		a.live[b.ptr] = size
		return b.ptr, nil
	}

	ptr := a.top
	end := uint64(ptr) + uint64(size)
	if end > uint64(a.mem.Size()) {
		need := (end - uint64(a.mem.Size()) + PageSize - 1) / PageSize
		if !a.mem.Grow(uint32(need)) {
			return 0, fmt.Errorf("out of memory: %d bytes at %d exceeds limit", size, ptr)
		}
	}
	a.top = uint32(end)
	if a.top > a.highWater {
		a.highWater = a.top
	}
	a.live[ptr] = size
	return ptr, nil
}

func (a *Allocator) Free(ptr uint32) error {
	size, ok := a.live[ptr]
	if !ok {
		return fmt.Errorf("free of unallocated pointer %d", ptr)
	}
	delete(a.live, ptr)

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].ptr > ptr })
	a.free = append(a.free, block{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = block{ptr: ptr, size: size}

	// merge with the following block, then with the preceding one
	if i+1 < len(a.free) && a.free[i].ptr+a.free[i].size == a.free[i+1].ptr {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].ptr+a.free[i-1].size == a.free[i].ptr {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}

	if last := a.free[len(a.free)-1]; last.ptr+last.size == a.top {
		a.top = last.ptr
		a.free = a.free[:len(a.free)-1]
	}
	return nil
}

// Live returns the number of outstanding allocations
func (a *Allocator) Live() int { return len(a.live) }

// LiveBytes returns the total size of outstanding allocations
func (a *Allocator) LiveBytes() uint32 {
	var n uint32
	for _, s := range a.live {
		n += s
	}
	return n
}

// Top returns the current heap top
func (a *Allocator) Top() uint32 { return a.top }

// HighWater returns the highest heap top reached
func (a *Allocator) HighWater() uint32 { return a.highWater }

// FailAfter makes the allocator refuse every allocation after the next n.
// A negative n removes the limit.
func (a *Allocator) FailAfter(n int) { a.failAfter = n }
