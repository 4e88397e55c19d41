package cpu

import (
	"encoding/binary"
	"fmt"
)

// Access is a memory access mode.
type Access int

const (
	ACCESS_READ    = Access(1 << 0)
	ACCESS_WRITE   = Access(1 << 1)
	ACCESS_EXECUTE = Access(1 << 2)
)

func (acc Access) String() string {
	switch acc {
	case ACCESS_READ:
		return "read"
	case ACCESS_WRITE:
		return "write"
	case ACCESS_EXECUTE:
		return "execute"
	}
	return fmt.Sprintf("Access(%d)", int(acc))
}

// Region is a contiguous mapped range of memory.
type Region struct {
	Segment Segment
	Base    uint32
	Data    []byte
	Access  Access
}

// End returns one past the last mapped address.
func (rg *Region) End() uint64 {
	return uint64(rg.Base) + uint64(len(rg.Data))
}

// Contains is true if [addr, addr+size) lies within the region.
func (rg *Region) Contains(addr uint32, size int) bool {
	return addr >= rg.Base && uint64(addr)+uint64(size) <= rg.End()
}

// ByteDiff records the value of a byte before a store.
type ByteDiff struct {
	Addr uint32
	Old  byte
}

// Journal is an append-only arena of byte diffs.
//
// Marks are absolute: a mark counts every diff ever recorded, so marks
// taken before a Compact stay valid for the diffs that remain.
type Journal struct {
	Base  int        // Mark of the oldest retained diff.
	Diffs []ByteDiff // Retained diffs, oldest first.
}

// Len returns the number of retained diffs.
func (jr *Journal) Len() int {
	return len(jr.Diffs)
}

// Mark returns the mark of the next diff to be recorded.
func (jr *Journal) Mark() int {
	return jr.Base + len(jr.Diffs)
}

func (jr *Journal) index(mark int) int {
	return min(max(mark-jr.Base, 0), len(jr.Diffs))
}

// Since returns the retained diffs recorded at or after mark.
func (jr *Journal) Since(mark int) []ByteDiff {
	return jr.Diffs[jr.index(mark):]
}

// Truncate forgets the diffs recorded at or after mark.
func (jr *Journal) Truncate(mark int) {
	jr.Diffs = jr.Diffs[:jr.index(mark)]
}

// Compact forgets the diffs recorded before mark.
func (jr *Journal) Compact(mark int) {
	n := jr.index(mark)
	jr.Diffs = jr.Diffs[n:]
	jr.Base += n
}

// Memory is the address space of one machine.
type Memory struct {
	Regions   [4]Region // Indexed by Segment.
	HeapLimit uint32    // Maximum heap size in bytes.
	Journal   *Journal  // If set, every stored byte is recorded.
}

// NewMemory maps a text image, a data image, an empty heap and a zeroed stack.
func NewMemory(text []byte, data []byte, stackSize uint32, heapLimit uint32) (mem *Memory) {
	mem = &Memory{HeapLimit: heapLimit}
	mem.Regions[SEGMENT_TEXT] = Region{
		Segment: SEGMENT_TEXT,
		Base:    TEXT_BOT,
		Data:    append([]byte(nil), text...),
		Access:  ACCESS_READ | ACCESS_EXECUTE,
	}
	mem.Regions[SEGMENT_DATA] = Region{
		Segment: SEGMENT_DATA,
		Base:    DATA_BOT,
		Data:    append([]byte(nil), data...),
		Access:  ACCESS_READ | ACCESS_WRITE,
	}
	mem.Regions[SEGMENT_HEAP] = Region{
		Segment: SEGMENT_HEAP,
		Base:    HEAP_BOT,
		Access:  ACCESS_READ | ACCESS_WRITE,
	}
	mem.Regions[SEGMENT_STACK] = Region{
		Segment: SEGMENT_STACK,
		Base:    uint32(uint64(STACK_TOP) + 1 - uint64(stackSize)),
		Data:    make([]byte, stackSize),
		Access:  ACCESS_READ | ACCESS_WRITE,
	}

	return
}

// Find the region containing [addr, addr+size).
func (mem *Memory) Find(addr uint32, size int) (rg *Region, ok bool) {
	for n := range mem.Regions {
		if mem.Regions[n].Contains(addr, size) {
			return &mem.Regions[n], true
		}
	}
	return
}

// check validates an access of size bytes, aligned to align.
func (mem *Memory) check(addr uint32, size int, align int, access Access) (rg *Region, err error) {
	if align > 1 && addr%uint32(align) != 0 {
		err = &ErrMemoryFault{Addr: addr, Access: access, Err: ErrMisaligned}
		return
	}

	rg, ok := mem.Find(addr, size)
	if !ok {
		err = &ErrMemoryFault{Addr: addr, Access: access, Err: ErrUnmapped}
		return
	}

	if rg.Access&access == 0 {
		err = &ErrMemoryFault{Addr: addr, Access: access, Err: ErrPermission}
		return
	}

	return
}

// Check validates an unaligned access of size bytes.
func (mem *Memory) Check(addr uint32, size int, access Access) (err error) {
	_, err = mem.check(addr, size, 1, access)
	return
}

// Fetch reads an instruction word for execution.
func (mem *Memory) Fetch(addr uint32) (code Code, err error) {
	rg, err := mem.check(addr, 4, 4, ACCESS_EXECUTE)
	if err != nil {
		return
	}

	off := addr - rg.Base
	code = Code(binary.LittleEndian.Uint32(rg.Data[off:]))
	return
}

// Load reads an aligned little-endian value of 1, 2 or 4 bytes.
func (mem *Memory) Load(addr uint32, size int) (value uint32, err error) {
	rg, err := mem.check(addr, size, size, ACCESS_READ)
	if err != nil {
		return
	}

	off := addr - rg.Base
	switch size {
	case 1:
		value = uint32(rg.Data[off])
	case 2:
		value = uint32(binary.LittleEndian.Uint16(rg.Data[off:]))
	default:
		value = binary.LittleEndian.Uint32(rg.Data[off:])
	}

	return
}

// Store writes an aligned little-endian value of 1, 2 or 4 bytes.
func (mem *Memory) Store(addr uint32, size int, value uint32) (err error) {
	var buff [4]byte
	binary.LittleEndian.PutUint32(buff[:], value)

	_, err = mem.check(addr, size, size, ACCESS_WRITE)
	if err != nil {
		return
	}

	return mem.StoreBytes(addr, buff[:size])
}

// StoreBytes writes an unaligned byte range, all or nothing.
func (mem *Memory) StoreBytes(addr uint32, data []byte) (err error) {
	if len(data) == 0 {
		return
	}

	rg, err := mem.check(addr, len(data), 1, ACCESS_WRITE)
	if err != nil {
		return
	}

	off := addr - rg.Base
	for n, b := range data {
		if mem.Journal != nil {
			mem.Journal.Diffs = append(mem.Journal.Diffs, ByteDiff{Addr: addr + uint32(n), Old: rg.Data[int(off)+n]})
		}
		rg.Data[int(off)+n] = b
	}

	return
}

// ReadBytes copies an unaligned readable byte range.
func (mem *Memory) ReadBytes(addr uint32, size int) (data []byte, err error) {
	if size <= 0 {
		return
	}

	rg, err := mem.check(addr, size, 1, ACCESS_READ)
	if err != nil {
		return
	}

	off := addr - rg.Base
	data = append([]byte(nil), rg.Data[int(off):int(off)+size]...)
	return
}

// ReadString reads a NUL terminated string, not including the NUL.
func (mem *Memory) ReadString(addr uint32) (text []byte, err error) {
	rg, err := mem.check(addr, 1, 1, ACCESS_READ)
	if err != nil {
		return
	}

	off := int(addr - rg.Base)
	for n, b := range rg.Data[off:] {
		if b == 0 {
			text = append([]byte(nil), rg.Data[off:off+n]...)
			return
		}
	}

	err = &ErrMemoryFault{Addr: uint32(rg.End()), Access: ACCESS_READ, Err: ErrUnmapped}
	return
}

// Break returns the current end of the heap.
func (mem *Memory) Break() uint32 {
	return uint32(mem.Regions[SEGMENT_HEAP].End())
}

// SetBreak truncates or extends the heap to end at brk.
func (mem *Memory) SetBreak(brk uint32) {
	heap := &mem.Regions[SEGMENT_HEAP]
	size := int(brk - heap.Base)
	if size <= len(heap.Data) {
		heap.Data = heap.Data[:size]
		return
	}
	heap.Data = append(heap.Data, make([]byte, size-len(heap.Data))...)
}

// Sbrk grows the heap by size bytes, returning the previous break.
func (mem *Memory) Sbrk(size int32) (brk uint32, err error) {
	if size < 0 {
		err = ErrHeapNegative
		return
	}

	brk = mem.Break()
	heap := &mem.Regions[SEGMENT_HEAP]
	if uint64(len(heap.Data))+uint64(size) > uint64(mem.HeapLimit) {
		err = ErrHeapExhausted
		return
	}

	mem.SetBreak(brk + uint32(size))
	return
}

// Rollback reverts every journaled store at or after mark, newest first.
func (mem *Memory) Rollback(mark int) {
	if mem.Journal == nil {
		return
	}

	diffs := mem.Journal.Since(mark)
	for n := len(diffs) - 1; n >= 0; n-- {
		diff := diffs[n]
		rg, ok := mem.Find(diff.Addr, 1)
		if !ok {
			continue
		}
		rg.Data[diff.Addr-rg.Base] = diff.Old
	}

	mem.Journal.Truncate(mark)
}
