package cpu

import (
	"fmt"
	"iter"
	"maps"
)

// Memory map of the simulated machine.
const (
	TEXT_BOT   = 0x0040_0000 // First address of user text.
	TEXT_TOP   = 0x0FFF_FFFF // Last possible address of user text.
	GLOBAL_BOT = 0x1000_0000 // First address of the global area.
	GLOBAL_PTR = 0x1000_8000 // Initial $gp.
	DATA_BOT   = 0x1001_0000 // First address of user data.
	HEAP_BOT   = 0x1004_0000 // First address of the heap.
	STACK_PTR  = 0x7FFF_FFFC // Initial $sp.
	STACK_TOP  = 0x7FFF_FFFF // Last address of the stack.
)

// Segment identifies the part of the memory map a symbol lives in.
type Segment int

const (
	SEGMENT_TEXT  = Segment(0)
	SEGMENT_DATA  = Segment(1)
	SEGMENT_HEAP  = Segment(2)
	SEGMENT_STACK = Segment(3)
)

var segmentNames = [...]string{
	SEGMENT_TEXT:  "text",
	SEGMENT_DATA:  "data",
	SEGMENT_HEAP:  "heap",
	SEGMENT_STACK: "stack",
}

func (seg Segment) String() string {
	if int(seg) < len(segmentNames) {
		return segmentNames[seg]
	}
	return fmt.Sprintf("Segment(%d)", int(seg))
}

var _segment_defines = map[string]int64{
	"TEXT_BOT":   TEXT_BOT,
	"TEXT_TOP":   TEXT_TOP,
	"GLOBAL_BOT": GLOBAL_BOT,
	"GLOBAL_PTR": GLOBAL_PTR,
	"DATA_BOT":   DATA_BOT,
	"HEAP_BOT":   HEAP_BOT,
	"STACK_PTR":  STACK_PTR,
	"STACK_TOP":  STACK_TOP,
}

// Defines returns the memory map constants available to assembly source.
func Defines() iter.Seq2[string, int64] {
	return maps.All(_segment_defines)
}
