package debugger

import (
	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/emulator"
)

// Snapshot is the machine state before one executed instruction,
// and the instruction that was executed from it.
type Snapshot struct {
	emulator.Checkpoint
	Step emulator.Step
}

// History is the undo list of executed steps, oldest first.
// Memory deltas live in the emulator's store journal; each snapshot
// holds the journal mark to roll back to.
type History struct {
	Limit     int // Maximum snapshots retained; 0 for no limit.
	snapshots []Snapshot
	head      int // Index of the oldest retained snapshot.
}

// Len returns the number of snapshots.
func (hist *History) Len() int {
	return len(hist.snapshots) - hist.head
}

// Push appends a snapshot, dropping the oldest past the limit.
// Dropped snapshots release their journal entries.
func (hist *History) Push(snap Snapshot, journal *cpu.Journal) (dropped int) {
	hist.snapshots = append(hist.snapshots, snap)

	if hist.Limit <= 0 || hist.Len() <= hist.Limit {
		return
	}

	dropped = hist.Len() - hist.Limit
	clear(hist.snapshots[hist.head : hist.head+dropped])
	hist.head += dropped
	journal.Compact(hist.snapshots[hist.head].Mark)

	// Reclaim the dropped prefix once it outgrows the retained snapshots.
	if hist.head > hist.Len() {
		n := copy(hist.snapshots, hist.snapshots[hist.head:])
		clear(hist.snapshots[n:])
		hist.snapshots = hist.snapshots[:n]
		hist.head = 0
	}

	return
}

// Pop removes the most recent snapshot.
func (hist *History) Pop() (snap Snapshot, ok bool) {
	if hist.Len() == 0 {
		return
	}

	n := len(hist.snapshots) - 1
	snap, ok = hist.snapshots[n], true
	hist.snapshots[n] = Snapshot{}
	hist.snapshots = hist.snapshots[:n]

	if hist.Len() == 0 {
		hist.snapshots = hist.snapshots[:0]
		hist.head = 0
	}

	return
}

// Last returns the most recent snapshot.
func (hist *History) Last() (snap Snapshot, ok bool) {
	if hist.Len() == 0 {
		return
	}

	return hist.snapshots[len(hist.snapshots)-1], true
}

// Clear forgets all snapshots.
func (hist *History) Clear() {
	hist.snapshots = nil
	hist.head = 0
}
