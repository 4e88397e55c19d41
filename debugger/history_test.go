package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/emulator"
)

func TestHistory(t *testing.T) {
	assert := assert.New(t)

	journal := &cpu.Journal{}
	hist := History{Limit: 3}

	push := func(n int) (dropped int) {
		snap := Snapshot{
			Checkpoint: emulator.Checkpoint{Mark: journal.Mark(), Ticks: n},
		}
		journal.Diffs = append(journal.Diffs, cpu.ByteDiff{Addr: uint32(n)})
		return hist.Push(snap, journal)
	}

	for n := range 3 {
		assert.Equal(0, push(n))
	}
	assert.Equal(3, hist.Len())

	for n := 3; n < 20; n++ {
		assert.Equal(1, push(n))
		assert.Equal(3, hist.Len())
		assert.LessOrEqual(len(hist.snapshots), 2*hist.Limit+1)
		assert.Equal(n-2, journal.Base)
		assert.Equal(3, journal.Len())
	}

	last, ok := hist.Last()
	assert.True(ok)
	assert.Equal(19, last.Ticks)

	for n := 19; n >= 17; n-- {
		snap, ok := hist.Pop()
		assert.True(ok)
		assert.Equal(n, snap.Ticks)
		assert.Equal(n, snap.Mark)
		assert.Equal([]cpu.ByteDiff{{Addr: uint32(n)}}, journal.Since(snap.Mark)[:1])
	}

	_, ok = hist.Pop()
	assert.False(ok)
	_, ok = hist.Last()
	assert.False(ok)
	assert.Equal(0, hist.Len())

	assert.Equal(0, push(20))
	assert.Equal(1, hist.Len())

	hist.Clear()
	assert.Equal(0, hist.Len())
}

func TestHistoryUnlimited(t *testing.T) {
	assert := assert.New(t)

	journal := &cpu.Journal{}
	hist := History{}

	for range 100 {
		assert.Equal(0, hist.Push(Snapshot{}, journal))
	}
	assert.Equal(100, hist.Len())
}
