package cpu

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Opcodes: []Opcode{
			{LineNo: 3, Addr: TEXT_BOT, Source: "li $t0, 0x12345678", Mnemonic: "li",
				Codes: []Code{0x3c08_1234, 0x3508_5678}},
			{LineNo: 4, Addr: TEXT_BOT + 8, Source: "beq $t0, $zero, main", Mnemonic: "beq",
				Codes: []Code{0x1100_fffd}},
			{LineNo: 5, Addr: TEXT_BOT + 12, Source: "nop", Mnemonic: "nop",
				Codes: []Code{0x0000_0000}},
			{LineNo: 6, Addr: TEXT_BOT + 16, Source: ".word 0xffffffff", Mnemonic: "sll",
				Codes: []Code{0xffff_ffff}},
		},
		Symbols: map[string]Symbol{
			"main":  {Name: "main", Addr: TEXT_BOT, Segment: SEGMENT_TEXT},
			"start": {Name: "start", Addr: TEXT_BOT, Segment: SEGMENT_TEXT},
			"value": {Name: "value", Addr: DATA_BOT, Segment: SEGMENT_DATA},
		},
		Data:  []byte{1, 2, 3, 4},
		Entry: TEXT_BOT,
	}
}

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(TEXT_BOT)
	assert.NotNil(dbg.Opcode)
	assert.Equal(3, dbg.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(TEXT_BOT + 4)
	assert.NotNil(dbg.Opcode)
	assert.Equal(3, dbg.LineNo)
	assert.Equal(1, dbg.Index)

	dbg = prog.Debug(TEXT_BOT + 8)
	assert.NotNil(dbg.Opcode)
	assert.Equal(4, dbg.LineNo)
	assert.Equal(0, dbg.Index)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	for _, addr := range []uint32{0, TEXT_BOT - 4, TEXT_BOT + 2, TEXT_BOT + 20, DATA_BOT} {
		dbg := prog.Debug(addr)
		assert.Nil(dbg.Opcode, "0x%08x", addr)
		assert.Equal(0, dbg.Index)
	}
}

func TestProgram_Codes(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	var addrs []uint32
	for addr := range prog.Codes() {
		addrs = append(addrs, addr)
		if addr == TEXT_BOT+8 {
			break
		}
	}
	assert.Equal([]uint32{TEXT_BOT, TEXT_BOT + 4, TEXT_BOT + 8}, addrs)

	bin := prog.Binary()
	assert.Equal(20, len(bin))
	assert.Equal([]byte{0x34, 0x12, 0x08, 0x3c}, bin[:4])
	assert.Equal(uint32(TEXT_BOT+20), prog.TextEnd())
	assert.Equal(uint32(TEXT_BOT), (&Program{}).TextEnd())
}

func TestProgram_Symbols(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	assert.Equal([]string{"main", "start"}, prog.Labels(TEXT_BOT))
	assert.Empty(prog.Labels(TEXT_BOT + 4))

	var names []string
	for sym := range prog.Sorted() {
		names = append(names, sym.Name)
	}
	assert.Equal([]string{"main", "start", "value"}, names)
	assert.True(prog.Opcodes[0].Pseudo())
	assert.False(prog.Opcodes[1].Pseudo())
}

func TestProgram_Listing(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()
	list := prog.Listing()
	assert.Equal(5, len(list))

	assert.Equal([]string{"main", "start"}, list[0].Labels)
	assert.Equal("lui $t0, 4660", list[0].Text())
	assert.Equal(0, list[0].Group)
	assert.Equal(2, list[0].GroupLen)
	assert.Equal(1, list[1].Group)
	assert.Equal("li $t0, 0x12345678", list[1].Source)

	assert.Equal("beq $t0, $zero, main", list[2].Text())
	assert.Equal("main", list[2].Target)
	assert.Equal(0, list[2].GroupLen)

	assert.Equal("nop", list[3].Text())

	assert.Error(list[4].Err)
	assert.Equal(ErrDecode(0xffff_ffff), list[4].Err)
	assert.Equal(6, list[4].LineNo)

	text := list[0].String()
	lines := strings.Split(text, "\n")
	assert.Equal([]string{"main:", "start:"}, lines[:2])
	assert.True(strings.HasPrefix(lines[2], "0x00400000 [0x3c081234]    lui    $t0, 4660"))
	assert.True(strings.HasSuffix(lines[2], "# li $t0, 0x12345678 [1/2]"))

	assert.True(strings.HasPrefix(list[4].String(), "0x00400010 [0xffffffff]    # undefined instruction"))
	assert.True(slices.ContainsFunc(list, func(dc Decompiled) bool { return dc.Err != nil }))
}

func TestDecompileCode(t *testing.T) {
	assert := assert.New(t)

	dc := DecompileCode(TEXT_BOT, 0x1100_ffff)
	assert.NoError(dc.Err)
	assert.Equal("beq", dc.Mnemonic)
	assert.Equal("$t0, $zero, 0x00400000", dc.Operands)
	assert.Empty(dc.Target)
	assert.Equal("0x00400000 [0x1100ffff]    beq    $t0, $zero, 0x00400000", dc.String())
}
