package asm

import (
	"errors"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mipsy/cpu"
)

func TestLex(t *testing.T) {
	assert := assert.New(t)

	toks, end, err := Lex(`loop:	lw $t0, -4($sp)  # comment "ignored`)
	assert.NoError(err)
	assert.Equal(23, end)

	kinds := []TokenKind{}
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal([]TokenKind{
		TOKEN_IDENT, TOKEN_COLON, TOKEN_IDENT, TOKEN_REGISTER, TOKEN_COMMA,
		TOKEN_MINUS, TOKEN_INT, TOKEN_LPAREN, TOKEN_REGISTER, TOKEN_RPAREN,
	}, kinds)
	assert.Equal(cpu.REG_T0, toks[3].Reg)
	assert.Equal(cpu.REG_SP, toks[8].Reg)
	assert.Equal(int64(4), toks[6].Value)
	assert.Equal(6, toks[2].Offset)
}

func TestLexLiterals(t *testing.T) {
	table := [](struct {
		text  string
		kind  TokenKind
		value int64
		float float64
		str   string
	}){
		{"42", TOKEN_INT, 42, 0, ""},
		{"0x2A", TOKEN_INT, 42, 0, ""},
		{"0o52", TOKEN_INT, 42, 0, ""},
		{"052", TOKEN_INT, 42, 0, ""},
		{"0b101010", TOKEN_INT, 42, 0, ""},
		{"0xffffffff", TOKEN_INT, 0xffff_ffff, 0, ""},
		{"'*'", TOKEN_INT, 42, 0, ""},
		{`'\n'`, TOKEN_INT, 10, 0, ""},
		{`'\0'`, TOKEN_INT, 0, 0, ""},
		{`'\''`, TOKEN_INT, '\'', 0, ""},
		{"1.5", TOKEN_FLOAT, 0, 1.5, ""},
		{"2.5e-1", TOKEN_FLOAT, 0, 0.25, ""},
		{`"a\tb\"c\\"`, TOKEN_STRING, 0, 0, "a\tb\"c\\"},
		{`"#;"`, TOKEN_STRING, 0, 0, "#;"},
		{"$31", TOKEN_REGISTER, 0, 0, ""},
		{".asciiz", TOKEN_IDENT, 0, 0, ""},
	}

	for _, entry := range table {
		t.Run(entry.text, func(t *testing.T) {
			assert := assert.New(t)
			toks, _, err := Lex(entry.text)
			assert.NoError(err)
			if !assert.Equal(1, len(toks)) {
				return
			}
			tok := toks[0]
			assert.Equal(entry.kind, tok.Kind)
			switch entry.kind {
			case TOKEN_INT:
				assert.Equal(entry.value, tok.Value)
			case TOKEN_FLOAT:
				assert.Equal(entry.float, tok.Float)
			case TOKEN_STRING:
				assert.Equal(entry.str, string(tok.Str))
			case TOKEN_REGISTER:
				assert.Equal(cpu.REG_RA, tok.Reg)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	table := [](struct {
		text   string
		offset int
		err    error
	}){
		{"add $t0, $xx", 9, ErrRegisterInvalid},
		{"li $t0, 0x", 8, ErrNumberInvalid},
		{"li $t0, 09", 8, ErrNumberInvalid},
		{`.ascii "abc`, 7, ErrStringUnterminated},
		{`.ascii "a\qc"`, 9, ErrEscapeInvalid},
		{"li $t0, 'ab'", 8, ErrCharacterLiteral},
		{"li $t0, ''", 8, ErrCharacterLiteral},
		{"add $t0 @", 8, ErrCharacterInvalid},
	}

	for _, entry := range table {
		t.Run(entry.text, func(t *testing.T) {
			assert := assert.New(t)
			_, _, err := Lex(entry.text)
			assert.ErrorIs(err, entry.err)
			var lerr *lexError
			if assert.True(errors.As(err, &lerr)) {
				assert.Equal(entry.offset, lerr.Offset)
			}
		})
	}
}

func TestColumn(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1, Column("abc", 0, 8))
	assert.Equal(3, Column("abc", 2, 8))
	assert.Equal(9, Column("\tabc", 1, 8))
	assert.Equal(9, Column("abc\tdef", 4, 8))
	assert.Equal(5, Column("\tabc", 1, 4))
	assert.Equal(2, Column("\tabc", 1, 0))
}

func TestEval(t *testing.T) {
	assert := assert.New(t)

	names := maps.All(map[string]int64{"DATA_BOT": 0x1001_0000, "N": 3})

	value, err := Eval("1 << 4 | N", names)
	assert.NoError(err)
	assert.Equal(int64(19), value)

	value, err = Eval("DATA_BOT / 2 + 7 / 2", names)
	assert.NoError(err)
	assert.Equal(int64(0x0800_8000+3), value)

	value, err = Eval("-N * 0x10", names)
	assert.NoError(err)
	assert.Equal(int64(-48), value)

	for _, expr := range []string{"1 +", "'a'", "UNDEFINED", "1.5", "True"} {
		_, err = Eval(expr, names)
		assert.ErrorIs(err, ErrExpressionInvalid, expr)
	}
}
