package asm

import (
	"strconv"
	"strings"

	"github.com/ezrec/mipsy/cpu"
)

// TokenKind is the lexical class of a token.
type TokenKind int

const (
	TOKEN_IDENT    = TokenKind(iota) // Names, directives and mnemonics.
	TOKEN_REGISTER                   // $name or $n.
	TOKEN_INT                        // Integer or character literal.
	TOKEN_FLOAT                      // Floating point literal.
	TOKEN_STRING                     // Quoted string.
	TOKEN_COMMA
	TOKEN_COLON
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_PLUS
	TOKEN_MINUS
)

// Token is a lexical element of a single line.
type Token struct {
	Kind   TokenKind
	Offset int    // Byte offset within the line.
	Text   string // Source text.
	Value  int64  // TOKEN_INT value.
	Float  float64
	Reg    cpu.Reg
	Str    []byte // Decoded TOKEN_STRING.
}

// lexError is a lexical error at a byte offset.
type lexError struct {
	Offset int
	Err    error
}

func (err *lexError) Error() string {
	return err.Err.Error()
}

func (err *lexError) Unwrap() error {
	return err.Err
}

var punctuation = map[byte]TokenKind{
	',': TOKEN_COMMA,
	':': TOKEN_COLON,
	'(': TOKEN_LPAREN,
	')': TOKEN_RPAREN,
	'+': TOKEN_PLUS,
	'-': TOKEN_MINUS,
}

var escapes = map[byte]byte{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'0':  0,
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Lex splits a line into tokens. Lexing stops at a '#' or ';' comment;
// end is the offset of the comment, or the length of the line.
func Lex(line string) (tokens []Token, end int, err error) {
	n := 0
	for n < len(line) {
		c := line[n]
		start := n

		switch {
		case c == ' ' || c == '\t' || c == '\r':
			n++
			continue
		case c == '#' || c == ';':
			end = n
			return
		case isIdentStart(c):
			for n < len(line) && isIdent(line[n]) {
				n++
			}
			tokens = append(tokens, Token{Kind: TOKEN_IDENT, Offset: start, Text: line[start:n]})
		case c == '$':
			n++
			for n < len(line) && isIdent(line[n]) {
				n++
			}
			reg, ok := cpu.ParseReg(line[start:n])
			if !ok {
				err = &lexError{Offset: start, Err: ErrRegisterInvalid}
				return
			}
			tokens = append(tokens, Token{Kind: TOKEN_REGISTER, Offset: start, Text: line[start:n], Reg: reg})
		case isDigit(c):
			var tok Token
			tok, n, err = lexNumber(line, start)
			if err != nil {
				return
			}
			tokens = append(tokens, tok)
		case c == '\'':
			var value byte
			value, n, err = lexChar(line, start)
			if err != nil {
				return
			}
			tokens = append(tokens, Token{Kind: TOKEN_INT, Offset: start, Text: line[start:n], Value: int64(value)})
		case c == '"':
			var str []byte
			str, n, err = lexString(line, start)
			if err != nil {
				return
			}
			tokens = append(tokens, Token{Kind: TOKEN_STRING, Offset: start, Text: line[start:n], Str: str})
		default:
			kind, ok := punctuation[c]
			if !ok {
				err = &lexError{Offset: start, Err: ErrCharacterInvalid}
				return
			}
			n++
			tokens = append(tokens, Token{Kind: kind, Offset: start, Text: line[start:n]})
		}
	}

	end = len(line)
	return
}

// lexNumber scans an integer or floating point literal.
func lexNumber(line string, start int) (tok Token, n int, err error) {
	lower := strings.ToLower(line[start:])
	hex := strings.HasPrefix(lower, "0x")

	n = start
	for n < len(line) {
		c := line[n]
		if isIdent(c) {
			n++
			continue
		}
		if (c == '+' || c == '-') && !hex && n > start && (line[n-1] == 'e' || line[n-1] == 'E') {
			n++
			continue
		}
		break
	}

	text := line[start:n]
	tok = Token{Kind: TOKEN_INT, Offset: start, Text: text}

	if !hex && strings.ContainsAny(text, ".eE") && !strings.HasPrefix(lower, "0b") && !strings.HasPrefix(lower, "0o") {
		tok.Kind = TOKEN_FLOAT
		tok.Float, err = strconv.ParseFloat(text, 64)
	} else {
		tok.Value, err = strconv.ParseInt(text, 0, 64)
	}
	if err != nil {
		err = &lexError{Offset: start, Err: ErrNumberInvalid}
	}

	return
}

// lexChar scans a quoted character literal.
func lexChar(line string, start int) (value byte, n int, err error) {
	n = start + 1
	if n >= len(line) {
		err = &lexError{Offset: start, Err: ErrCharacterLiteral}
		return
	}

	value = line[n]
	switch value {
	case '\\':
		n++
		if n >= len(line) {
			err = &lexError{Offset: start, Err: ErrCharacterLiteral}
			return
		}
		esc, ok := escapes[line[n]]
		if !ok {
			err = &lexError{Offset: n - 1, Err: ErrEscapeInvalid}
			return
		}
		value = esc
	case '\'':
		err = &lexError{Offset: start, Err: ErrCharacterLiteral}
		return
	}
	n++

	if n >= len(line) || line[n] != '\'' {
		err = &lexError{Offset: start, Err: ErrCharacterLiteral}
		return
	}
	n++

	return
}

// lexString scans a quoted string, decoding escapes.
func lexString(line string, start int) (str []byte, n int, err error) {
	str = []byte{}
	for n = start + 1; n < len(line); n++ {
		c := line[n]
		switch c {
		case '"':
			n++
			return
		case '\\':
			n++
			if n >= len(line) {
				break
			}
			esc, ok := escapes[line[n]]
			if !ok {
				err = &lexError{Offset: n - 1, Err: ErrEscapeInvalid}
				return
			}
			str = append(str, esc)
		default:
			str = append(str, c)
		}
	}

	err = &lexError{Offset: start, Err: ErrStringUnterminated}
	return
}

// Column converts a byte offset within a line to a 1 based column,
// expanding tabs to multiples of tabSize.
func Column(line string, offset int, tabSize int) (column int) {
	if tabSize < 1 {
		tabSize = 1
	}

	for n := 0; n < offset && n < len(line); n++ {
		if line[n] == '\t' {
			column += tabSize - column%tabSize
		} else {
			column++
		}
	}

	return column + 1
}
