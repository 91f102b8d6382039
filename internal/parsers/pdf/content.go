package pdf

import (
	"strconv"
	"strings"
)

// ExtractText pulls the shown text out of a PDF content stream. It
// understands literal strings passed to the Tj, TJ, ' and " operators and
// breaks lines on text positioning operators. Font encodings are not
// decoded, so documents using custom CMaps may yield little text.
func ExtractText(stream []byte) string {
	var out strings.Builder
	var pending []string
	inText := false

	newline := func() {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
	}

	for i := 0; i < len(stream); {
		c := stream[i]
		switch {
		case c == '(':
			s, next := readLiteral(stream, i)
			pending = append(pending, s)
			i = next
		case c == '[' || c == ']':
			i++
		case c == '<' && i+1 < len(stream) && stream[i+1] != '<':
			s, next := readHex(stream, i)
			pending = append(pending, s)
			i = next
		case c == '%':
			for i < len(stream) && stream[i] != '\n' && stream[i] != '\r' {
				i++
			}
		case isSpace(c):
			i++
		default:
			start := i
			for i < len(stream) && !isSpace(stream[i]) && !isDelim(stream[i]) {
				i++
			}
			if i == start {
				i++
				continue
			}
			tok := string(stream[start:i])
			if n, err := strconv.ParseFloat(tok, 64); err == nil {
				// Large negative kerning inside TJ arrays separates words.
				if n < -200 && len(pending) > 0 {
					pending = append(pending, " ")
				}
				continue
			}
			switch tok {
			case "BT":
				inText = true
				pending = pending[:0]
			case "ET":
				inText = false
				newline()
				pending = pending[:0]
			case "Tj", "TJ":
				if inText {
					out.WriteString(strings.Join(pending, ""))
				}
				pending = pending[:0]
			case "'", "\"":
				if inText {
					newline()
					out.WriteString(strings.Join(pending, ""))
				}
				pending = pending[:0]
			case "Td", "TD", "T*", "Tm":
				if inText {
					newline()
				}
				pending = pending[:0]
			default:
				pending = pending[:0]
			}
		}
	}

	return out.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return c == '(' || c == ')' || c == '<' || c == '>' || c == '[' || c == ']' || c == '/' || c == '%'
}

// readLiteral decodes a balanced (...) string starting at stream[i].
func readLiteral(stream []byte, i int) (string, int) {
	var b strings.Builder
	depth := 0
	for i < len(stream) {
		c := stream[i]
		switch {
		case c == '\\' && i+1 < len(stream):
			i++
			e := stream[i]
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\n', '\r':
			default:
				if e >= '0' && e <= '7' {
					j := i
					for j < len(stream) && j < i+3 && stream[j] >= '0' && stream[j] <= '7' {
						j++
					}
					v, _ := strconv.ParseUint(string(stream[i:j]), 8, 8)
					b.WriteByte(byte(v))
					i = j - 1
				} else {
					b.WriteByte(e)
				}
			}
		case c == '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String(), i
}

// readHex decodes a <...> hex string starting at stream[i].
func readHex(stream []byte, i int) (string, int) {
	end := i + 1
	for end < len(stream) && stream[end] != '>' {
		end++
	}
	digits := make([]byte, 0, end-i)
	for _, c := range stream[i+1 : end] {
		if !isSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	var b strings.Builder
	for k := 0; k+1 < len(digits); k += 2 {
		v, err := strconv.ParseUint(string(digits[k:k+2]), 16, 8)
		if err != nil {
			continue
		}
		if v != 0 {
			b.WriteByte(byte(v))
		}
	}
	return b.String(), end + 1
}
