package editor

import (
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/sakif/code-studio/internal/model"
)

// triggerChars start an inline completion request when typed.
const triggerChars = `. ({["'_=`

// IsTrigger reports whether typing r should request an inline completion.
func IsTrigger(r rune) bool {
	return strings.ContainsRune(triggerChars, r)
}

// IsBlank reports whether code is empty or whitespace only.
func IsBlank(code string) bool {
	return strings.TrimSpace(code) == ""
}

// LineContent returns the text of a 1-based line, or "" when out of range.
func LineContent(code string, line int) string {
	lines := strings.Split(code, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[line-1], "\r")
}

// runeIndex converts a column into an index of line, clamped to the line.
// Columns are 1-based UTF-16 code unit offsets, the unit the browser
// editor reports, so a character outside the BMP spans two columns. A
// column inside a surrogate pair lands after that character.
func runeIndex(line []rune, column int) int {
	units := max(column-1, 0)
	for i, r := range line {
		if units <= 0 {
			return i
		}
		units -= utf16.RuneLen(r)
	}
	return len(line)
}

// WordAt returns the identifier touching pos: the word containing the
// cursor, or ending right before it.
func WordAt(code string, pos model.Position) string {
	runes := []rune(LineContent(code, pos.LineNumber))
	idx := runeIndex(runes, pos.Column)

	start, end := idx, idx
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return string(runes[start:end])
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// offset converts a 1-based position into a byte offset of code, clamping
// lines and columns that fall outside the buffer.
func offset(code string, pos model.Position) int {
	if pos.LineNumber < 1 {
		return 0
	}
	lines := strings.SplitAfter(code, "\n")
	off := 0
	for i := 0; i < pos.LineNumber-1; i++ {
		if i >= len(lines) {
			return len(code)
		}
		off += len(lines[i])
	}
	if pos.LineNumber > len(lines) {
		return len(code)
	}
	text := strings.TrimSuffix(lines[pos.LineNumber-1], "\n")
	line := []rune(strings.TrimSuffix(text, "\r"))
	return off + len(string(line[:runeIndex(line, pos.Column)]))
}

// InsertAt inserts text at pos.
func InsertAt(code string, pos model.Position, text string) string {
	off := offset(code, pos)
	return code[:off] + text + code[off:]
}
