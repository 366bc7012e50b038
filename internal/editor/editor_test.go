package editor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/code-studio/internal/model"
)

func TestBoilerplate(t *testing.T) {
	assert.Contains(t, Boilerplate("python"), "def main():")
	assert.Equal(t, "// Welcome to cpp!\n// Start coding here...", Boilerplate("cpp"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "JavaScript", DisplayName("javascript"))
	assert.Equal(t, "Python", DisplayName("python"))
}

func TestIsTrigger(t *testing.T) {
	for _, r := range ". ({[\"'_=" {
		assert.True(t, IsTrigger(r), "%q", r)
	}
	for _, r := range "a1;)\n" {
		assert.False(t, IsTrigger(r), "%q", r)
	}
}

func TestLineContent(t *testing.T) {
	code := "first\r\nsecond\nthird"

	assert.Equal(t, "first", LineContent(code, 1))
	assert.Equal(t, "third", LineContent(code, 3))
	assert.Equal(t, "", LineContent(code, 0))
	assert.Equal(t, "", LineContent(code, 4))
}

func TestWordAt(t *testing.T) {
	code := "const total = sum_all(items)"
	tests := []struct {
		col  int
		want string
	}{
		{1, "const"},
		{6, "const"},
		{8, "total"},
		{15, "sum_all"},
		{22, "sum_all"},
		{13, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WordAt(code, model.Position{LineNumber: 1, Column: tt.col}), "column %d", tt.col)
	}

	// The emoji takes columns 1 and 2.
	assert.Equal(t, "name", WordAt("😀 name", model.Position{LineNumber: 1, Column: 4}))
	assert.Equal(t, "cd", WordAt("ab\r\ncd", model.Position{LineNumber: 2, Column: 3}))
}

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name string
		code string
		pos  model.Position
		want string
	}{
		{"middle of line", "console.(x)", model.Position{LineNumber: 1, Column: 9}, "console.log(x)"},
		{"second line", "a\nb", model.Position{LineNumber: 2, Column: 2}, "a\nblog"},
		{"column clamped", "ab", model.Position{LineNumber: 1, Column: 50}, "ablog"},
		{"line past end", "ab", model.Position{LineNumber: 9, Column: 1}, "ablog"},
		{"multibyte", "é.", model.Position{LineNumber: 1, Column: 3}, "é.log"},
		{"crlf end of line", "ab\r\ncd", model.Position{LineNumber: 1, Column: 3}, "ablog\r\ncd"},
		{"crlf column clamped", "ab\r\ncd", model.Position{LineNumber: 1, Column: 50}, "ablog\r\ncd"},
		{"astral char spans two columns", "😀.x", model.Position{LineNumber: 1, Column: 4}, "😀.logx"},
		{"column inside surrogate pair", "😀.x", model.Position{LineNumber: 1, Column: 2}, "😀log.x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InsertAt(tt.code, tt.pos, "log"))
		})
	}
}

func TestDecideSwitch_BlankBufferLoadsBoilerplate(t *testing.T) {
	d := DecideSwitch("  \n\t", "python")

	assert.True(t, d.Replaced)
	assert.False(t, d.NeedsConfirmation)
	assert.Equal(t, Boilerplate("python"), d.Code)
	assert.Equal(t, "Switched to Python with boilerplate code!", ReplacedMessage(d.Name))
}

func TestDecideSwitch_ExistingCodeAsks(t *testing.T) {
	d := DecideSwitch("print(1)", "java")

	assert.False(t, d.Replaced)
	assert.True(t, d.NeedsConfirmation)
	assert.Equal(t, "Replace with Java boilerplate?", d.ConfirmPrompt())
	assert.Equal(t, "Language changed to Java, code preserved", KeptMessage(d.Name))
}

func TestTokenize_RoundTrips(t *testing.T) {
	inputs := []string{
		"function add(a, b) {\n  return a + b;\n}",
		"  leading and trailing  ",
		"naïve café → ok",
		"",
	}
	for _, in := range inputs {
		assert.Equal(t, in, strings.Join(Tokenize(in), ""))
	}
	assert.Equal(t, []string{"x", " ", "=", " ", "42", ";"}, Tokenize("x = 42;"))
}

func TestPaceDelay(t *testing.T) {
	assert.Equal(t, 30*time.Millisecond*3/4*5, ChatPace.Delay("hello", 0))
	assert.Equal(t, 10*time.Millisecond, Pace{Base: 10 * time.Millisecond}.Delay("", 0.7))
}

func newTestTypewriter() *Typewriter {
	tw := NewTypewriter(ChatPace)
	tw.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return tw
}

func TestTypewriter_PlaysPrefixes(t *testing.T) {
	var frames []string
	done := newTestTypewriter().Play(context.Background(), "a = 1", func(p string) bool {
		frames = append(frames, p)
		return true
	})

	assert.True(t, done)
	assert.Equal(t, []string{"", "a", "a ", "a =", "a = ", "a = 1"}, frames)
}

func TestTypewriter_StopsWhenFrameRefuses(t *testing.T) {
	n := 0
	done := newTestTypewriter().Play(context.Background(), "one two three", func(string) bool {
		n++
		return n < 3
	})

	assert.False(t, done)
	assert.Equal(t, 3, n)
}

func TestTypewriter_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var last string
	done := newTestTypewriter().Play(ctx, "one two three", func(p string) bool {
		last = p
		if p == "one" {
			cancel()
		}
		return true
	})

	assert.False(t, done)
	assert.Equal(t, "one", last)
}
