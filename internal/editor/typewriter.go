package editor

import (
	"context"
	"math/rand/v2"
	"regexp"
	"time"
)

var tokenPattern = regexp.MustCompile(`[\w]+|[^\w\s]|\s+`)

// Tokenize splits text into words, single punctuation marks and whitespace
// runs. Joining the tokens yields text again.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// Pace controls typing speed: each token waits
// Base × (1 − Variation/2 + rand×Variation) × max(len(token), 1).
type Pace struct {
	Base      time.Duration
	Variation float64
}

// ChatPace replays chat-driven modifications; PromptPace replays the
// editor's whole-buffer prompt modifications.
var (
	ChatPace   = Pace{Base: 30 * time.Millisecond, Variation: 0.5}
	PromptPace = Pace{Base: 10 * time.Millisecond, Variation: 0.1}
)

// Delay returns the pause after typing token for a random sample r in [0,1).
func (p Pace) Delay(token string, r float64) time.Duration {
	factor := 1 - p.Variation/2 + r*p.Variation
	return time.Duration(float64(p.Base) * factor * float64(max(len(token), 1)))
}

// Typewriter replays text into a buffer one token at a time.
type Typewriter struct {
	pace  Pace
	rand  func() float64
	sleep func(ctx context.Context, d time.Duration) error
}

func NewTypewriter(p Pace) *Typewriter {
	return &Typewriter{pace: p, rand: rand.Float64, sleep: sleepCtx}
}

// Play clears the buffer, then calls frame with each growing prefix of
// text. It stops early, returning false, when frame returns false or ctx
// ends. Play never commits: the caller sets the final text itself.
func (t *Typewriter) Play(ctx context.Context, text string, frame func(partial string) bool) bool {
	if !frame("") {
		return false
	}
	acc := make([]byte, 0, len(text))
	for _, tok := range Tokenize(text) {
		acc = append(acc, tok...)
		if !frame(string(acc)) {
			return false
		}
		if err := t.sleep(ctx, t.pace.Delay(tok, t.rand())); err != nil {
			return false
		}
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
