// Package gemini implements assistant.Service directly on the Gemini API
// through google.golang.org/genai, for deployments without the hosted
// assistant backend.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/sakif/code-studio/internal/assistant"
)

var _ assistant.Service = (*Provider)(nil)

const (
	explainInstruction = `You are a senior engineer reviewing code for a learner.
Explain what the code does, step by step, in plain language. Keep it concise.`

	suggestInstruction = `You improve code. Return ONLY the improved code, with no
commentary and no markdown fences.`

	inlineInstruction = `You are an inline code completion engine. Given the code
before and after the cursor, return ONLY the text to insert at the cursor.
Return an empty reply when nothing useful fits.`

	modifyInstruction = `You edit code according to the user's instruction.
Return ONLY the complete updated code, with no commentary and no markdown fences.
If the instruction requires no change, return the code exactly as given.`
)

// generator is the one call this package needs from a model client.
type generator interface {
	generate(ctx context.Context, system, prompt string) (string, error)
}

// Provider is a Gemini-backed assistant.
type Provider struct {
	gen generator
}

// New creates a provider for model authenticated with apiKey.
func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Provider{gen: &genaiGenerator{client: client, model: model}}, nil
}

func (p *Provider) Explain(ctx context.Context, req assistant.ExplainRequest) (string, error) {
	out, err := p.gen.generate(ctx, explainInstruction, req.Code)
	if err != nil {
		return "", fmt.Errorf("gemini: explaining code: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (p *Provider) Suggest(ctx context.Context, req assistant.SuggestRequest) (string, error) {
	out, err := p.gen.generate(ctx, suggestInstruction, req.Code)
	if err != nil {
		return "", fmt.Errorf("gemini: suggesting code: %w", err)
	}
	return stripFences(out), nil
}

func (p *Provider) InlineComplete(ctx context.Context, req assistant.InlineRequest) (string, error) {
	before, after := splitAt(req.Code, req.Position.LineNumber, req.Position.Column)
	prompt := fmt.Sprintf("Language: %s\n<before>%s</before>\n<after>%s</after>", req.Language, before, after)

	out, err := p.gen.generate(ctx, inlineInstruction, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini: completing inline: %w", err)
	}
	return strings.TrimRight(stripFences(out), "\n"), nil
}

func (p *Provider) ModifyCode(ctx context.Context, req assistant.ModifyRequest) (*assistant.Modification, error) {
	prompt := fmt.Sprintf("Language: %s\nInstruction: %s\n\nCode:\n%s", req.Language, req.Message, req.CurrentCode)

	out, err := p.gen.generate(ctx, modifyInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini: modifying code: %w", err)
	}

	code := stripFences(out)
	if code == "" {
		return nil, errors.New("gemini: modifying code: empty reply")
	}
	if strings.TrimSpace(code) == strings.TrimSpace(req.CurrentCode) {
		return &assistant.Modification{
			ModifiedCode: req.CurrentCode,
			Unchanged:    true,
			Message:      "The code already satisfies this request.",
		}, nil
	}
	return &assistant.Modification{ModifiedCode: code}, nil
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return out.String(), nil
}

// stripFences removes a surrounding ``` block (with optional language tag).
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimRight(s, "\n "), "```")
	return strings.TrimRight(s, "\n")
}

// splitAt cuts code at a 1-based line/column. Out-of-range positions clamp
// to the nearest end.
func splitAt(code string, line, column int) (string, string) {
	lines := strings.SplitAfter(code, "\n")
	offset := 0
	for i := 0; i < line-1 && i < len(lines); i++ {
		offset += len(lines[i])
	}
	if line >= 1 && line <= len(lines) {
		runes := []rune(strings.TrimSuffix(lines[line-1], "\n"))
		col := min(max(column-1, 0), len(runes))
		offset += len(string(runes[:col]))
	}
	offset = min(offset, len(code))
	return code[:offset], code[offset:]
}
