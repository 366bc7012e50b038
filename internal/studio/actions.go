package studio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/code-studio/internal/apiclient"
	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/service"
)

// User-visible texts of the assistant flows.
const (
	msgExplainPrompt    = "Explain this code"
	msgExplainFailed    = "Sorry, I couldn't explain this code right now. Please try again."
	toastExplainFailed  = "Failed to explain code. Please try again."
	msgSuggestPrompt    = "Suggest improvements for this code"
	msgSuggestFailed    = "// Unable to generate suggestion at this time"
	toastSuggestFailed  = "Failed to generate code suggestions. Please try again."
	msgChatUnchanged    = "No changes were needed for this code. Try being more specific in your request."
	msgChatFailed       = "Sorry, I couldn't process your request right now. Please try again."
	toastChatFailed     = "Failed to process chat request. Please try again."
	toastModifyNoop     = "No changes were made to the code. Try being more specific."
	toastModifyFailed   = "Code Modification Failed"
	msgModifyFailed     = "Failed to modify code. Please try again."
	toastModifySuccess  = "Code Modified Successfully!"
	toastSignInToSave   = "Please sign in to save your code!"
	toastSaveFailed     = "Failed to save code. Please try again."
	toastLoadFailed     = "Failed to load code. Please try again."
	defaultSaveDesc     = "Quick saved code snippet"
	suggestionDesc      = "AI-generated code suggestion"
	suggestionErrorDesc = "Error generating suggestion"
)

// quickSaveTitleLayout renders timestamps like "3/14/2026, 9:26:53 AM".
const quickSaveTitleLayout = "1/2/2006, 3:04:05 PM"

// ExplainCode asks the assistant to explain the buffer. The explanation
// goes to the chat log and the explanation panel. Failures become a chat
// message and a notification; only guard failures are returned.
func (c *Coordinator) ExplainCode(ctx context.Context) error {
	var req assistant.ExplainRequest
	var guard error
	c.update(func(s *State) {
		if guard = c.assistantGuardLocked(); guard != nil {
			return
		}
		if s.IsExplaining {
			guard = apperror.PreconditionFailed("an explanation is already in progress")
			return
		}
		s.IsExplaining = true
		s.ActivePanel = PanelExplanation
		s.Explanation = ""
		c.appendMessageLocked(model.MessageUser, msgExplainPrompt)
		req = assistant.ExplainRequest{Code: s.Code, UserID: userIDOf(s)}
	})
	if guard != nil {
		return guard
	}

	explanation, err := c.deps.Assistant.Explain(context.WithoutCancel(ctx), req)

	c.update(func(s *State) {
		s.IsExplaining = false
		if err != nil {
			c.logger.Error("explain failed", slog.String("error", err.Error()))
			s.Explanation = msgExplainFailed
			c.appendMessageLocked(model.MessageAI, msgExplainFailed)
			c.notifyLocked(LevelError, toastExplainFailed, "")
			return
		}
		s.Explanation = explanation
		c.appendMessageLocked(model.MessageAI, explanation)
	})
	return nil
}

// Autocomplete asks the assistant for one improved version of the buffer
// and shows it as the single entry of the suggestions panel.
func (c *Coordinator) Autocomplete(ctx context.Context) error {
	var req assistant.SuggestRequest
	var language string
	var guard error
	c.update(func(s *State) {
		if guard = c.assistantGuardLocked(); guard != nil {
			return
		}
		if s.IsSuggesting {
			guard = apperror.PreconditionFailed("a suggestion is already in progress")
			return
		}
		s.IsSuggesting = true
		s.ActivePanel = PanelSuggestions
		s.Suggestions = []CodeSuggestion{}
		c.appendMessageLocked(model.MessageUser, msgSuggestPrompt)
		req = assistant.SuggestRequest{Code: s.Code, UserID: userIDOf(s)}
		language = s.Language
	})
	if guard != nil {
		return guard
	}

	suggestion, err := c.deps.Assistant.Suggest(context.WithoutCancel(ctx), req)

	c.update(func(s *State) {
		s.IsSuggesting = false
		if err != nil {
			c.logger.Error("autocomplete failed", slog.String("error", err.Error()))
			s.Suggestions = []CodeSuggestion{{Code: msgSuggestFailed, Description: suggestionErrorDesc}}
			c.notifyLocked(LevelError, toastSuggestFailed, "")
			return
		}
		s.Suggestions = []CodeSuggestion{{Code: suggestion, Description: suggestionDesc}}
		c.appendMessageLocked(model.MessageAI, fmt.Sprintf("Here's a suggested improvement:\n\n```%s\n%s\n```", language, suggestion))
	})
	return nil
}

// ChatSubmit appends the user's message and answers it. Messages that look
// like change requests go to the code modification endpoint and may
// rewrite the buffer through the chat typing animation; anything else gets
// the local fallback reply after ChatFallbackDelay.
func (c *Coordinator) ChatSubmit(ctx context.Context, message string) error {
	var req assistant.ModifyRequest
	var guard error
	modification := IsCodeModificationRequest(message)
	c.update(func(s *State) {
		if !s.AssistantEnabled {
			guard = apperror.PreconditionFailed("the AI assistant is disabled")
			return
		}
		if strings.TrimSpace(message) == "" {
			guard = apperror.ValidationFailed("message", "message is required")
			return
		}
		if s.IsTyping {
			guard = apperror.PreconditionFailed("the assistant is still answering")
			return
		}
		c.appendMessageLocked(model.MessageUser, message)
		s.IsTyping = true
		s.Flow = FlowUserSubmitted
		req = assistant.ModifyRequest{
			Message:     message,
			CurrentCode: s.Code,
			Language:    s.Language,
			UserID:      userIDOf(s),
		}
	})
	if guard != nil {
		return guard
	}

	if !modification {
		c.replyLocally(message)
		return nil
	}

	c.update(func(s *State) { s.Flow = FlowAwaitingBackend })
	res, err := c.deps.Assistant.ModifyCode(context.WithoutCancel(ctx), req)
	if err == nil && !res.Unchanged && res.ModifiedCode == "" {
		err = fmt.Errorf("studio: modification returned no code")
	}

	c.update(func(s *State) {
		s.IsTyping = false
		switch {
		case err != nil:
			c.logger.Error("chat modification failed", slog.String("error", err.Error()))
			s.Flow, s.LastOutcome = FlowFailed, FlowFailed
			c.appendMessageLocked(model.MessageAI, msgChatFailed)
			c.notifyLocked(LevelError, toastChatFailed, "")
		case res.Unchanged:
			s.Flow, s.LastOutcome = FlowUnchanged, FlowUnchanged
			c.appendMessageLocked(model.MessageAI, firstNonEmpty(res.Message, msgChatUnchanged))
		default:
			s.Flow, s.LastOutcome = FlowModified, FlowModified
			c.appendMessageLocked(model.MessageAI, firstNonEmpty(res.Explanation,
				fmt.Sprintf("I've updated your code based on your request. Here's what I did:\n\n```%s\n%s\n```", req.Language, res.ModifiedCode)))
		}
	})

	c.update(func(s *State) {
		if err == nil && !res.Unchanged {
			c.startAnimationLocked(res.ModifiedCode, c.chatWriter, nil)
			return
		}
		s.Flow = FlowIdle
	})
	return nil
}

// replyLocally answers a non-modification message without any request.
func (c *Coordinator) replyLocally(message string) {
	c.update(func(s *State) { s.Flow = FlowAwaitingBackend })

	timer := time.NewTimer(c.opts.ChatFallbackDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.ctx.Done():
	}

	c.update(func(s *State) {
		s.IsTyping = false
		s.Flow, s.LastOutcome = FlowIdle, FlowUnchanged
		c.appendMessageLocked(model.MessageAI, FallbackReply(message))
	})
}

// ModifyCode is the editor's prompt-driven whole-buffer modification. The
// result replaces the buffer through the faster editor typing animation;
// outcomes are reported as notifications only.
func (c *Coordinator) ModifyCode(ctx context.Context, prompt string) error {
	var req assistant.ModifyRequest
	var guard error
	c.update(func(s *State) {
		if !s.AssistantEnabled {
			guard = apperror.PreconditionFailed("the AI assistant is disabled")
			return
		}
		if strings.TrimSpace(prompt) == "" {
			guard = apperror.ValidationFailed("prompt", "prompt is required")
			return
		}
		if s.IsModifying {
			guard = apperror.PreconditionFailed("a modification is already in progress")
			return
		}
		s.IsModifying = true
		req = assistant.ModifyRequest{
			Message:     prompt,
			CurrentCode: s.Code,
			Language:    s.Language,
			UserID:      userIDOf(s),
		}
	})
	if guard != nil {
		return guard
	}

	res, err := c.deps.Assistant.ModifyCode(context.WithoutCancel(ctx), req)

	c.update(func(s *State) {
		s.IsModifying = false
		switch {
		case err != nil:
			c.logger.Error("code modification failed", slog.String("error", err.Error()))
			desc, ok := apiclient.BackendMessage(err)
			if !ok {
				desc = msgModifyFailed
			}
			c.notifyLocked(LevelError, toastModifyFailed, desc)
		case res.Unchanged:
			c.notifyLocked(LevelInfo, firstNonEmpty(res.Message, toastModifyNoop),
				"The AI didn't find any modifications to make based on your request.")
		case res.ModifiedCode == "":
			c.notifyLocked(LevelError, toastModifyFailed, msgModifyFailed)
		default:
			c.startAnimationLocked(res.ModifiedCode, c.promptWriter, func() {
				c.notifyLocked(LevelSuccess, toastModifySuccess, "Your code has been updated with AI modifications.")
			})
		}
	})
	return nil
}

// QuickSave stores the buffer as a new snippet of the signed-in user.
// Title and description default when empty. Without a user no request is
// made: a sign-in prompt is raised and ErrUnauthenticated returned.
func (c *Coordinator) QuickSave(ctx context.Context, title, description string) (*model.Snippet, error) {
	var in service.SnippetInput
	var userID string
	var guard error
	c.update(func(s *State) {
		if editor.IsBlank(s.Code) {
			guard = apperror.PreconditionFailed("no code to save")
			return
		}
		if s.User == nil {
			c.notifyLocked(LevelError, toastSignInToSave, "", Action{Label: "Sign In", Command: CommandSignIn})
			guard = apperror.Unauthenticated("sign in to save code")
			return
		}
		if s.IsSaving {
			guard = apperror.PreconditionFailed("a save is already in progress")
			return
		}
		s.IsSaving = true
		userID = s.User.ID
		in = service.SnippetInput{
			Title:       strings.TrimSpace(title),
			Description: strings.TrimSpace(description),
			Code:        s.Code,
			Language:    s.Language,
		}
	})
	if guard != nil {
		return nil, guard
	}

	explicitTitle := in.Title != ""
	if !explicitTitle {
		in.Title = "Code Snippet " + c.now().Format(quickSaveTitleLayout)
	}
	if in.Description == "" {
		in.Description = defaultSaveDesc
	}

	snippet, err := c.deps.Snippets.Create(context.WithoutCancel(ctx), userID, in)

	c.update(func(s *State) {
		s.IsSaving = false
		switch {
		case err != nil:
			c.logger.Error("quick save failed", slog.String("error", err.Error()))
			c.notifyLocked(LevelError, toastSaveFailed, "")
		case explicitTitle:
			c.notifyLocked(LevelSuccess, fmt.Sprintf("%q saved successfully!", in.Title), "")
		default:
			c.notifyLocked(LevelSuccess, "Code saved successfully!", "")
		}
	})
	if err != nil {
		return nil, err
	}
	// The user may have signed out, or in as someone else, meanwhile.
	if b := c.Browser(); b != nil && b.userID == userID {
		b.absorb(*snippet)
	}
	return snippet, nil
}

// LoadSnippet loads one of the user's snippets into the editor, code and
// language both.
func (c *Coordinator) LoadSnippet(ctx context.Context, id string) (*model.Snippet, error) {
	userID := c.UserID()
	if userID == "" {
		c.notify(LevelError, "Please sign in to load your code!", "", Action{Label: "Sign In", Command: CommandSignIn})
		return nil, apperror.Unauthenticated("sign in to load code")
	}

	snippet, err := c.deps.Snippets.Get(ctx, id, userID)
	if err != nil {
		c.notify(LevelError, toastLoadFailed, "")
		return nil, err
	}

	c.update(func(s *State) {
		c.replaceBufferLocked(snippet.Code)
		// Catalog-only languages have no editor mode; keep the current one.
		if _, ok := editor.Lookup(snippet.Language); ok {
			s.Language = snippet.Language
		}
		s.PendingSwitch = nil
		c.notifyLocked(LevelSuccess, "Code loaded successfully!", "")
	})
	return snippet, nil
}

// RunCode executes the buffer and fills the output panel. An empty buffer
// shows the "no code" view without a request.
func (c *Coordinator) RunCode(ctx context.Context) (executor.OutputView, error) {
	var req executor.Request
	var guard error
	var empty bool
	c.update(func(s *State) {
		if s.IsRunning {
			guard = apperror.PreconditionFailed("code is already running")
			return
		}
		s.OutputSidebarOpen = true
		if editor.IsBlank(s.Code) {
			v := executor.EmptyBufferView()
			s.Output = &v
			empty = true
			return
		}
		s.IsRunning = true
		s.Output = nil
		req = executor.Request{SourceCode: s.Code, Language: s.Language}
	})
	if guard != nil {
		return executor.OutputView{}, guard
	}
	if empty {
		return executor.EmptyBufferView(), nil
	}

	start := time.Now()
	res, err := c.deps.Executor.Execute(context.WithoutCancel(ctx), req)
	elapsed := time.Since(start)

	var view executor.OutputView
	if err != nil {
		c.logger.Warn("execution failed", slog.String("language", req.Language), slog.String("error", err.Error()))
		view = executor.FailureView(err, elapsed, c.opts.ExecutorEndpoint)
	} else {
		view = executor.ResultView(res, elapsed)
	}

	c.update(func(s *State) {
		s.IsRunning = false
		v := view
		s.Output = &v
	})
	return view, nil
}

// ClearOutput empties the output panel.
func (c *Coordinator) ClearOutput() State {
	return c.apply(func(s *State) { s.Output = nil })
}

// assistantGuardLocked checks the preconditions shared by explain and
// autocomplete.
func (c *Coordinator) assistantGuardLocked() error {
	if !c.state.AssistantEnabled {
		return apperror.PreconditionFailed("the AI assistant is disabled")
	}
	if editor.IsBlank(c.state.Code) {
		return apperror.PreconditionFailed("there is no code to work with")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ===== typing animation =====

// animation is a running typewriter replay of a modification result.
// Whoever clears c.anim while holding the lock commits text, so every
// animation commits exactly once.
type animation struct {
	text     string
	cancel   context.CancelFunc
	onCommit func()
}

// startAnimationLocked replays text into the buffer. A running animation
// is committed first. Frames are published as frame events; the buffer
// itself only changes on commit.
func (c *Coordinator) startAnimationLocked(text string, tw *editor.Typewriter, onCommit func()) {
	c.interruptLocked()

	a := &animation{text: text, onCommit: onCommit}
	if c.closed {
		c.commitLocked(a)
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	a.cancel = cancel
	c.anim = a
	c.completer.Dismiss()
	c.state.InlineSuggestion = nil
	c.state.Animating = true
	c.state.Flow = FlowAnimating

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		tw.Play(ctx, text, func(partial string) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.anim != a {
				return false
			}
			c.publishLocked(Event{Type: EventFrame, Frame: &partial})
			return true
		})

		c.update(func(*State) {
			if c.anim == a {
				c.commitLocked(a)
			}
		})
	}()
}

// interruptLocked stops the running animation, committing its full text.
func (c *Coordinator) interruptLocked() {
	if a := c.anim; a != nil {
		if a.cancel != nil {
			a.cancel()
		}
		c.commitLocked(a)
	}
}

func (c *Coordinator) commitLocked(a *animation) {
	c.anim = nil
	c.state.Code = a.text
	c.state.Animating = false
	if c.state.Flow == FlowAnimating {
		c.state.Flow = FlowIdle
	}
	if a.onCommit != nil {
		a.onCommit()
	}
}
