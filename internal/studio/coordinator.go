// Package studio owns the client application state of a code studio
// session: theme, panels, editor buffer, chat log, output panel and
// notifications.
//
// UNIDIRECTIONAL DATA FLOW:
// A Coordinator is the single source of truth for one session. Handlers
// call its action methods, the methods change State only through update,
// and every change is pushed to subscribers as a fresh snapshot. The UI is
// a pure function of the last snapshot it received.
//
// Network calls (assistant, executor, snippet store) always run outside
// the coordinator's lock; their results are applied with another update.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-studio/internal/apperror"
	"github.com/sakif/code-studio/internal/assistant"
	"github.com/sakif/code-studio/internal/editor"
	"github.com/sakif/code-studio/internal/executor"
	"github.com/sakif/code-studio/internal/model"
	"github.com/sakif/code-studio/internal/repository"
	"github.com/sakif/code-studio/internal/service"
)

// Snippets is the snippet business logic the studio needs.
// *service.SnippetService satisfies it.
type Snippets interface {
	Create(ctx context.Context, userID string, in service.SnippetInput) (*model.Snippet, error)
	Get(ctx context.Context, id, userID string) (*model.Snippet, error)
	List(ctx context.Context, q model.SnippetQuery) ([]model.Snippet, error)
	Update(ctx context.Context, id, userID string, u service.SnippetUpdate) (*model.Snippet, error)
	Delete(ctx context.Context, id, userID string) error
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Assistant   assistant.Service
	Executor    executor.Executor
	Snippets    Snippets
	Preferences repository.PreferenceRepository
	Logger      *slog.Logger
}

// Options tune a session.
type Options struct {
	InlineDebounce    time.Duration
	ChatFallbackDelay time.Duration
	// ExecutorEndpoint is shown in connection error output.
	ExecutorEndpoint string
	// SubscriberBuffer is the per-subscriber event queue length.
	SubscriberBuffer int
	// ChatPace and PromptPace drive the typing animations of chat and
	// editor-prompt modifications. A zero Pace types instantly.
	ChatPace   editor.Pace
	PromptPace editor.Pace
	// IdleTimeout closes sessions not used for that long; zero keeps them
	// until shutdown.
	IdleTimeout time.Duration
	// MaxSessions caps live sessions; the least recently used idle one is
	// closed to make room. Zero means no cap.
	MaxSessions int
}

// DefaultOptions are the standard studio timings.
func DefaultOptions() Options {
	return Options{
		InlineDebounce:    editor.DefaultDebounce,
		ChatFallbackDelay: time.Second,
		SubscriberBuffer:  64,
		ChatPace:          editor.ChatPace,
		PromptPace:        editor.PromptPace,
		IdleTimeout:       30 * time.Minute,
		MaxSessions:       10000,
	}
}

// Coordinator is the Global Client State Coordinator of one session.
type Coordinator struct {
	key    string
	deps   Deps
	opts   Options
	logger *slog.Logger

	completer    *editor.InlineCompleter
	chatWriter   *editor.Typewriter
	promptWriter *editor.Typewriter

	ctx    context.Context // cancelled by Close
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time

	mu      sync.Mutex
	state   State
	browser *SnippetBrowser // nil while signed out
	anim    *animation
	subs    map[int]chan Event
	nextSub int
	closed  bool

	saved model.Preferences // last preferences written, guarded by mu

	persistMu sync.Mutex // serializes preference writes; taken before mu
}

// New creates the coordinator for the session key and restores its saved
// preferences. user is nil for signed-out sessions.
func New(ctx context.Context, key string, user *model.User, deps Deps, opts Options) *Coordinator {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = DefaultOptions().SubscriberBuffer
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("session", key))

	lifetime, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Coordinator{
		key:          key,
		deps:         deps,
		opts:         opts,
		logger:       logger,
		completer:    editor.NewInlineCompleter(deps.Assistant, opts.InlineDebounce, logger),
		chatWriter:   editor.NewTypewriter(opts.ChatPace),
		promptWriter: editor.NewTypewriter(opts.PromptPace),
		ctx:          lifetime,
		cancel:       cancel,
		now:          time.Now,
		state:        defaultState(),
		subs:         make(map[int]chan Event),
	}

	if deps.Preferences != nil {
		prefs, err := deps.Preferences.LoadPreferences(ctx, key)
		switch {
		case err == nil:
			c.state.restore(prefs)
		case errors.Is(err, apperror.ErrNotFound):
		default:
			logger.Warn("failed to restore preferences", slog.String("error", err.Error()))
		}
	}
	c.saved = c.state.preferences()

	if user != nil {
		c.setUserLocked(user)
	}
	return c
}

// SetUser changes who is signed in to the session. The buffer, theme and
// chat stay; signing in opens the user's snippet browser and greets them,
// signing out drops it. Setting the current user again does nothing.
func (c *Coordinator) SetUser(user *model.User) {
	if c.UserID() == idOf(user) {
		return
	}
	c.update(func(s *State) {
		if userIDOf(s) != idOf(user) {
			c.setUserLocked(user)
		}
	})
}

func (c *Coordinator) setUserLocked(user *model.User) {
	if user == nil {
		c.state.User = nil
		c.browser = nil
		return
	}
	u := *user
	c.state.User = &u
	c.browser = newSnippetBrowser(c.deps.Snippets, u.ID, c.notify, c.logger)
	c.notifyLocked(LevelSuccess, "Welcome back, "+u.DisplayName()+"!", "")
}

// Key returns the session key.
func (c *Coordinator) Key() string { return c.key }

// UserID returns the signed-in user's ID, or "".
func (c *Coordinator) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.User == nil {
		return ""
	}
	return c.state.User.ID
}

// Browser returns the snippet management screen state, or nil while
// signed out.
func (c *Coordinator) Browser() *SnippetBrowser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browser
}

// idle reports whether no event stream is attached.
func (c *Coordinator) idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) == 0
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel of events and a function that unsubscribes
// and closes it. A subscriber that falls behind loses events; the next
// state event it receives is always complete.
func (c *Coordinator) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, c.opts.SubscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Wait blocks until running typing animations have committed or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops background work, commits any running animation, persists
// the final state and closes all subscriptions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.interruptLocked()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.completer.Close()
	c.cancel()
	c.wg.Wait()
	c.persist()
}

// update applies fn to the state under the lock and publishes the result.
// Preferences are written afterwards when theme, code or language changed.
func (c *Coordinator) update(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	c.publishStateLocked()
	dirty := c.state.preferences() != c.saved
	c.mu.Unlock()

	if dirty {
		c.persist()
	}
}

// persist writes the latest preferences. Writes are serialized and always
// read the state at write time, so the last write reflects the last change.
func (c *Coordinator) persist() {
	if c.deps.Preferences == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	prefs, saved := c.state.preferences(), c.saved
	c.mu.Unlock()
	if prefs == saved {
		return
	}
	if err := c.deps.Preferences.SavePreferences(context.WithoutCancel(c.ctx), c.key, prefs); err != nil {
		c.logger.Warn("failed to persist preferences", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	c.saved = prefs
	c.mu.Unlock()
}

func (c *Coordinator) publishStateLocked() {
	snap := c.state.clone()
	c.publishLocked(Event{Type: EventState, State: &snap})
}

func (c *Coordinator) publishLocked(ev Event) {
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// notify raises a notification outside of an update.
func (c *Coordinator) notify(level Level, message, description string, actions ...Action) {
	c.update(func(*State) {
		c.notifyLocked(level, message, description, actions...)
	})
}

func (c *Coordinator) notifyLocked(level Level, message, description string, actions ...Action) {
	n := Notification{
		ID:          xid.New().String(),
		Level:       level,
		Message:     message,
		Description: description,
		Actions:     actions,
		CreatedAt:   c.now(),
	}
	c.state.Notifications = append(c.state.Notifications, n)
	if over := len(c.state.Notifications) - MaxNotifications; over > 0 {
		c.state.Notifications = c.state.Notifications[over:]
	}
	c.publishLocked(Event{Type: EventNotification, Notification: &n})
}

// DismissNotification removes a notification by ID.
func (c *Coordinator) DismissNotification(id string) {
	c.update(func(s *State) {
		for i, n := range s.Notifications {
			if n.ID == id {
				s.Notifications = append(s.Notifications[:i:i], s.Notifications[i+1:]...)
				return
			}
		}
	})
}

func (c *Coordinator) appendMessageLocked(t model.MessageType, content string) {
	c.state.Chat = append(c.state.Chat, model.ChatMessage{
		ID:        xid.New().String(),
		Type:      t,
		Content:   content,
		Timestamp: c.now(),
	})
}

// ===== toggles =====

// ToggleTheme flips between dark and light. The theme is persisted.
func (c *Coordinator) ToggleTheme() State {
	return c.apply(func(s *State) {
		if s.Theme == model.ThemeDark {
			s.Theme = model.ThemeLight
		} else {
			s.Theme = model.ThemeDark
		}
	})
}

func (c *Coordinator) ToggleSidebar() State {
	return c.apply(func(s *State) { s.SidebarOpen = !s.SidebarOpen })
}

func (c *Coordinator) ToggleOutputSidebar() State {
	return c.apply(func(s *State) { s.OutputSidebarOpen = !s.OutputSidebarOpen })
}

// ToggleAssistant enables or disables every AI feature of the session.
func (c *Coordinator) ToggleAssistant() State {
	return c.apply(func(s *State) { s.AssistantEnabled = !s.AssistantEnabled })
}

// ToggleInlineCompletions flips ghost-text completions. Turning them off
// drops the visible suggestion and any request in flight.
func (c *Coordinator) ToggleInlineCompletions() State {
	return c.apply(func(s *State) {
		s.InlineEnabled = !s.InlineEnabled
		if s.InlineEnabled {
			c.notifyLocked(LevelSuccess, "✨ AI Inline Completions Enabled", "Start typing to see AI suggestions")
			return
		}
		c.completer.Dismiss()
		s.InlineSuggestion = nil
		c.notifyLocked(LevelInfo, "🔇 AI Inline Completions Disabled", "You can re-enable them anytime")
	})
}

// apply is update returning the resulting snapshot.
func (c *Coordinator) apply(fn func(s *State)) State {
	var snap State
	c.update(func(s *State) {
		fn(s)
		snap = s.clone()
	})
	return snap
}

// ===== editor buffer =====

// SetCode replaces the buffer with what the user typed. It interrupts a
// running animation and invalidates the visible inline suggestion.
func (c *Coordinator) SetCode(code string) State {
	return c.apply(func(s *State) {
		c.interruptLocked()
		c.completer.Dismiss()
		s.InlineSuggestion = nil
		s.Code = code
	})
}

// SetLanguage selects a new editor language. A blank buffer gets the
// language's boilerplate at once; otherwise the switch waits in
// PendingSwitch for ResolveLanguageSwitch. The language changes either way.
func (c *Coordinator) SetLanguage(language string) (State, error) {
	if _, ok := editor.Lookup(language); !ok {
		return c.Snapshot(), apperror.ValidationFailed("language", "unsupported editor language "+language)
	}
	return c.apply(func(s *State) {
		d := editor.DecideSwitch(s.Code, language)
		s.Language = d.Language
		s.PendingSwitch = nil
		if d.Replaced {
			c.replaceBufferLocked(d.Code)
			return
		}
		s.PendingSwitch = &PendingSwitch{Language: d.Language, Name: d.Name, Prompt: d.ConfirmPrompt()}
		c.notifyLocked(LevelInfo, d.ConfirmPrompt(), "You have existing code. Choose what to do:",
			Action{Label: "Replace Code", Command: CommandReplaceCode},
			Action{Label: "Keep Code", Command: CommandKeepCode},
		)
	}), nil
}

// ResolveLanguageSwitch answers the pending replace-boilerplate question.
func (c *Coordinator) ResolveLanguageSwitch(replace bool) (State, error) {
	var err error
	snap := c.apply(func(s *State) {
		p := s.PendingSwitch
		if p == nil {
			err = apperror.PreconditionFailed("no language switch is waiting for confirmation")
			return
		}
		s.PendingSwitch = nil
		if replace {
			c.replaceBufferLocked(editor.Boilerplate(p.Language))
			c.notifyLocked(LevelSuccess, editor.ReplacedMessage(p.Name), "")
			return
		}
		c.notifyLocked(LevelInfo, editor.KeptMessage(p.Name), "")
	})
	return snap, err
}

// LoadCode replaces the buffer wholesale, e.g. with a snippet's code.
func (c *Coordinator) LoadCode(code string) State {
	return c.apply(func(s *State) {
		c.replaceBufferLocked(code)
		c.notifyLocked(LevelSuccess, "Code loaded successfully!", "")
	})
}

// replaceBufferLocked is the single setter for programmatic buffer changes.
func (c *Coordinator) replaceBufferLocked(code string) {
	c.interruptLocked()
	c.completer.Dismiss()
	c.state.InlineSuggestion = nil
	c.state.Code = code
}

// ===== inline completion =====

// RequestInlineCompletion asks for ghost text at pos after the debounce
// period. typed is the character that triggered the request, or 0 for an
// explicit request. It returns nil when completions are off, the
// character is not a trigger, the request was superseded or the assistant
// had nothing to offer.
func (c *Coordinator) RequestInlineCompletion(ctx context.Context, pos model.Position, typed rune) *editor.Suggestion {
	c.mu.Lock()
	s := &c.state
	if !s.InlineEnabled || !s.AssistantEnabled || editor.IsBlank(s.Code) || (typed != 0 && !editor.IsTrigger(typed)) {
		c.mu.Unlock()
		return nil
	}
	req := assistant.InlineRequest{
		Code:           s.Code,
		Position:       pos,
		Language:       s.Language,
		UserID:         userIDOf(s),
		LineContent:    editor.LineContent(s.Code, pos.LineNumber),
		WordAtPosition: editor.WordAt(s.Code, pos),
	}
	c.mu.Unlock()

	sg := c.completer.Request(ctx, req)
	if sg == nil {
		return nil
	}

	var shown *editor.Suggestion
	c.update(func(s *State) {
		// A dismissal or newer request may have landed after Request returned.
		if cur := c.completer.Current(); cur != nil && cur.Generation == sg.Generation {
			cp := *sg
			s.InlineSuggestion = &cp
			shown = sg
		}
	})
	return shown
}

// AcceptInlineCompletion inserts the visible suggestion at its anchor.
func (c *Coordinator) AcceptInlineCompletion() (State, error) {
	var err error
	snap := c.apply(func(s *State) {
		code, ok := c.completer.Accept(s.Code)
		if !ok {
			err = apperror.PreconditionFailed("no inline suggestion to accept")
			return
		}
		c.interruptLocked()
		s.InlineSuggestion = nil
		s.Code = code
	})
	return snap, err
}

// DismissInlineCompletion hides the visible suggestion.
func (c *Coordinator) DismissInlineCompletion() State {
	return c.apply(func(s *State) {
		c.completer.Dismiss()
		s.InlineSuggestion = nil
	})
}

func userIDOf(s *State) string {
	return idOf(s.User)
}

func idOf(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
