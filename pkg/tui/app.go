package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/logger"
	"github.com/stepwisehq/stepwise/pkg/render"
	"github.com/stepwisehq/stepwise/pkg/session"
	"github.com/stepwisehq/stepwise/pkg/solver"
)

const (
	tickInterval  = 120 * time.Millisecond
	flashDuration = 3 * time.Second
	reportTimeout = 10 * time.Second
)

// App owns the terminal session: one screen, one solver connection, one
// conversation at a time. All component state is mutated on the event
// loop goroutine; background work reaches the loop through PostEvent.
type App struct {
	client  *solver.Client
	manager *session.Manager
	store   *chat.Store
	screen  tcell.Screen
	log     *logger.Logger

	messages MessageDisplay
	input    InputField
	status   StatusBar
	spinner  SpinnerComponent
	modal    ReportModal

	ctx        context.Context
	cancel     context.CancelFunc
	flashUntil time.Time
	width      int
	height     int
	quitting   bool
}

// New wires a fresh conversation against the given solver client.
// serverURL is only used for the status bar label.
func New(client *solver.Client, serverURL string) *App {
	app := &App{
		client:   client,
		log:      logger.WithComponent("tui"),
		messages: NewMessageDisplay(0, 0),
		input:    NewInputField(0),
		spinner:  NewSpinnerComponent(),
		modal:    NewReportModal(),
	}
	app.status = NewStatusBar(0).WithServer(serverURL)

	store := chat.NewStore()
	app.manager = session.NewManager(client, store, session.Sinks{
		OnCompleted: func(chat.Message) { app.post(NewSessionDoneEvent(nil)) },
		OnError:     func(_ chat.Message, err error) { app.post(NewSessionDoneEvent(err)) },
		OnUnknown: func(event string) {
			app.log.Debug("unknown stream event", "event", event)
		},
	})
	app.adoptStore(store)
	return app
}

// adoptStore switches the transcript source. Old stores keep their
// subscriptions, so this must only be called with stores the app will
// render from now on.
func (a *App) adoptStore(store *chat.Store) {
	a.store = store
	store.Subscribe(func() { a.post(NewStoreChangedEvent()) })
}

func (a *App) post(ev tcell.Event) {
	if a.screen == nil {
		return
	}
	// Dropped events are fine: a tick or redraw follows shortly.
	_ = a.screen.PostEvent(ev)
}

// Run blocks until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()
	return a.RunWithScreen(ctx, screen)
}

// RunWithScreen drives the event loop on an already initialized screen.
// The caller owns screen cleanup.
func (a *App) RunWithScreen(ctx context.Context, screen tcell.Screen) error {
	a.screen = screen
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	a.width, a.height = screen.Size()
	a.syncComponents()

	go a.runTicker()
	go func() {
		<-a.ctx.Done()
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	a.log.Info("tui started", "width", a.width, "height", a.height)
	a.draw()

	for !a.quitting {
		ev := a.screen.PollEvent()
		if ev == nil {
			break
		}
		a.handleEvent(ev)
		a.draw()
	}

	a.manager.CancelActive()
	a.log.Info("tui stopped")
	return nil
}

func (a *App) runTicker() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.post(NewTickEvent())
		}
	}
}

func (a *App) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.width, a.height = ev.Size()
		a.syncComponents()
		a.screen.Sync()
	case *tcell.EventInterrupt:
		a.quitting = true
	case *tcell.EventKey:
		if a.modal.Visible {
			next, consumed := a.modal.HandleKeyEvent(ev)
			a.modal = next
			if consumed {
				return
			}
		}
		a.handleKeyEvent(ev)
	case *StoreChangedEvent:
		a.messages = a.messages.WithMessages(a.store.Messages())
		a.spinner = a.spinner.WithVisibility(a.manager.Active() != nil)
	case *SessionDoneEvent:
		a.spinner = a.spinner.WithVisibility(false)
		a.messages = a.messages.WithMessages(a.store.Messages())
		if ev.Err != nil {
			a.log.Warn("session ended with error", "error", ev.Err)
		}
	case *ReportEvent:
		if ev.Err != nil {
			a.flash(fmt.Sprintf("%s failed: %v", strings.ToLower(ev.Title), ev.Err))
			return
		}
		a.modal = a.modal.Show(ev.Title, ev.Body)
	case *FlashEvent:
		a.flash(ev.Text)
	case *TickEvent:
		if a.spinner.IsVisible {
			a.spinner = a.spinner.NextFrame()
		}
		if a.status.Flash != "" && time.Now().After(a.flashUntil) {
			a.status = a.status.WithFlash("")
		}
	}
}

func (a *App) handleKeyEvent(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		a.quitting = true
	case tcell.KeyEscape:
		if a.manager.CancelActive() {
			a.flash("request cancelled")
		}
	case tcell.KeyEnter:
		a.submit()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.input = a.input.DeleteBackward()
	case tcell.KeyLeft:
		a.input = a.input.WithCursor(a.input.Cursor - 1)
	case tcell.KeyRight:
		a.input = a.input.WithCursor(a.input.Cursor + 1)
	case tcell.KeyHome:
		a.input = a.input.WithCursor(0)
	case tcell.KeyEnd:
		a.input = a.input.CursorEnd()
	case tcell.KeyUp:
		a.scrollBy(-1)
	case tcell.KeyDown:
		a.scrollBy(1)
	case tcell.KeyPgUp:
		a.scrollBy(-a.transcriptHeight())
	case tcell.KeyPgDn:
		a.scrollBy(a.transcriptHeight())
	case tcell.KeyRune:
		a.input = a.input.InsertRune(ev.Rune())
	}
}

func (a *App) submit() {
	content := strings.TrimSpace(a.input.Content)
	a.input = a.input.Clear()
	if content == "" {
		return
	}
	if strings.HasPrefix(content, "/") {
		a.runCommand(content)
		return
	}
	a.ask(content)
}

func (a *App) ask(question string) {
	a.messages = a.messages.WithFollow(true)
	go func() {
		if _, err := a.manager.Ask(a.ctx, question); err != nil {
			a.post(NewFlashEvent(fmt.Sprintf("could not send: %v", err)))
		}
	}()
}

func (a *App) runCommand(line string) {
	fields := strings.Fields(line)
	command := fields[0]
	args := fields[1:]

	switch command {
	case "/quit", "/exit":
		a.quitting = true
	case "/help":
		a.modal = a.modal.Show("Commands", helpText)
	case "/clear":
		a.adoptStore(a.manager.NewConversation())
		a.messages = NewMessageDisplay(a.messages.Width, a.messages.Height)
		a.flash("started a new conversation")
	case "/rate":
		a.rateCommand(args)
	case "/stats":
		a.fetchReport("Learning stats", func(ctx context.Context, r *render.Renderer) (string, error) {
			stats, err := a.client.LearningStats(ctx)
			if err != nil {
				return "", err
			}
			return r.RenderStats(stats), nil
		})
	case "/health":
		a.fetchReport("Server health", func(ctx context.Context, r *render.Renderer) (string, error) {
			health, err := a.client.Health(ctx)
			if err != nil {
				return "", err
			}
			return r.RenderHealth(health), nil
		})
	case "/save":
		a.saveCommand(args)
	default:
		a.flash(fmt.Sprintf("unknown command %s, try /help", command))
	}
}

func (a *App) rateCommand(args []string) {
	if len(args) == 0 {
		a.flash("usage: /rate <1-5> [comment]")
		return
	}
	rating, err := strconv.Atoi(args[0])
	if err != nil {
		a.flash("usage: /rate <1-5> [comment]")
		return
	}
	comment := strings.Join(args[1:], " ")

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, reportTimeout)
		defer cancel()
		resp, err := a.manager.RateLastSolution(ctx, rating, comment)
		if err != nil {
			a.post(NewFlashEvent(fmt.Sprintf("rating failed: %v", err)))
			return
		}
		text := fmt.Sprintf("rated %d/5", rating)
		if resp.ImprovementTriggered {
			text += ", improvement queued"
		}
		a.post(NewFlashEvent(text))
	}()
}

// fetchReport runs a client call off the event loop and posts the
// rendered body back as a ReportEvent.
func (a *App) fetchReport(title string, fetch func(context.Context, *render.Renderer) (string, error)) {
	renderer := render.New(a.modal.Width-6, true)
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, reportTimeout)
		defer cancel()
		body, err := fetch(ctx, renderer)
		a.post(NewReportEvent(title, body, err))
	}()
}

func (a *App) saveCommand(args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = fmt.Sprintf("stepwise-%s.json", shortID(a.manager.SessionID()))
	}
	if err := chat.SaveTranscript(path, a.manager.SessionID(), a.store.Messages()); err != nil {
		a.flash(fmt.Sprintf("save failed: %v", err))
		return
	}
	a.flash(fmt.Sprintf("saved transcript to %s", path))
}

func (a *App) flash(text string) {
	a.status = a.status.WithFlash(text)
	a.flashUntil = time.Now().Add(flashDuration)
}

// scrollBy moves the transcript viewport and re-enables follow mode
// once the user returns to the bottom.
func (a *App) scrollBy(delta int) {
	transcript, _, _ := NewLayout(a.width, a.height).CalculateAreas()
	available := transcript.Height
	if a.spinner.IsVisible {
		available--
	}
	lines := MessageLines(a.messages.Messages, transcript.Width)
	max := MaxScroll(len(lines), available)

	current := a.messages.Scroll
	if a.messages.Follow {
		current = max
	}
	next := current + delta
	if next > max {
		next = max
	}
	a.messages = a.messages.WithScroll(next).WithFollow(next >= max)
}

func (a *App) transcriptHeight() int {
	transcript, _, _ := NewLayout(a.width, a.height).CalculateAreas()
	if transcript.Height < 1 {
		return 1
	}
	return transcript.Height
}

func (a *App) syncComponents() {
	transcript, input, status := NewLayout(a.width, a.height).CalculateAreas()
	a.messages = a.messages.WithSize(transcript.Width, transcript.Height)
	a.input = a.input.WithWidth(input.Width)
	a.status = a.status.WithWidth(status.Width)
}

func (a *App) draw() {
	if a.screen == nil {
		return
	}
	a.screen.Clear()

	transcript, input, statusArea := NewLayout(a.width, a.height).CalculateAreas()
	RenderMessages(a.screen, a.messages, transcript, a.spinner)
	RenderInput(a.screen, a.input, input)

	status := a.status.
		WithSession(a.manager.SessionID()).
		WithActivity(a.manager.Active() != nil, a.currentProgress())
	RenderStatus(a.screen, status, statusArea)

	a.modal.Render(a.screen, NewRect(0, 0, a.width, a.height))
	a.screen.Show()
}

func (a *App) currentProgress() int {
	last, ok := a.store.LastAssistant()
	if !ok || !last.IsStreaming() {
		return 0
	}
	return last.Progress
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

const helpText = `/rate <1-5> [comment]  rate the last solution
/stats                 show learning statistics
/health                show server health
/clear                 start a new conversation
/save [path]           save the transcript to JSON
/help                  show this help
/quit                  exit

Esc cancels an in-flight question.
PgUp/PgDn and arrow keys scroll the transcript.`
