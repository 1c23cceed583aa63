package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docscan/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docscan/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docscan/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docscan/internal/core/domain"
)

const (
	// DefaultPollInterval is how often the document snapshot is reloaded.
	DefaultPollInterval = time.Second

	sinkBuffer    = 64
	previewRunes  = 400
	maxBarWidth   = 60
	minListHeight = 5
)

// pageRow is the view state of one page.
type pageRow struct {
	status      domain.PageStatus
	step        domain.PageStep
	attempt     int
	maxAttempts int
	confidence  float64
	err         string
}

// Result summarises how a watched run ended.
type Result struct {
	Status            domain.DocumentStatus
	TotalPages        int
	SuccessfulPages   int
	FailedPages       int
	AverageConfidence float64
	Error             string
}

// App watches one document's run following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keys   *keymap.KeyMap

	documentID  string
	sink        *ChannelSink
	unsubscribe func()

	spinner spinner.Model
	bar     progress.Model

	title    string
	status   string
	pages    []pageRow
	current  int
	fraction float64
	preview  string
	showText bool
	offset   int

	finished bool
	result   Result
	err      error

	pollInterval time.Duration
	width        int
	height       int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a progress view for documentID and subscribes it to the
// progress channel. Call Close when the program exits.
func NewApp(ports *Ports, documentID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if documentID == "" {
		return nil, ErrMissingDocumentID
	}

	sink := NewChannelSink(sinkBuffer)
	a := &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       styles.DefaultStyles(),
		keys:         keymap.DefaultKeyMap(),
		documentID:   documentID,
		sink:         sink,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		status:       "waiting",
		pollInterval: DefaultPollInterval,
	}
	a.unsubscribe = ports.Progress.Subscribe(documentID, sink)
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithPollInterval sets how often the document is reloaded.
func (a *App) WithPollInterval(d time.Duration) *App {
	if d > 0 {
		a.pollInterval = d
	}
	return a
}

// Close detaches from the progress channel.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.sink.Close()
}

// Finished reports whether the run reached a terminal state.
func (a *App) Finished() bool {
	return a.finished
}

// Result returns the run summary. Only meaningful once Finished is true.
func (a *App) Result() Result {
	return a.result
}

// Err returns the last load error.
func (a *App) Err() error {
	return a.err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.waitForEvent(),
		a.loadDocument(),
		tea.SetWindowTitle("docscan - "+a.documentID),
	)
}

func (a *App) waitForEvent() tea.Cmd {
	ch := a.sink.Events()
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return messages.StreamClosed{}
		}
		return messages.ProgressReceived{Event: event}
	}
}

func (a *App) loadDocument() tea.Cmd {
	ctx, docs, id := a.ctx, a.ports.Documents, a.documentID
	return func() tea.Msg {
		doc, err := docs.Get(ctx, id)
		return messages.DocumentLoaded{Document: doc, Err: err}
	}
}

func (a *App) poll() tea.Cmd {
	return tea.Tick(a.pollInterval, func(time.Time) tea.Msg { return messages.PollDue{} })
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ProgressReceived:
		a.apply(msg.Event)
		if msg.Event.IsTerminal() {
			// Reload so the summary reflects what was persisted.
			return a, a.loadDocument()
		}
		return a, a.waitForEvent()

	case messages.StreamClosed:
		return a, nil

	case messages.PollDue:
		if a.finished {
			return a, nil
		}
		return a, a.loadDocument()

	case messages.DocumentLoaded:
		return a.handleLoaded(msg)

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keys.Quit):
		return a, tea.Quit
	case keymap.Matches(k, a.keys.Up):
		if a.offset > 0 {
			a.offset--
		}
	case keymap.Matches(k, a.keys.Down):
		if a.offset < len(a.pages)-1 {
			a.offset++
		}
	case keymap.Matches(k, a.keys.Text):
		a.showText = !a.showText
	}
	return a, nil
}

func (a *App) handleLoaded(msg messages.DocumentLoaded) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.err = msg.Err
		if errors.Is(msg.Err, domain.ErrNotFound) {
			return a, tea.Quit
		}
		return a, a.poll()
	}

	a.err = nil
	doc := msg.Document
	a.title = doc.DisplayTitle()
	a.sync(doc)

	switch doc.Status {
	case domain.DocumentDone, domain.DocumentFailed:
		a.finish(doc)
		return a, tea.Quit
	}
	return a, a.poll()
}

// apply folds one progress event into the view state.
func (a *App) apply(e domain.ProgressEvent) {
	a.status = e.Status()
	if e.ProgressFraction > 0 {
		a.fraction = e.ProgressFraction
	}

	switch e.Kind {
	case domain.ProgressStartingOCR:
		a.ensurePages(e.TotalPages)
		a.current = e.CurrentPage
		if row := a.row(e.CurrentPage); row != nil {
			row.status = domain.PageProcessing
			row.attempt = e.Attempt
			row.maxAttempts = e.MaxAttempts
			row.step = ""
		}

	case domain.ProgressPageStep:
		a.current = e.Page
		if row := a.row(e.Page); row != nil {
			row.status = domain.PageProcessing
			row.step = e.Step
		}

	case domain.ProgressPageComplete:
		a.ensurePages(e.TotalPages)
		if row := a.row(e.Page); row != nil {
			row.status = domain.PageDone
			row.confidence = e.Confidence
			row.step = ""
		}

	case domain.ProgressPageFailed:
		a.ensurePages(e.TotalPages)
		if row := a.row(e.Page); row != nil {
			row.status = domain.PageFailed
			row.err = e.Error
			row.step = ""
		}

	case domain.ProgressDone:
		a.finished = true
		a.result.Status = domain.DocumentDone
		a.result.TotalPages = e.TotalPages
		a.result.SuccessfulPages = e.SuccessfulPages
		a.fraction = 1

	case domain.ProgressFailed:
		a.finished = true
		a.result.Status = domain.DocumentFailed
		a.result.Error = e.Error
	}
}

// sync replaces page rows with the persisted state, keeping the live step
// of the page in flight.
func (a *App) sync(doc *domain.Document) {
	a.ensurePages(len(doc.Pages))
	for i, p := range doc.Pages {
		row := &a.pages[i]
		if p.Status == domain.PagePending && row.status == domain.PageProcessing {
			continue
		}
		row.status = p.Status
		row.confidence = p.Confidence
		row.err = p.Error
		if p.Attempts > 0 {
			row.attempt = p.Attempts
		}
		if p.Status == domain.PageDone && p.Text != "" {
			a.preview = p.Text
		}
	}

	done, failed, _ := doc.PageTotals()
	if n := len(doc.Pages); n > 0 && done+failed > 0 {
		a.fraction = max(a.fraction, float64(done+failed)/float64(n))
	}
	if doc.Status == domain.DocumentQueued || doc.Status == domain.DocumentProcessing {
		if a.status == "waiting" {
			a.status = string(doc.Status)
		}
	}
}

// ResultOf summarises a document snapshot.
func ResultOf(doc *domain.Document) Result {
	done, failed, avg := doc.PageTotals()
	r := Result{
		Status:            doc.Status,
		TotalPages:        len(doc.Pages),
		SuccessfulPages:   done,
		FailedPages:       failed,
		AverageConfidence: avg,
	}
	if doc.Meta != nil {
		r.AverageConfidence = doc.Meta.AverageConfidence
	}
	return r
}

func (a *App) finish(doc *domain.Document) {
	a.finished = true
	errMsg := a.result.Error
	a.result = ResultOf(doc)
	a.result.Error = errMsg
	a.status = string(doc.Status)
	if doc.Status == domain.DocumentDone {
		a.fraction = 1
	}
}

func (a *App) ensurePages(n int) {
	for len(a.pages) < n {
		a.pages = append(a.pages, pageRow{status: domain.PagePending})
	}
}

func (a *App) row(page int) *pageRow {
	if page < 1 {
		return nil
	}
	a.ensurePages(page)
	return &a.pages[page-1]
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	title := a.title
	if title == "" {
		title = a.documentID
	}
	b.WriteString(a.styles.Title.Render(title))
	b.WriteString("\n")

	status := a.status
	if !a.finished {
		status = a.spinner.View() + " " + status
	}
	b.WriteString(a.styles.Subtitle.Render(status))
	if a.current > 0 && !a.finished {
		b.WriteString(a.styles.Muted.Render(fmt.Sprintf("  page %d of %d", a.current, len(a.pages))))
	}
	b.WriteString("\n\n")

	b.WriteString(a.bar.ViewAs(a.fraction))
	b.WriteString("\n\n")

	b.WriteString(a.renderPages())

	if a.showText && a.preview != "" {
		b.WriteString("\n")
		b.WriteString(a.styles.Panel.Render(truncate(a.preview, previewRunes)))
		b.WriteString("\n")
	}

	if a.finished {
		b.WriteString("\n")
		b.WriteString(a.renderSummary())
		b.WriteString("\n")
	}
	if a.err != nil {
		b.WriteString("\n")
		b.WriteString(a.styles.Error.Render("Error: " + a.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.styles.Help.Render(a.keys.HelpLine()))
	return b.String()
}

func (a *App) renderPages() string {
	if len(a.pages) == 0 {
		return a.styles.Muted.Render("no pages yet") + "\n"
	}

	visible := len(a.pages)
	if a.height > 0 {
		visible = min(visible, max(a.height-12, minListHeight))
	}
	start := min(a.offset, max(len(a.pages)-visible, 0))

	var b strings.Builder
	for i := start; i < start+visible && i < len(a.pages); i++ {
		row := a.pages[i]
		line := fmt.Sprintf("%s page %-3d %s", glyph(row.status), i+1, describe(row))
		b.WriteString(a.styles.ForPage(row.status).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderSummary() string {
	r := a.result
	if r.Status == domain.DocumentFailed {
		msg := "failed"
		if r.Error != "" {
			msg += ": " + r.Error
		}
		return a.styles.Error.Render(msg)
	}
	return a.styles.Success.Render(fmt.Sprintf("done: %d/%d pages, average confidence %.1f",
		r.SuccessfulPages, r.TotalPages, r.AverageConfidence))
}

func glyph(status domain.PageStatus) string {
	switch status {
	case domain.PageDone:
		return "✓"
	case domain.PageFailed:
		return "✗"
	case domain.PageProcessing:
		return "›"
	default:
		return "·"
	}
}

func describe(row pageRow) string {
	switch row.status {
	case domain.PageDone:
		return fmt.Sprintf("%.1f%%", row.confidence)
	case domain.PageFailed:
		return row.err
	case domain.PageProcessing:
		s := string(row.step)
		if s == "" {
			s = "starting"
		}
		if row.attempt > 1 {
			s += fmt.Sprintf(" (attempt %d/%d)", row.attempt, row.maxAttempts)
		}
		return s
	default:
		return "pending"
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
