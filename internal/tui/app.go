// internal/tui/app.go
//
// This is the terminal UI for wellplan. It uses bubbletea, which follows The
// Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// Network calls run inside tea.Cmds and come back as messages, so every state
// change happens inside Update. The session store decides which responses
// are still wanted.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/wellplan/internal/logbook"
	"github.com/kingrea/wellplan/internal/plan"
	"github.com/kingrea/wellplan/internal/planapi"
	"github.com/kingrea/wellplan/internal/session"
)

const (
	defaultWidth  = 100
	defaultHeight = 32
	// Below this width the plan and chat panels stack vertically.
	sideBySideMinWidth = 100
)

// PlanService is the planning API as seen by the UI.
type PlanService interface {
	CreatePlan(ctx context.Context, profile plan.Profile) (plan.Plan, error)
	Revise(ctx context.Context, req planapi.ChatRequest) (planapi.ChatResponse, error)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithSession injects a pre-built session store.
func WithSession(s *session.Session) AppOption {
	return func(a *App) {
		if s != nil {
			a.session = s
		}
	}
}

// WithLogbook journals session events and enables the LOG panel.
func WithLogbook(lb *logbook.Logbook, lines int) AppOption {
	return func(a *App) {
		a.logbook = lb
		a.logLines = lines
	}
}

// WithServiceLabel sets the service address shown in the header.
func WithServiceLabel(label string) AppOption {
	return func(a *App) {
		a.serviceLabel = strings.TrimSpace(label)
	}
}

// WithCursorMode sets the cursor mode of every text input.
func WithCursorMode(mode cursor.Mode) AppOption {
	return func(a *App) {
		a.cursorMode = mode
	}
}

// WithContext sets the parent context of every request.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

type planLoadedMsg struct {
	ticket session.Ticket
	plan   plan.Plan
	err    error
}

type chatRepliedMsg struct {
	ticket session.Ticket
	resp   planapi.ChatResponse
	err    error
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	service      PlanService
	session      *session.Session
	logbook      *logbook.Logbook
	logLines     int
	serviceLabel string
	cursorMode   cursor.Mode

	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	survey    surveyForm
	chatInput textinput.Model
	planPane  viewport.Model
	chatPane  viewport.Model
	spinner   spinner.Model

	statusMsg string
	statusErr bool

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates a new App bound to the given planning service.
func NewApp(service PlanService, opts ...AppOption) *App {
	app := &App{
		service:    service,
		cursorMode: cursor.CursorBlink,
		ctx:        context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.session == nil {
		app.session = session.New()
	}

	app.survey = newSurveyForm(app.cursorMode)
	app.survey.Focus()

	chat := textinput.New()
	chat.Placeholder = "Ask for a change and press Enter"
	chat.CharLimit = 0 // unlimited
	chat.Prompt = "› "
	chat.Cursor.SetMode(app.cursorMode)
	app.chatInput = chat

	app.planPane = viewport.New(defaultWidth, defaultHeight)
	app.chatPane = viewport.New(defaultWidth, defaultHeight)
	app.spinner = spinner.New()
	app.spinner.Spinner = spinner.Dot
	app.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))

	app.logInfo("Session opened · id %s · service %s", app.session.ID(), app.serviceLabel)
	app.layout()
	return app
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

func (a *App) setStatus(msg string) {
	a.statusMsg = msg
	a.statusErr = false
}

func (a *App) setError(msg string) {
	a.statusMsg = msg
	a.statusErr = true
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.survey.Focus()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case planLoadedMsg:
		return a, a.handlePlanLoaded(msg)

	case chatRepliedMsg:
		return a, a.handleChatReplied(msg)

	case spinner.TickMsg:
		if !a.session.InFlight() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.cancelInFlight()
			return a, tea.Quit
		case "esc":
			if a.session.InFlight() {
				a.cancelInFlight()
				a.setStatus("Request cancelled")
				return a, nil
			}
		}
		if a.session.View() == session.ViewSurvey {
			return a, a.updateSurvey(msg)
		}
		return a, a.updatePlanView(msg)
	}

	return a, nil
}

func (a *App) updateSurvey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		return a.survey.Next()
	case "shift+tab", "up":
		return a.survey.Prev()
	case "ctrl+s":
		return a.submitSurvey()
	case "enter":
		if a.survey.OnLastField() {
			return a.submitSurvey()
		}
		return a.survey.Next()
	case "ctrl+b":
		if err := a.session.ShowPlan(); err != nil {
			return nil
		}
		a.setStatus("")
		return a.showPlan()
	}
	return a.survey.Update(msg)
}

func (a *App) updatePlanView(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "ctrl+s":
		return a.sendChat()
	case "ctrl+n":
		if err := a.session.Resurvey(); err != nil {
			a.setStatus("Wait for the current request to finish first")
			return nil
		}
		a.chatInput.Blur()
		a.setStatus("Edit your answers and resubmit · Ctrl+B → back to plan")
		return a.survey.Focus()
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		a.planPane, cmd = a.planPane.Update(msg)
		return cmd
	case "shift+up":
		a.chatPane.LineUp(1)
		return nil
	case "shift+down":
		a.chatPane.LineDown(1)
		return nil
	}
	var cmd tea.Cmd
	a.chatInput, cmd = a.chatInput.Update(msg)
	return cmd
}

// submitSurvey starts the plan request for the current form values.
func (a *App) submitSurvey() tea.Cmd {
	if field, label, missing := a.survey.MissingRequired(); missing {
		a.setError(fmt.Sprintf("%s is required", label))
		return a.survey.focusField(field)
	}
	profile := a.survey.Profile()
	ticket, err := a.session.BeginSurvey(profile)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			a.setStatus("Still waiting for the planner…")
			return nil
		}
		a.setError(err.Error())
		return nil
	}
	a.logInfo("Survey submitted · condition %q", profile.Condition)
	a.setStatus("Building your plan…")
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	service := a.service
	request := func() tea.Msg {
		defer cancel()
		p, err := service.CreatePlan(ctx, profile)
		return planLoadedMsg{ticket: ticket, plan: p, err: err}
	}
	return tea.Batch(request, a.spinner.Tick)
}

// sendChat is the single handler behind both Enter and Ctrl+S.
func (a *App) sendChat() tea.Cmd {
	turn, err := a.session.BeginChat(a.chatInput.Value())
	switch {
	case errors.Is(err, session.ErrEmptyMessage):
		return nil
	case errors.Is(err, session.ErrBusy):
		a.setStatus("Still waiting for the planner…")
		return nil
	case err != nil:
		a.setError(err.Error())
		return nil
	}
	a.chatInput.Reset()
	a.refreshChat()
	a.logInfo("Chat sent · %q", turn.Message)
	a.setStatus("Revising your plan…")
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	service := a.service
	req := planapi.ChatRequest{Profile: turn.Profile, Plan: turn.Plan, Message: turn.Message}
	ticket := turn.Ticket
	request := func() tea.Msg {
		defer cancel()
		resp, err := service.Revise(ctx, req)
		return chatRepliedMsg{ticket: ticket, resp: resp, err: err}
	}
	return tea.Batch(request, a.spinner.Tick)
}

func (a *App) handlePlanLoaded(msg planLoadedMsg) tea.Cmd {
	if msg.err != nil {
		if err := a.session.Fail(msg.ticket, msg.err); err != nil {
			return nil
		}
		a.cancel = nil
		a.reportFailure("Plan request", a.session.LastError())
		return nil
	}
	if err := a.session.CompleteSurvey(msg.ticket, msg.plan); err != nil {
		a.logWarn("Dropped stale plan response (ticket %d)", msg.ticket)
		return nil
	}
	a.cancel = nil
	a.logInfo("Plan received · %d day(s)", len(msg.plan))
	a.setStatus(fmt.Sprintf("Plan ready · %d day(s)", len(msg.plan)))
	return a.showPlan()
}

func (a *App) handleChatReplied(msg chatRepliedMsg) tea.Cmd {
	if msg.err != nil {
		if err := a.session.Fail(msg.ticket, msg.err); err != nil {
			return nil
		}
		a.cancel = nil
		a.reportFailure("Chat request", a.session.LastError())
		return nil
	}
	if err := a.session.CompleteChat(msg.ticket, msg.resp.UpdatedPlan, msg.resp.Reply); err != nil {
		a.logWarn("Dropped stale chat response (ticket %d)", msg.ticket)
		return nil
	}
	a.cancel = nil
	a.logInfo("Plan revised · %d day(s)", len(msg.resp.UpdatedPlan))
	a.setStatus("Plan updated")
	a.refreshPlan()
	a.refreshChat()
	return nil
}

func (a *App) showPlan() tea.Cmd {
	for i := range a.survey.inputs {
		a.survey.inputs[i].Blur()
	}
	a.refreshPlan()
	a.refreshChat()
	a.planPane.GotoTop()
	return a.chatInput.Focus()
}

func (a *App) cancelInFlight() {
	_, kind := a.session.Pending()
	if ticket, ok := a.session.Cancel(); ok {
		a.logWarn("%s request cancelled (ticket %d)", kind, ticket)
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *App) reportFailure(what string, err error) {
	a.logError("%s failed: %v", what, err)
	a.setError(describeFailure(what, err))
}

// describeFailure turns an API error into the status line text.
func describeFailure(what string, err error) string {
	var (
		netErr    *planapi.NetworkError
		serverErr *planapi.ServerError
		parseErr  *planapi.ParseError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s cancelled", what)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s timed out · try again", what)
	case errors.As(err, &netErr):
		return fmt.Sprintf("%s failed · planning service unreachable (%v)", what, netErr.Err)
	case errors.As(err, &serverErr):
		return fmt.Sprintf("%s failed · planning service returned %d", what, serverErr.Status)
	case errors.As(err, &parseErr):
		return fmt.Sprintf("%s failed · unreadable response from planning service", what)
	default:
		return fmt.Sprintf("%s failed · %v", what, err)
	}
}

func (a *App) refreshPlan() {
	a.planPane.SetContent(RenderPlan(a.session.Plan(), a.planPane.Width))
}

func (a *App) refreshChat() {
	a.chatPane.SetContent(renderTranscript(a.session.Messages(), a.chatPane.Width))
	a.chatPane.GotoBottom()
}

// layout sizes the panes from the window dimensions.
func (a *App) layout() {
	width, height := a.width, a.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	chrome := 6
	if panel := a.logLines; panel > 0 && a.logbook != nil {
		chrome += panel + 3
	}
	body := max(8, height-chrome)

	a.survey.SetWidth(width - 6)
	if width >= sideBySideMinWidth {
		planWidth := width * 3 / 5
		chatWidth := width - planWidth - 4
		a.planPane.Width = planWidth - 4
		a.planPane.Height = max(3, body-2)
		a.chatPane.Width = chatWidth - 4
		a.chatPane.Height = max(3, body-5)
		a.chatInput.Width = max(10, chatWidth-8)
	} else {
		chatHeight := max(5, body/3)
		a.planPane.Width = width - 4
		a.planPane.Height = max(3, body-chatHeight-4)
		a.chatPane.Width = width - 4
		a.chatPane.Height = max(3, chatHeight-3)
		a.chatInput.Width = max(10, width-8)
	}
	a.refreshPlan()
	a.refreshChat()
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = defaultWidth
	}
	var body string
	if a.session.View() == session.ViewSurvey {
		body = panelStyle.Width(max(20, width-2)).Render(a.survey.View())
	} else {
		body = a.renderPlanScreen(width)
	}
	sections := []string{a.renderHeader(), body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#444444")).
	Padding(0, 1)

func (a *App) renderHeader() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		Render("⬡ WELLPLAN")
	if a.serviceLabel == "" {
		return title
	}
	service := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(" · " + a.serviceLabel)
	return title + service
}

func (a *App) renderPlanScreen(width int) string {
	planTitle := dayLabelStyle.Render(fmt.Sprintf("Your plan (%d days)", len(a.session.Plan())))
	planBox := panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, planTitle, a.planPane.View()))

	chatTitle := dayLabelStyle.Render("Chat")
	input := a.chatInput.View()
	if a.session.InFlight() {
		_, kind := a.session.Pending()
		input = fmt.Sprintf("%s waiting for the planner (%s)… (Esc to cancel)", a.spinner.View(), kind)
	}
	chatBox := panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, chatTitle, a.chatPane.View(), "", input))

	if width >= sideBySideMinWidth {
		return lipgloss.JoinHorizontal(lipgloss.Top, planBox, chatBox)
	}
	return lipgloss.JoinVertical(lipgloss.Left, planBox, chatBox)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil || a.logLines <= 0 {
		return ""
	}
	entries, total := a.logbook.Tail(a.logLines)
	if len(entries) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	rows := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s %-5s %s", e.At.Local().Format("15:04:05"), e.Level, e.Message)
		rows = append(rows, logLevelStyle(e.Level).Render(line))
	}
	body := strings.Join(rows, "\n")
	return panelStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func logLevelStyle(level logbook.Level) lipgloss.Style {
	switch level {
	case logbook.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	case logbook.LevelWarn:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	}
}

func (a *App) renderFooter() string {
	color := lipgloss.Color("#888888")
	if a.statusErr {
		color = lipgloss.Color("#FF6B6B")
	}
	status := a.statusMsg
	if a.session.InFlight() && status != "" {
		status = a.spinner.View() + " " + status
	}
	keys := "Ctrl+C → quit"
	if a.session.View() == session.ViewPlan {
		keys = "Enter/Ctrl+S → send    PgUp/PgDn → scroll plan    Ctrl+N → new survey    Ctrl+C → quit"
	}
	statusLine := lipgloss.NewStyle().Foreground(color).MarginTop(1).Render(status)
	keyLine := lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Render(keys)
	return lipgloss.JoinVertical(lipgloss.Left, statusLine, keyLine)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
