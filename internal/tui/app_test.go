package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/wellplan/internal/logbook"
	"github.com/kingrea/wellplan/internal/plan"
	"github.com/kingrea/wellplan/internal/planapi"
	"github.com/kingrea/wellplan/internal/session"
)

type fakeService struct {
	planCalls []plan.Profile
	chatCalls []planapi.ChatRequest

	planResp plan.Plan
	planErr  error
	chatResp planapi.ChatResponse
	chatErr  error
}

func (f *fakeService) CreatePlan(_ context.Context, profile plan.Profile) (plan.Plan, error) {
	f.planCalls = append(f.planCalls, profile)
	if f.planErr != nil {
		return nil, f.planErr
	}
	return f.planResp, nil
}

func (f *fakeService) Revise(_ context.Context, req planapi.ChatRequest) (planapi.ChatResponse, error) {
	f.chatCalls = append(f.chatCalls, req)
	if f.chatErr != nil {
		return planapi.ChatResponse{}, f.chatErr
	}
	return f.chatResp, nil
}

func oatmealDay() plan.Day {
	return plan.Day{
		Day:         plan.NewDayID(1),
		Meals:       []string{"oatmeal"},
		Suggestions: []string{"walk"},
		Ingredients: []string{"oats", "milk"},
		Wellness:    plan.Wellness{Activity: "10-min walk", Tip: "stay hydrated"},
	}
}

func threeDayPlan() plan.Plan {
	return plan.Plan{
		oatmealDay(),
		{
			Day:         plan.NewDayID(2),
			Meals:       []string{"chickpea salad"},
			Suggestions: []string{"fiber"},
			Ingredients: []string{"chickpeas", "cucumber"},
			Wellness:    plan.Wellness{Activity: "yoga", Tip: "stretch gently"},
		},
		{
			Day:         plan.NewDayID(3),
			Meals:       []string{"lentil soup"},
			Suggestions: []string{"protein"},
			Ingredients: []string{"lentils", "carrot"},
			Wellness:    plan.Wellness{Activity: "swim", Tip: "rest well"},
		},
	}
}

func newTestApp(t *testing.T, svc PlanService, opts ...AppOption) *App {
	t.Helper()
	base := []AppOption{
		WithCursorMode(cursor.CursorStatic),
		WithSession(session.New(session.WithID("test-session"))),
	}
	return NewApp(svc, append(base, opts...)...)
}

// runCommands executes cmd and feeds every resulting message back into the
// app. Spinner ticks are dropped so the loop terminates.
func runCommands(t *testing.T, app *App, cmd tea.Cmd) *App {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg:
		default:
			model, follow := app.Update(msg)
			var ok bool
			app, ok = model.(*App)
			if !ok {
				t.Fatalf("unexpected model type: %T", model)
			}
			queue = append(queue, follow)
		}
	}
	return app
}

func press(t *testing.T, app *App, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	model, cmd := app.Update(msg)
	if model != app {
		t.Fatalf("update returned a different model")
	}
	return cmd
}

func typeText(t *testing.T, app *App, text string) {
	t.Helper()
	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keySend  = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func fillSurvey(t *testing.T, app *App, p plan.Profile) tea.Cmd {
	t.Helper()
	typeText(t, app, p.Condition)
	press(t, app, keyEnter)
	typeText(t, app, p.DietaryPrefs)
	press(t, app, keyEnter)
	typeText(t, app, p.ExercisePrefs)
	press(t, app, keyEnter)
	typeText(t, app, p.BusyDays)
	return press(t, app, keyEnter)
}

func loadedApp(t *testing.T, svc *fakeService) *App {
	t.Helper()
	svc.planResp = threeDayPlan()
	app := newTestApp(t, svc)
	app.Update(tea.WindowSizeMsg{Width: 140, Height: 60})
	cmd := fillSurvey(t, app, plan.Profile{Condition: "diabetes"})
	app = runCommands(t, app, cmd)
	if app.session.View() != session.ViewPlan {
		t.Fatalf("expected plan view after survey, status %q", app.statusMsg)
	}
	return app
}

func TestSurveySubmissionRendersPlan(t *testing.T) {
	svc := &fakeService{planResp: plan.Plan{oatmealDay()}}
	app := newTestApp(t, svc)
	profile := plan.Profile{Condition: "diabetes", DietaryPrefs: "vegetarian", ExercisePrefs: "low-impact", BusyDays: "Mon,Wed"}

	cmd := fillSurvey(t, app, profile)
	if cmd == nil {
		t.Fatalf("expected submit command on last-field Enter")
	}
	app = runCommands(t, app, cmd)

	if len(svc.planCalls) != 1 {
		t.Fatalf("expected exactly one plan request, got %d", len(svc.planCalls))
	}
	if svc.planCalls[0] != profile {
		t.Fatalf("request profile = %#v, want %#v", svc.planCalls[0], profile)
	}
	if app.session.View() != session.ViewPlan {
		t.Fatalf("expected survey to switch to the plan view")
	}
	rendered := RenderPlan(app.session.Plan(), 80)
	for _, want := range []string{"Day 1", "oatmeal", " walk", "oats, milk", "10-min walk", "stay hydrated"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered plan missing %q:\n%s", want, rendered)
		}
	}
	screen := app.View()
	for _, want := range []string{"Day 1", "oats, milk", "stay hydrated"} {
		if !strings.Contains(screen, want) {
			t.Fatalf("screen missing %q:\n%s", want, screen)
		}
	}
	if strings.Contains(screen, "Health condition") {
		t.Fatalf("survey should be hidden once the plan is shown")
	}
}

func TestSurveyRequiresCondition(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc)
	if cmd := press(t, app, keySend); cmd != nil {
		app = runCommands(t, app, cmd)
	}
	if len(svc.planCalls) != 0 {
		t.Fatalf("blank condition must not issue a request")
	}
	if !app.statusErr || !strings.Contains(app.statusMsg, "Health condition is required") {
		t.Fatalf("unexpected status %q (err=%v)", app.statusMsg, app.statusErr)
	}
}

func TestRenderPlanIsIdempotentAndOrdered(t *testing.T) {
	p := threeDayPlan()
	first := RenderPlan(p, 80)
	second := RenderPlan(p, 80)
	if first != second {
		t.Fatalf("render is not idempotent")
	}
	if got := strings.Count(first, "Meals:"); got != len(p) {
		t.Fatalf("expected %d day blocks, got %d", len(p), got)
	}
	one, two, three := strings.Index(first, "Day 1"), strings.Index(first, "Day 2"), strings.Index(first, "Day 3")
	if !(one >= 0 && one < two && two < three) {
		t.Fatalf("day blocks out of order: %d %d %d", one, two, three)
	}
	if !strings.Contains(RenderPlan(nil, 80), "No plan yet") {
		t.Fatalf("empty plan should render a placeholder")
	}
}

func TestViewIsStableForSameState(t *testing.T) {
	app := loadedApp(t, &fakeService{})
	if app.View() != app.View() {
		t.Fatalf("view differs between renders of the same state")
	}
}

func TestBlankChatIsNoop(t *testing.T) {
	svc := &fakeService{}
	app := loadedApp(t, svc)
	typeText(t, app, "    ")
	if cmd := press(t, app, keyEnter); cmd != nil {
		t.Fatalf("blank chat must not schedule a request")
	}
	if len(svc.chatCalls) != 0 || len(app.session.Messages()) != 0 {
		t.Fatalf("blank chat issued %d calls and %d messages", len(svc.chatCalls), len(app.session.Messages()))
	}
}

func TestChatRevisionScenario(t *testing.T) {
	svc := &fakeService{}
	app := loadedApp(t, svc)
	updated := threeDayPlan()
	updated[1].Meals = []string{"grilled tofu bowl"}
	svc.chatResp = planapi.ChatResponse{UpdatedPlan: updated, Reply: "Updated day 2's lunch."}

	typeText(t, app, "swap day 2 lunch")
	cmd := press(t, app, keyEnter)
	if cmd == nil {
		t.Fatalf("expected chat request command")
	}
	msgs := app.session.Messages()
	if len(msgs) != 1 || msgs[0].Sender != session.SenderUser || msgs[0].Text != "swap day 2 lunch" {
		t.Fatalf("user message must be echoed before the response: %#v", msgs)
	}
	if app.chatInput.Value() != "" {
		t.Fatalf("chat input should be cleared after send")
	}

	app = runCommands(t, app, cmd)
	if len(svc.chatCalls) != 1 {
		t.Fatalf("expected one chat request, got %d", len(svc.chatCalls))
	}
	req := svc.chatCalls[0]
	if req.Message != "swap day 2 lunch" || len(req.Plan) != 3 || req.Profile.Condition != "diabetes" {
		t.Fatalf("unexpected chat request: %#v", req)
	}
	msgs = app.session.Messages()
	if len(msgs) != 2 || msgs[1].Sender != session.SenderBot || msgs[1].Text != "Updated day 2's lunch." {
		t.Fatalf("expected one bot reply, got %#v", msgs)
	}

	current := app.session.Plan()
	original := threeDayPlan()
	if renderDay(current[0], 80) != renderDay(original[0], 80) || renderDay(current[2], 80) != renderDay(original[2], 80) {
		t.Fatalf("days 1 and 3 should be unchanged")
	}
	rendered := RenderPlan(current, 80)
	if !strings.Contains(rendered, "grilled tofu bowl") || strings.Contains(rendered, "chickpea salad") {
		t.Fatalf("day 2 not replaced:\n%s", rendered)
	}
	screen := app.View()
	for _, want := range []string{"swap day 2 lunch", "Updated day 2's lunch."} {
		if !strings.Contains(screen, want) {
			t.Fatalf("screen missing %q:\n%s", want, screen)
		}
	}
}

func TestEnterAndSendShareInFlightGuard(t *testing.T) {
	svc := &fakeService{}
	app := loadedApp(t, svc)
	svc.chatResp = planapi.ChatResponse{UpdatedPlan: threeDayPlan(), Reply: "ok"}

	typeText(t, app, "more protein")
	first := press(t, app, keyEnter)
	typeText(t, app, "more protein")
	if second := press(t, app, keySend); second != nil {
		t.Fatalf("second send while in flight must be ignored")
	}
	if !strings.Contains(app.statusMsg, "Still waiting") {
		t.Fatalf("expected waiting status, got %q", app.statusMsg)
	}
	app = runCommands(t, app, first)
	if len(svc.chatCalls) != 1 {
		t.Fatalf("expected one chat request, got %d", len(svc.chatCalls))
	}
	if got := len(app.session.Messages()); got != 2 {
		t.Fatalf("expected user + bot message, got %d", got)
	}
}

func TestCancelledRequestResponseIsDropped(t *testing.T) {
	svc := &fakeService{}
	app := loadedApp(t, svc)
	svc.chatResp = planapi.ChatResponse{UpdatedPlan: plan.Plan{oatmealDay()}, Reply: "late"}

	typeText(t, app, "drop day 3")
	cmd := press(t, app, keyEnter)
	press(t, app, keyEsc)
	if app.session.InFlight() {
		t.Fatalf("esc should release the in-flight request")
	}
	app = runCommands(t, app, cmd)
	if len(app.session.Plan()) != 3 {
		t.Fatalf("cancelled response must not replace the plan")
	}
	if len(app.session.Messages()) != 1 {
		t.Fatalf("cancelled response must not append a reply")
	}
}

func TestChatFailureKeepsPlanAndReportsStatus(t *testing.T) {
	svc := &fakeService{}
	app := loadedApp(t, svc)
	svc.chatErr = &planapi.ServerError{Op: "revise plan", Status: 500}

	typeText(t, app, "swap day 2 lunch")
	app = runCommands(t, app, press(t, app, keyEnter))
	if app.session.InFlight() {
		t.Fatalf("failure must release the in-flight guard")
	}
	if !app.statusErr || !strings.Contains(app.statusMsg, "returned 500") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
	if len(app.session.Plan()) != 3 {
		t.Fatalf("plan must survive a failed revision")
	}
	if len(app.session.Messages()) != 1 {
		t.Fatalf("only the user echo should remain, got %d", len(app.session.Messages()))
	}
}

func TestSurveyFailureStaysOnSurvey(t *testing.T) {
	svc := &fakeService{planErr: &planapi.NetworkError{Op: "create plan", URL: "http://localhost:8000/api/plan", Err: errors.New("connection refused")}}
	app := newTestApp(t, svc)
	app = runCommands(t, app, fillSurvey(t, app, plan.Profile{Condition: "diabetes", DietaryPrefs: "vegan"}))
	if app.session.View() != session.ViewSurvey {
		t.Fatalf("failed submission should stay on the survey")
	}
	if !strings.Contains(app.statusMsg, "unreachable") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
	if got := app.survey.Profile(); got.Condition != "diabetes" || got.DietaryPrefs != "vegan" {
		t.Fatalf("survey values lost: %#v", got)
	}
	if !strings.Contains(app.View(), "unreachable") {
		t.Fatalf("status must be visible on screen")
	}
}

func TestResurveyAndBack(t *testing.T) {
	app := loadedApp(t, &fakeService{})
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlN})
	if app.session.View() != session.ViewSurvey {
		t.Fatalf("ctrl+n should open the survey")
	}
	if got := app.survey.Profile().Condition; got != "diabetes" {
		t.Fatalf("survey should keep previous answers, got %q", got)
	}
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlB})
	if app.session.View() != session.ViewPlan {
		t.Fatalf("ctrl+b should return to the plan")
	}
}

func TestLogPanelShowsJournalTail(t *testing.T) {
	book, err := logbook.New(filepath.Join(t.TempDir(), "session.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	svc := &fakeService{planResp: plan.Plan{oatmealDay()}}
	app := newTestApp(t, svc, WithLogbook(book, 4))
	app = runCommands(t, app, fillSurvey(t, app, plan.Profile{Condition: "asthma"}))
	screen := app.View()
	if !strings.Contains(screen, "LOG · session.log") {
		t.Fatalf("log panel missing:\n%s", screen)
	}
	if !strings.Contains(screen, "Plan received") {
		t.Fatalf("journal tail missing plan entry:\n%s", screen)
	}
}

func TestDescribeFailure(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&planapi.NetworkError{Err: errors.New("refused")}, "unreachable"},
		{&planapi.NetworkError{Err: context.DeadlineExceeded}, "timed out"},
		{&planapi.ServerError{Status: 502}, "returned 502"},
		{&planapi.ParseError{Err: errors.New("eof")}, "unreadable response"},
		{context.Canceled, "cancelled"},
		{errors.New("odd"), "odd"},
	}
	for _, tc := range cases {
		if got := describeFailure("Plan request", tc.err); !strings.Contains(got, tc.want) {
			t.Fatalf("describeFailure(%v) = %q, want substring %q", tc.err, got, tc.want)
		}
	}
}

func TestLongInputIsSentUntruncated(t *testing.T) {
	svc := &fakeService{planResp: threeDayPlan()}
	app := newTestApp(t, svc)
	condition := "diabetes " + strings.Repeat("and related notes ", 20)
	app = runCommands(t, app, fillSurvey(t, app, plan.Profile{Condition: condition}))
	if len(svc.planCalls) != 1 || svc.planCalls[0].Condition != condition {
		t.Fatalf("condition truncated: sent %d chars, typed %d", len(svc.planCalls[0].Condition), len(condition))
	}

	svc.chatResp = planapi.ChatResponse{UpdatedPlan: threeDayPlan(), Reply: "ok"}
	message := "swap day 2 lunch " + strings.Repeat("x", 700)
	typeText(t, app, message)
	app = runCommands(t, app, press(t, app, keyEnter))
	if len(svc.chatCalls) != 1 {
		t.Fatalf("expected one chat request, got %d", len(svc.chatCalls))
	}
	if got := svc.chatCalls[0].Message; got != message {
		t.Fatalf("message truncated: typed %d chars, sent %d", len(message), len(got))
	}
}

func TestBlankTipKeepsBlockShape(t *testing.T) {
	withTip := oatmealDay()
	blankTip := oatmealDay()
	blankTip.Wellness.Tip = ""
	a := strings.Split(renderDay(withTip, 60), "\n")
	b := strings.Split(renderDay(blankTip, 60), "\n")
	if len(a) != len(b) {
		t.Fatalf("blank tip changed block height: %d vs %d lines", len(b), len(a))
	}
	if strings.Contains(renderDay(blankTip, 60), "stay hydrated") {
		t.Fatalf("blank tip should render an empty line")
	}
}

func TestInFlightRequestIsNamedAndCancelJournalled(t *testing.T) {
	book, err := logbook.New(filepath.Join(t.TempDir(), "session.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	svc := &fakeService{planResp: threeDayPlan()}
	app := newTestApp(t, svc, WithLogbook(book, 10))
	app.Update(tea.WindowSizeMsg{Width: 140, Height: 60})
	app = runCommands(t, app, fillSurvey(t, app, plan.Profile{Condition: "diabetes"}))

	typeText(t, app, "swap day 2 lunch")
	press(t, app, keyEnter)
	if !strings.Contains(app.View(), "waiting for the planner (chat)") {
		t.Fatalf("in-flight chat should be named on screen:\n%s", app.View())
	}
	press(t, app, keyEsc)
	entries, _ := book.Tail(10)
	last := entries[len(entries)-1]
	if last.Level != logbook.LevelWarn || !strings.HasPrefix(last.Message, "chat request cancelled") {
		t.Fatalf("unexpected last journal entry: %#v", last)
	}
	if !strings.Contains(app.View(), "chat request cancelled") {
		t.Fatalf("LOG panel should show the cancellation")
	}
}
