package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/wellplan/internal/plan"
)

// Field order is also the focus order.
const (
	fieldCondition = iota
	fieldDietary
	fieldExercise
	fieldBusyDays
	fieldCount
)

var (
	fieldLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	fieldFocusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	requiredMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

type surveyField struct {
	label       string
	placeholder string
	required    bool
}

var surveyFields = [fieldCount]surveyField{
	fieldCondition: {label: "Health condition", placeholder: "e.g. type 2 diabetes", required: true},
	fieldDietary:   {label: "Dietary preferences", placeholder: "e.g. vegetarian"},
	fieldExercise:  {label: "Exercise preferences", placeholder: "e.g. low-impact"},
	fieldBusyDays:  {label: "Busy days", placeholder: "e.g. 2,5,9"},
}

// surveyForm is the four-field intake form shown before a plan exists.
type surveyForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
}

func newSurveyForm(mode cursor.Mode) surveyForm {
	var form surveyForm
	for i, field := range surveyFields {
		input := textinput.New()
		input.Placeholder = field.placeholder
		input.CharLimit = 0 // unlimited
		input.Prompt = "› "
		input.Cursor.SetMode(mode)
		form.inputs[i] = input
	}
	return form
}

// Focus moves focus to the first field.
func (f *surveyForm) Focus() tea.Cmd {
	return f.focusField(0)
}

func (f *surveyForm) focusField(idx int) tea.Cmd {
	if idx < 0 {
		idx = fieldCount - 1
	}
	if idx >= fieldCount {
		idx = 0
	}
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.focus = idx
	return f.inputs[idx].Focus()
}

func (f *surveyForm) Next() tea.Cmd { return f.focusField(f.focus + 1) }

func (f *surveyForm) Prev() tea.Cmd { return f.focusField(f.focus - 1) }

// OnLastField reports whether Enter should submit rather than advance.
func (f *surveyForm) OnLastField() bool { return f.focus == fieldCount-1 }

// Profile reads the fields as typed. Values are sent verbatim.
func (f *surveyForm) Profile() plan.Profile {
	return plan.Profile{
		Condition:     f.inputs[fieldCondition].Value(),
		DietaryPrefs:  f.inputs[fieldDietary].Value(),
		ExercisePrefs: f.inputs[fieldExercise].Value(),
		BusyDays:      f.inputs[fieldBusyDays].Value(),
	}
}

// MissingRequired returns the label of the first blank required field.
func (f *surveyForm) MissingRequired() (int, string, bool) {
	for i, field := range surveyFields {
		if field.required && strings.TrimSpace(f.inputs[i].Value()) == "" {
			return i, field.label, true
		}
	}
	return 0, "", false
}

func (f *surveyForm) SetWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, width-4)
	}
}

func (f *surveyForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *surveyForm) View() string {
	rows := make([]string, 0, fieldCount*3+1)
	rows = append(rows, "Tell us a little about yourself to build a 14-day plan.", "")
	for i, field := range surveyFields {
		style := fieldLabelStyle
		if i == f.focus {
			style = fieldFocusedStyle
		}
		label := style.Render(field.label)
		if field.required {
			label += requiredMarkStyle.Render(" *")
		}
		rows = append(rows, label, f.inputs[i].View(), "")
	}
	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render("Tab → next field    Enter on last field or Ctrl+S → build my plan")
	rows = append(rows, hint)
	return strings.Join(rows, "\n")
}
