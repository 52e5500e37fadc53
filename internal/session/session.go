// Package session owns the client state for one run: the submitted profile,
// the current plan, the chat transcript and the request currently in flight.
//
// Every request is issued against a Ticket. Only the response carrying the
// pending ticket is applied, so an abandoned or duplicated request can never
// overwrite newer state.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/wellplan/internal/plan"
)

var (
	// ErrBusy is returned when a request is started while another is pending.
	ErrBusy = errors.New("session: a request is already in flight")
	// ErrStaleTicket is returned for responses to requests that are no longer pending.
	ErrStaleTicket = errors.New("session: response does not match the pending request")
	// ErrEmptyMessage is returned for blank chat input.
	ErrEmptyMessage = errors.New("session: message is empty")
	// ErrNoPlan is returned when chatting before a plan exists.
	ErrNoPlan = errors.New("session: no plan to revise yet")
)

// Sender tags who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one chat bubble.
type Message struct {
	Sender Sender
	Text   string
	At     time.Time
}

// View is the visible region of the client.
type View int

const (
	ViewSurvey View = iota
	ViewPlan
)

// Kind identifies the request type behind a ticket.
type Kind int

const (
	KindNone Kind = iota
	KindSurvey
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindSurvey:
		return "survey"
	case KindChat:
		return "chat"
	default:
		return "none"
	}
}

// Ticket identifies one issued request.
type Ticket uint64

// ChatTurn is everything needed to send one revision request.
type ChatTurn struct {
	Ticket  Ticket
	Profile plan.Profile
	Plan    plan.Plan
	Message string
}

// Session is the single owner of mutable client state. It is not safe for
// concurrent use; the TUI update loop is its only caller.
type Session struct {
	id    string
	clock func() time.Time

	profile    plan.Profile
	hasProfile bool
	current    plan.Plan
	messages   []Message
	view       View

	next           Ticket
	pending        Ticket
	pendingKind    Kind
	pendingProfile plan.Profile
	lastErr        error
}

// Option customizes a Session.
type Option func(*Session)

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id = strings.TrimSpace(id); id != "" {
			s.id = id
		}
	}
}

// WithClock allows tests to control message timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New starts an empty session on the survey view.
func New(opts ...Option) *Session {
	s := &Session{
		id:    uuid.NewString(),
		clock: time.Now,
		view:  ViewSurvey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ID returns the session id sent with every request.
func (s *Session) ID() string { return s.id }

// View reports which region is visible.
func (s *Session) View() View { return s.view }

// Profile returns the last profile accepted by the service.
func (s *Session) Profile() (plan.Profile, bool) {
	return s.profile, s.hasProfile
}

// Plan returns a copy of the current plan.
func (s *Session) Plan() plan.Plan {
	return s.current.Clone()
}

// Messages returns the transcript in arrival order.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// InFlight reports whether a request is pending.
func (s *Session) InFlight() bool {
	return s.pending != 0
}

// Pending returns the pending ticket and its kind.
func (s *Session) Pending() (Ticket, Kind) {
	return s.pending, s.pendingKind
}

// LastError is the failure of the most recent request, cleared on success.
func (s *Session) LastError() error { return s.lastErr }

// BeginSurvey validates the profile and reserves a ticket for the plan request.
func (s *Session) BeginSurvey(profile plan.Profile) (Ticket, error) {
	if s.InFlight() {
		return 0, ErrBusy
	}
	if err := profile.Validate(); err != nil {
		return 0, fmt.Errorf("session: %w", err)
	}
	t := s.reserve(KindSurvey)
	s.pendingProfile = profile
	return t, nil
}

// CompleteSurvey applies the plan returned for a survey submission and
// switches to the plan view.
func (s *Session) CompleteSurvey(t Ticket, p plan.Plan) error {
	if err := s.settle(t, KindSurvey); err != nil {
		return err
	}
	s.profile = s.pendingProfile
	s.hasProfile = true
	s.pendingProfile = plan.Profile{}
	s.current = p.Clone()
	s.view = ViewPlan
	return nil
}

// BeginChat echoes the user's message into the transcript and reserves a
// ticket for the revision request. Blank input changes nothing.
func (s *Session) BeginChat(text string) (ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatTurn{}, ErrEmptyMessage
	}
	if s.InFlight() {
		return ChatTurn{}, ErrBusy
	}
	if !s.hasProfile {
		return ChatTurn{}, ErrNoPlan
	}
	t := s.reserve(KindChat)
	s.append(SenderUser, text)
	return ChatTurn{
		Ticket:  t,
		Profile: s.profile,
		Plan:    s.current.Clone(),
		Message: text,
	}, nil
}

// CompleteChat replaces the plan with the revision and appends the reply.
func (s *Session) CompleteChat(t Ticket, updated plan.Plan, reply string) error {
	if err := s.settle(t, KindChat); err != nil {
		return err
	}
	s.current = updated.Clone()
	s.append(SenderBot, reply)
	return nil
}

// Fail releases the pending ticket after a failed request. State other than
// LastError is left as it was.
func (s *Session) Fail(t Ticket, cause error) error {
	kind := s.pendingKind
	if err := s.settle(t, kind); err != nil {
		return err
	}
	s.pendingProfile = plan.Profile{}
	s.lastErr = cause
	return nil
}

// Cancel abandons the pending request. Its response, if it ever arrives, is stale.
func (s *Session) Cancel() (Ticket, bool) {
	if !s.InFlight() {
		return 0, false
	}
	t := s.pending
	s.pending = 0
	s.pendingKind = KindNone
	s.pendingProfile = plan.Profile{}
	return t, true
}

// Resurvey returns to the survey so the profile can be resubmitted. The
// current plan and transcript stay until a new plan arrives.
func (s *Session) Resurvey() error {
	if s.InFlight() {
		return ErrBusy
	}
	s.view = ViewSurvey
	return nil
}

// ShowPlan returns from the survey to the existing plan without resubmitting.
func (s *Session) ShowPlan() error {
	if s.InFlight() {
		return ErrBusy
	}
	if !s.hasProfile {
		return ErrNoPlan
	}
	s.view = ViewPlan
	return nil
}

func (s *Session) reserve(kind Kind) Ticket {
	s.next++
	s.pending = s.next
	s.pendingKind = kind
	return s.pending
}

func (s *Session) settle(t Ticket, kind Kind) error {
	if t == 0 || t != s.pending || kind != s.pendingKind {
		return ErrStaleTicket
	}
	s.pending = 0
	s.pendingKind = KindNone
	s.lastErr = nil
	return nil
}

func (s *Session) append(sender Sender, text string) {
	s.messages = append(s.messages, Message{Sender: sender, Text: text, At: s.clock()})
}
