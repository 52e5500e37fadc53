// Package plan holds the survey profile and the multi-day plan exchanged with
// the planning API.
//
// Days and wellness entries keep every JSON key the server sent, including the
// ones this client never displays (research, nutrition, ...). The chat
// endpoint receives the plan back, so it has to see exactly what it produced.
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Profile is the set of survey answers that drives plan generation.
type Profile struct {
	Condition     string `json:"condition"`
	DietaryPrefs  string `json:"dietaryPrefs"`
	ExercisePrefs string `json:"exercisePrefs"`
	BusyDays      string `json:"busyDays"`
}

// Validate enforces the survey's required fields.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Condition) == "" {
		return fmt.Errorf("condition is required")
	}
	return nil
}

// Plan is an ordered sequence of days.
type Plan []Day

// Clone returns a copy whose backing array is not shared with p.
func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	out := make(Plan, len(p))
	copy(out, p)
	return out
}

// DayID identifies a day. The server normally sends a number, but a revised
// plan may carry a string or null; the original form is preserved on re-encode.
type DayID struct {
	value   string
	numeric bool
	null    bool
}

// NewDayID builds a numeric identifier.
func NewDayID(n int) DayID {
	return DayID{value: strconv.Itoa(n), numeric: true}
}

// String returns the identifier as displayed.
func (d DayID) String() string {
	return d.value
}

// Int reports the numeric value when the identifier is an integer.
func (d DayID) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(d.value))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON implements json.Marshaler.
func (d DayID) MarshalJSON() ([]byte, error) {
	if d.null {
		return []byte("null"), nil
	}
	if d.numeric {
		return []byte(d.value), nil
	}
	return json.Marshal(d.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DayID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*d = DayID{null: true}
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*d = DayID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("plan: day identifier %s: %w", trimmed, err)
	}
	*d = DayID{value: n.String(), numeric: true}
	return nil
}

// Wellness is the day's activity guidance.
type Wellness struct {
	Activity   string
	Tip        string
	Complement string

	raw  map[string]json.RawMessage
	null bool
}

// ActivityLine joins the activity with its complementary practice, if any.
func (w Wellness) ActivityLine() string {
	activity := strings.TrimSpace(w.Activity)
	complement := strings.TrimSpace(w.Complement)
	switch {
	case complement == "":
		return activity
	case activity == "":
		return complement
	}
	return activity + " + " + complement
}

type wellnessFields struct {
	Activity   string `json:"activity"`
	Tip        string `json:"tip"`
	Complement string `json:"complement"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *Wellness) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*w = Wellness{null: true}
		return nil
	}
	var fields wellnessFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	raw, err := decodeRaw(data)
	if err != nil {
		return err
	}
	*w = Wellness{
		Activity:   fields.Activity,
		Tip:        fields.Tip,
		Complement: fields.Complement,
		raw:        raw,
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (w Wellness) MarshalJSON() ([]byte, error) {
	if w.null && w.Activity == "" && w.Tip == "" && w.Complement == "" {
		return []byte("null"), nil
	}
	fields := cloneRaw(w.raw)
	if err := setField(fields, "activity", w.Activity); err != nil {
		return nil, err
	}
	if err := setField(fields, "tip", w.Tip); err != nil {
		return nil, err
	}
	if _, seen := fields["complement"]; seen || w.Complement != "" {
		if err := setField(fields, "complement", w.Complement); err != nil {
			return nil, err
		}
	}
	return json.Marshal(fields)
}

// Day is one day's meals, suggestions, ingredients and wellness guidance.
type Day struct {
	Day         DayID
	Meals       []string
	Suggestions []string
	Ingredients []string
	Wellness    Wellness

	raw map[string]json.RawMessage
}

// Label is the heading shown for the day.
func (d Day) Label() string {
	id := strings.TrimSpace(d.Day.String())
	if id == "" {
		return "Day"
	}
	return "Day " + id
}

type dayFields struct {
	Day         DayID    `json:"day"`
	Meals       []string `json:"meals"`
	Suggestions []string `json:"suggestions"`
	Ingredients []string `json:"ingredients"`
	Wellness    Wellness `json:"wellness"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Day) UnmarshalJSON(data []byte) error {
	var fields dayFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	raw, err := decodeRaw(data)
	if err != nil {
		return err
	}
	*d = Day{
		Day:         fields.Day,
		Meals:       nonNil(fields.Meals),
		Suggestions: nonNil(fields.Suggestions),
		Ingredients: nonNil(fields.Ingredients),
		Wellness:    fields.Wellness,
		raw:         raw,
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Day) MarshalJSON() ([]byte, error) {
	fields := cloneRaw(d.raw)
	known := []struct {
		key   string
		value any
	}{
		{"day", d.Day},
		{"meals", nonNil(d.Meals)},
		{"suggestions", nonNil(d.Suggestions)},
		{"ingredients", nonNil(d.Ingredients)},
		{"wellness", d.Wellness},
	}
	for _, field := range known {
		if d.raw != nil && unset(field.value) {
			if _, seen := d.raw[field.key]; !seen {
				continue
			}
		}
		if err := setField(fields, field.key, field.value); err != nil {
			return nil, err
		}
	}
	return json.Marshal(fields)
}

// unset reports whether a decoded day left this value at its zero state, so a
// key the server never sent is not invented on re-encode.
func unset(value any) bool {
	switch v := value.(type) {
	case DayID:
		return v == DayID{}
	case []string:
		return len(v) == 0
	case Wellness:
		return !v.null && v.raw == nil && v.Activity == "" && v.Tip == "" && v.Complement == ""
	}
	return false
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func decodeRaw(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func cloneRaw(raw map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(raw)+5)
	for k, v := range raw {
		out[k] = v
	}
	return out
}

func setField(fields map[string]json.RawMessage, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("plan: encode %s: %w", key, err)
	}
	fields[key] = encoded
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
