package devserver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kingrea/wellplan/internal/plan"
)

// PlanDays is the length of every generated plan.
const PlanDays = 14

type dish struct {
	meals       []string
	ingredients []string
}

var menus = map[string][]dish{
	"vegan": {
		{[]string{"overnight oats with chia", "lentil salad", "tofu stir-fry"}, []string{"oats", "chia", "lentils", "tofu", "bok choy"}},
		{[]string{"smoothie bowl", "chickpea wrap", "black bean chili"}, []string{"banana", "spinach", "chickpeas", "black beans", "tomato"}},
		{[]string{"peanut toast", "quinoa bowl", "vegetable curry"}, []string{"whole-grain bread", "peanut butter", "quinoa", "cauliflower", "coconut milk"}},
	},
	"vegetarian": {
		{[]string{"oatmeal", "greek salad", "vegetable omelette"}, []string{"oats", "milk", "feta", "cucumber", "eggs"}},
		{[]string{"yogurt with berries", "caprese sandwich", "mushroom risotto"}, []string{"yogurt", "berries", "mozzarella", "tomato", "mushrooms"}},
		{[]string{"cottage cheese toast", "lentil soup", "paneer tikka"}, []string{"cottage cheese", "lentils", "carrot", "paneer", "peppers"}},
	},
	"balanced": {
		{[]string{"oatmeal", "grilled chicken salad", "baked salmon"}, []string{"oats", "milk", "chicken", "lettuce", "salmon"}},
		{[]string{"scrambled eggs", "turkey wrap", "beef stir-fry"}, []string{"eggs", "turkey", "tortilla", "beef", "broccoli"}},
		{[]string{"greek yogurt", "tuna salad", "roast chicken with vegetables"}, []string{"yogurt", "tuna", "celery", "chicken", "sweet potato"}},
	},
}

var conditionAdvice = []struct {
	keyword string
	advice  []string
}{
	{"diabetes", []string{"low glycemic carbs", "fiber with every meal"}},
	{"hypertension", []string{"low sodium", "potassium-rich vegetables"}},
	{"cholesterol", []string{"unsaturated fats", "soluble fiber"}},
	{"asthma", []string{"anti-inflammatory foods", "stay hydrated"}},
}

var (
	defaultAdvice = []string{"balanced portions", "stay hydrated"}
	activities    = []string{"walk", "yoga", "swim", "cycling"}
	complements   = []string{"stretching", "breathing exercise", "meditation", "foam rolling"}
	tips          = []string{"stay hydrated", "sleep at a regular time", "eat slowly", "take the stairs"}
)

// ParseBusyDays reads a comma separated list of day numbers, skipping any
// entry that is not purely digits.
func ParseBusyDays(raw string) []int {
	var days []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		days = append(days, n)
	}
	return days
}

// BuildPlan produces the canned plan for a profile. The same profile always
// yields the same plan.
func BuildPlan(profile plan.Profile) (plan.Plan, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	busy := make(map[int]bool)
	for _, d := range ParseBusyDays(profile.BusyDays) {
		busy[d] = true
	}
	menu := menuFor(profile.DietaryPrefs)
	advice := adviceFor(profile.Condition)
	activity := strings.TrimSpace(profile.ExercisePrefs)

	out := make(plan.Plan, 0, PlanDays)
	for n := 1; n <= PlanDays; n++ {
		if busy[n] {
			out = append(out, plan.Day{
				Day:         plan.NewDayID(n),
				Meals:       []string{},
				Suggestions: []string{},
				Ingredients: []string{},
				Wellness:    plan.Wellness{Activity: "Rest"},
			})
			continue
		}
		i := n - 1
		d := menu[i%len(menu)]
		act := activity
		if act == "" {
			act = activities[i%len(activities)]
		}
		out = append(out, plan.Day{
			Day:         plan.NewDayID(n),
			Meals:       append([]string(nil), d.meals...),
			Suggestions: append([]string(nil), advice...),
			Ingredients: append([]string(nil), d.ingredients...),
			Wellness: plan.Wellness{
				Activity:   act,
				Complement: complements[i%len(complements)],
				Tip:        tips[i%len(tips)],
			},
		})
	}
	return out, nil
}

var dayRef = regexp.MustCompile(`(?i)\bday\s*(\d+)\b`)

// Revise returns a copy of p with the message recorded on every day it names.
// A message naming no day leaves the plan unchanged.
func Revise(p plan.Plan, message string) plan.Plan {
	out := p.Clone()
	message = strings.TrimSpace(message)
	targets := make(map[int]bool)
	for _, m := range dayRef.FindAllStringSubmatch(message, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			targets[n] = true
		}
	}
	for i := range out {
		n, ok := out[i].Day.Int()
		if !ok || !targets[n] {
			continue
		}
		suggestions := append([]string(nil), out[i].Suggestions...)
		out[i].Suggestions = append(suggestions, "requested: "+message)
	}
	return out
}

// Summarize renders one line per day describing its meals and activity.
func Summarize(p plan.Plan) string {
	lines := make([]string, 0, len(p))
	for _, d := range p {
		lines = append(lines, fmt.Sprintf("Day %s: Meals: %s. Activity: %s + %s.",
			d.Day.String(), strings.Join(d.Meals, ", "), d.Wellness.Activity, d.Wellness.Complement))
	}
	return strings.Join(lines, "\n")
}

func menuFor(prefs string) []dish {
	prefs = strings.ToLower(prefs)
	switch {
	case strings.Contains(prefs, "vegan"):
		return menus["vegan"]
	case strings.Contains(prefs, "vegetarian"):
		return menus["vegetarian"]
	default:
		return menus["balanced"]
	}
}

func adviceFor(condition string) []string {
	condition = strings.ToLower(condition)
	for _, entry := range conditionAdvice {
		if strings.Contains(condition, entry.keyword) {
			return entry.advice
		}
	}
	return defaultAdvice
}
