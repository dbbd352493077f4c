// internal/domain/notification/shared_types.go
package notification

import "fmt"

// Kind is the category of a slot. The set is closed; see kinds.
type Kind string

const (
	KindWake           Kind = "wake"
	KindBedtime        Kind = "bedtime"
	KindBreakfast      Kind = "breakfast"
	KindMidMorning     Kind = "mid_morning"
	KindLunch          Kind = "lunch"
	KindAfternoonBreak Kind = "afternoon_break"
	KindDinner         Kind = "dinner"
	KindPostDinner     Kind = "post_dinner"
	KindHydration      Kind = "hydration"
)

// Category groups kinds under one user preference toggle.
type Category string

const (
	CategorySleep     Category = "sleep"
	CategoryNutrition Category = "nutrition"
	CategoryHydration Category = "hydration"
)

// LogFact is the health-log write a resolving action performs for a kind.
type LogFact int

const (
	FactNone LogFact = iota
	FactWakeTime
	FactBedTime
	FactHydration
	FactMeal
)

// KindSpec is the behaviour attached to a kind.
type KindSpec struct {
	Kind     Kind
	Category Category
	Fact     LogFact
	Template Template
	// Extra lists kind-specific quick-log actions on top of the common ones.
	Extra []ActionID
}

var kinds = map[Kind]KindSpec{
	KindWake: {
		Kind: KindWake, Category: CategorySleep, Fact: FactWakeTime,
		Template: Template{Title: "Good morning! ☀️", Body: "Time to rise! Tap Yes to log your wake time.", Emoji: "☀️"},
		Extra:    []ActionID{ActionIAmAwake},
	},
	KindBedtime: {
		Kind: KindBedtime, Category: CategorySleep, Fact: FactBedTime,
		Template: Template{Title: "Bedtime 🌙", Body: "Heading to bed? Tap Yes to log your sleep.", Emoji: "🌙"},
		Extra:    []ActionID{ActionLogNow},
	},
	KindBreakfast: {
		Kind: KindBreakfast, Category: CategoryNutrition, Fact: FactMeal,
		Template: Template{Title: "Breakfast time 🍳", Body: "Start your day right, tap Yes to log breakfast.", Emoji: "🍳"},
		Extra:    mealExtras,
	},
	KindMidMorning: {
		Kind: KindMidMorning, Category: CategoryNutrition, Fact: FactMeal,
		Template: Template{Title: "Mid-morning snack 🍎", Body: "Mid-morning bite? Tap Yes to log it.", Emoji: "🍎"},
		Extra:    mealExtras,
	},
	KindLunch: {
		Kind: KindLunch, Category: CategoryNutrition, Fact: FactMeal,
		Template: Template{Title: "Lunch time 🥗", Body: "Midday refuel, tap Yes to log your lunch.", Emoji: "🥗"},
		Extra:    mealExtras,
	},
	KindAfternoonBreak: {
		Kind: KindAfternoonBreak, Category: CategoryNutrition, Fact: FactMeal,
		Template: Template{Title: "Afternoon snack 🍪", Body: "Afternoon snack time! Tap Yes to log it.", Emoji: "🍪"},
		Extra:    mealExtras,
	},
	KindDinner: {
		Kind: KindDinner, Category: CategoryNutrition, Fact: FactMeal,
		Template: Template{Title: "Dinner time 🍽️", Body: "Evening meal, tap Yes to log your dinner.", Emoji: "🍽️"},
		Extra:    mealExtras,
	},
	KindPostDinner: {
		Kind: KindPostDinner, Category: CategoryNutrition, Fact: FactMeal,
		Template: Template{Title: "Post-dinner 🍵", Body: "After-dinner snack or tea? Tap Yes to log it.", Emoji: "🍵"},
		Extra:    mealExtras,
	},
	KindHydration: {
		Kind: KindHydration, Category: CategoryHydration, Fact: FactHydration,
		Template: Template{Title: "Hydration check 💧", Body: "Time to drink {ml} ml of water! Tap Yes to log it.", Emoji: "💧"},
		Extra:    []ActionID{ActionML250, ActionML500, ActionML750},
	},
}

var mealExtras = []ActionID{ActionLightMeal, ActionFullMeal, ActionSkippedMeal}

// Lookup returns the spec for k.
func Lookup(k Kind) (KindSpec, bool) {
	spec, ok := kinds[k]
	if ok {
		spec.Template.Kind = k
	}
	return spec, ok
}

// ParseKind validates a wire value.
func ParseKind(s string) (Kind, error) {
	if _, ok := kinds[Kind(s)]; !ok {
		return "", fmt.Errorf("unknown notification kind %q", s)
	}
	return Kind(s), nil
}

// Slot labels in their fixed daily order within each category.
var (
	SleepSlots     = []string{"wake", "bedtime"}
	NutritionSlots = []string{"breakfast", "mid_morning", "lunch", "afternoon_break", "dinner", "post_dinner"}
	HydrationSlots = []string{
		"hydration_1", "hydration_2", "hydration_3", "hydration_4",
		"hydration_5", "hydration_6", "hydration_7", "hydration_8",
	}
)

// KindForSlot maps a fixed slot label to its kind.
func KindForSlot(label string) (Kind, bool) {
	for _, l := range HydrationSlots {
		if l == label {
			return KindHydration, true
		}
	}
	k := Kind(label)
	if k == KindHydration {
		return "", false
	}
	if _, ok := kinds[k]; ok {
		return k, true
	}
	return "", false
}

// AllSlots returns every known slot label, sleep first, then nutrition, then hydration.
func AllSlots() []string {
	out := make([]string, 0, len(SleepSlots)+len(NutritionSlots)+len(HydrationSlots))
	out = append(out, SleepSlots...)
	out = append(out, NutritionSlots...)
	return append(out, HydrationSlots...)
}
