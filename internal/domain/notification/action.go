// internal/domain/notification/action.go
package notification

// ActionID is the identifier a notification button (or API caller) sends back.
type ActionID string

const (
	ActionYes       ActionID = "yes"
	ActionSnooze15  ActionID = "need_15_min"
	ActionSnooze30  ActionID = "need_30_min"
	ActionDismiss   ActionID = "dismiss"
	ActionSkip      ActionID = "skip"
	ActionIAmAwake  ActionID = "i_am_awake"
	ActionLogNow    ActionID = "log_now"
	ActionML250     ActionID = "ml_250"
	ActionML500     ActionID = "ml_500"
	ActionML750     ActionID = "ml_750"
	ActionLightMeal ActionID = "light_meal"
	ActionFullMeal  ActionID = "full_meal"
	// ActionSkippedMeal records that the meal was skipped; it still writes a meal marker.
	ActionSkippedMeal ActionID = "skipped"
)

// TagDismissed is stored as the resolving action for dismiss/ack.
const TagDismissed = "dismissed"

// ActionClass is what an action does to a slot.
type ActionClass int

const (
	ClassResolveWithLog ActionClass = iota + 1
	ClassSnooze
	ClassDismiss
)

func (c ActionClass) String() string {
	switch c {
	case ClassResolveWithLog:
		return "resolve"
	case ClassSnooze:
		return "snooze"
	case ClassDismiss:
		return "dismiss"
	}
	return "unknown"
}

// SnoozeTier selects one of the two configured snooze durations.
type SnoozeTier int

const (
	SnoozeShort SnoozeTier = iota + 1
	SnoozeLong
)

// ActionSpec describes one action.
type ActionSpec struct {
	ID    ActionID
	Class ActionClass
	// Tag is recorded as the slot's resolving action.
	Tag    string
	Snooze SnoozeTier
	// HydrationML overrides the configured per-slot volume when non-zero.
	HydrationML int
	// MealFlag is written to the meal marker for nutrition kinds.
	MealFlag string
}

// PushActions are the buttons offered on every push, in display order.
var PushActions = []ActionID{ActionYes, ActionSnooze15, ActionSnooze30}

var commonActions = map[ActionID]ActionSpec{
	ActionYes:      {ID: ActionYes, Class: ClassResolveWithLog, Tag: string(ActionYes), MealFlag: "logged"},
	ActionSnooze15: {ID: ActionSnooze15, Class: ClassSnooze, Tag: string(ActionSnooze15), Snooze: SnoozeShort},
	ActionSnooze30: {ID: ActionSnooze30, Class: ClassSnooze, Tag: string(ActionSnooze30), Snooze: SnoozeLong},
	ActionDismiss:  {ID: ActionDismiss, Class: ClassDismiss, Tag: TagDismissed},
	ActionSkip:     {ID: ActionSkip, Class: ClassDismiss, Tag: "skipped"},
}

var extraActions = map[ActionID]ActionSpec{
	ActionIAmAwake:    {ID: ActionIAmAwake, Class: ClassResolveWithLog, Tag: string(ActionIAmAwake)},
	ActionLogNow:      {ID: ActionLogNow, Class: ClassResolveWithLog, Tag: string(ActionLogNow)},
	ActionML250:       {ID: ActionML250, Class: ClassResolveWithLog, Tag: string(ActionML250), HydrationML: 250},
	ActionML500:       {ID: ActionML500, Class: ClassResolveWithLog, Tag: string(ActionML500), HydrationML: 500},
	ActionML750:       {ID: ActionML750, Class: ClassResolveWithLog, Tag: string(ActionML750), HydrationML: 750},
	ActionLightMeal:   {ID: ActionLightMeal, Class: ClassResolveWithLog, Tag: string(ActionLightMeal), MealFlag: "light_meal"},
	ActionFullMeal:    {ID: ActionFullMeal, Class: ClassResolveWithLog, Tag: string(ActionFullMeal), MealFlag: "full_meal"},
	ActionSkippedMeal: {ID: ActionSkippedMeal, Class: ClassResolveWithLog, Tag: string(ActionSkippedMeal), MealFlag: "skipped"},
}

// ResolveAction returns the spec for id if kind k permits it.
func ResolveAction(k Kind, id ActionID) (ActionSpec, bool) {
	if a, ok := commonActions[id]; ok {
		if _, known := kinds[k]; known {
			return a, true
		}
		return ActionSpec{}, false
	}
	spec, ok := kinds[k]
	if !ok {
		return ActionSpec{}, false
	}
	for _, extra := range spec.Extra {
		if extra == id {
			return extraActions[id], true
		}
	}
	return ActionSpec{}, false
}
