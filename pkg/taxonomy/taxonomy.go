// Package taxonomy defines the fixed category and priority tables tasks
// reference by id. The tables are ordered, constant for the lifetime of the
// process, and never extended at runtime.
package taxonomy

type Category struct {
	ID    string
	Label string
	Color string
	Emoji string
}

type Priority struct {
	ID    string
	Label string
	Color string
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	DefaultCategory = "work"
	DefaultPriority = PriorityMedium

	// FilterAll is the pseudo-id that disables category filtering.
	FilterAll = "all"
)

var Categories = []Category{
	{ID: "work", Label: "Работа", Color: "#FF6B35", Emoji: "💼"},
	{ID: "personal", Label: "Личное", Color: "#4ECDC4", Emoji: "🌿"},
	{ID: "health", Label: "Здоровье", Color: "#FF85A1", Emoji: "💪"},
	{ID: "study", Label: "Учёба", Color: "#A78BFA", Emoji: "📚"},
	{ID: "sport", Label: "Спорт", Color: "#34D399", Emoji: "🏆"},
}

var Priorities = []Priority{
	{ID: PriorityLow, Label: "Низкий", Color: "#6EE7B7"},
	{ID: PriorityMedium, Label: "Средний", Color: "#FCD34D"},
	{ID: PriorityHigh, Label: "Высокий", Color: "#F87171"},
}

// CategoryByID looks up a category definition.
func CategoryByID(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// PriorityByID looks up a priority definition.
func PriorityByID(id string) (Priority, bool) {
	for _, p := range Priorities {
		if p.ID == id {
			return p, true
		}
	}
	return Priority{}, false
}

// ValidCategory reports whether id references the category table.
func ValidCategory(id string) bool {
	_, ok := CategoryByID(id)
	return ok
}

// ValidPriority reports whether id references the priority table.
func ValidPriority(id string) bool {
	_, ok := PriorityByID(id)
	return ok
}

// CalendarColorID maps a task priority to a Google Calendar event color.
// Unknown priorities fall through to the low-priority color.
func CalendarColorID(priority string) string {
	switch priority {
	case PriorityHigh:
		return "11"
	case PriorityMedium:
		return "5"
	default:
		return "2"
	}
}
