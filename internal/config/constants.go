package config

import "time"

const (
	// Planka API timeout
	PlankaTimeout = 10 * time.Second

	// AI request timeout
	AnalysisTimeout = 90 * time.Second

	// Board lists/labels cache duration
	BoardCacheDuration = 1 * time.Minute

	// Recommended task title length
	MaxTitleLen = 50

	// Stale user-state cleanup
	StateCleanupInterval = 1 * time.Hour
	StateMaxAge          = 1 * time.Hour

	// Deadline scheduler
	DeadlineCheckInterval = 30 * time.Minute
	ReminderWindow        = 24 * time.Hour
	ReminderWarnWindow    = 6 * time.Hour
	ReminderUrgentWindow  = 2 * time.Hour
	NotificationRetention = 7 * 24 * time.Hour

	// Search results per message
	MaxSearchResults = 10

	// Overdue tasks shown in statistics
	MaxOverdueDetails = 5
)

// PriorityKeywords marks a board label as a priority label.
var PriorityKeywords = []string{
	"высокий", "средний", "низкий",
	"high", "medium", "low",
	"срочно", "urgent", "critical", "критический",
}

// PriorityTiers maps a canonical priority tier to the label name variants
// that belong to it. Order of map iteration does not matter; tier lookup is
// done through PriorityTierOrder.
var PriorityTiers = map[string][]string{
	"высокий": {"высокий", "high", "срочно", "критический", "urgent", "critical"},
	"средний": {"средний", "medium", "normal", "обычный"},
	"низкий":  {"низкий", "low", "не срочно", "можно позже"},
}

// PriorityTierOrder fixes the lookup order for tier matching.
var PriorityTierOrder = []string{"высокий", "средний", "низкий"}

// DefaultPriorityTier is used when the analyzed priority matches no tier.
const DefaultPriorityTier = "средний"

// CompletedListNames marks a board list as a "done" status for statistics.
var CompletedListNames = []string{"готово", "выполнено", "done", "completed", "завершено"}

// StatsPeriods are the selectable statistics windows.
var StatsPeriods = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}
