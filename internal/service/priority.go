package service

import (
	"strings"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

// IsPriorityLabel reports whether a board label name denotes a priority.
func IsPriorityLabel(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range config.PriorityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PriorityTier maps free-form analyzed priority text to a canonical tier.
// Unrecognized input falls back to the default tier.
func PriorityTier(requested string) string {
	lower := strings.ToLower(strings.TrimSpace(requested))
	if lower == "" {
		return config.DefaultPriorityTier
	}
	for _, tier := range config.PriorityTierOrder {
		for _, variant := range config.PriorityTiers[tier] {
			if strings.Contains(lower, variant) {
				return tier
			}
		}
	}
	return config.DefaultPriorityTier
}

// PriorityFromLabels resolves the analyzed priority text to a concrete board
// label. Returns nil when the board has no label for the resolved tier.
func PriorityFromLabels(labels []Label, requested string) *domain.PriorityLabel {
	tier := PriorityTier(requested)
	variants := config.PriorityTiers[tier]

	for _, l := range labels {
		name := strings.ToLower(l.Name)
		for _, variant := range variants {
			if strings.Contains(name, variant) || strings.Contains(variant, name) {
				return &domain.PriorityLabel{
					LabelID:   l.ID,
					Priority:  tier,
					LabelName: l.Name,
				}
			}
		}
	}
	return nil
}
