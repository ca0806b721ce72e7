package findings

import (
	"log/slog"
)

// Preferences maps a category to its enabled flag. Every key is a known
// category; unknown ids are rejected at the parse boundary.
type Preferences map[Category]bool

// DefaultPreferences enables every category.
func DefaultPreferences() Preferences {
	prefs := make(Preferences, len(Categories()))
	for _, c := range Categories() {
		prefs[c] = true
	}
	return prefs
}

// ParsePreferences merges raw user input over the defaults. Unknown
// category ids are logged and ignored; categories absent from the input
// keep their default value.
func ParsePreferences(raw map[string]bool, defaults Preferences, logger *slog.Logger) Preferences {
	if logger == nil {
		logger = slog.Default()
	}

	prefs := make(Preferences, len(defaults))
	for c, enabled := range defaults {
		prefs[c] = enabled
	}

	for id, enabled := range raw {
		c := Category(id)
		if !Known(c) {
			logger.Warn("ignoring unknown anonymization category", "category", id)
			continue
		}
		prefs[c] = enabled
	}

	return prefs
}

// Enabled returns the enabled categories in stable category order.
func (p Preferences) Enabled() []Category {
	var enabled []Category
	for _, c := range Categories() {
		if p[c] {
			enabled = append(enabled, c)
		}
	}
	return enabled
}
