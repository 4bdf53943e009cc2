package categories

import (
	"strings"

	"go.uber.org/zap"
)

const labelPrefix = "CATEGORY_"

// Personal is always excluded from scans
const Personal = "CATEGORY_PERSONAL"

// Default categories scanned when none are configured
var Default = []string{"CATEGORY_PROMOTIONS", "CATEGORY_UPDATES"}

// Known lists the user-facing category names the mailbox exposes
var Known = []string{"Personal", "Promotions", "Social", "Updates", "Forums"}

// Normalize maps a user-facing name like "Promotions" to its provider label.
// Values that already carry the label prefix are upper-cased and returned.
func Normalize(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, labelPrefix) {
		return name
	}
	return labelPrefix + name
}

// Checker decides which category labels a scan ignores
type Checker struct {
	labels []string
	logger *zap.Logger
}

// NewChecker creates a new ignore-list checker
func NewChecker(ignored []string, logger *zap.Logger) *Checker {
	labels := make([]string, 0, len(ignored))
	seen := make(map[string]bool, len(ignored))
	for _, name := range ignored {
		label := Normalize(name)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}

	if len(labels) > 0 && logger != nil {
		logger.Info("Initialized category ignore list", zap.Strings("categories", labels))
	}

	return &Checker{
		labels: labels,
		logger: logger,
	}
}

// IsIgnored checks if a category label is on the ignore list
func (c *Checker) IsIgnored(category string) bool {
	label := Normalize(category)
	for _, ignored := range c.labels {
		if ignored == label {
			if c.logger != nil {
				c.logger.Debug("Category is ignored", zap.String("category", label))
			}
			return true
		}
	}
	return false
}

// Labels returns the normalized ignore list
func (c *Checker) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Filter drops ignored categories, keeping order
func (c *Checker) Filter(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, category := range categories {
		if c.IsIgnored(category) {
			continue
		}
		out = append(out, Normalize(category))
	}
	return out
}
