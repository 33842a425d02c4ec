package entities

import "time"

// CategoryOther is the catch-all category unknown names resolve to.
const CategoryOther = "other"

// Category classifies claims and weights their trending engagement.
type Category struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Weight        float64   `json:"weight"`
	RiskThreshold float64   `json:"risk_threshold"`
	CreatedAt     time.Time `json:"created_at"`
}

// DefaultCategories are seeded on init. These cannot be removed.
var DefaultCategories = []Category{
	{Name: "politics", Description: "Elections, government, public policy", Weight: 1.5, RiskThreshold: 70},
	{Name: "health", Description: "Medicine, vaccines, public health", Weight: 1.3, RiskThreshold: 85},
	{Name: "education", Description: "Schools, universities, exams", Weight: 1.1, RiskThreshold: 85},
	{Name: "science", Description: "Research findings and scientific claims", Weight: 1.0, RiskThreshold: 85},
	{Name: "economy", Description: "Prices, markets, employment figures", Weight: 1.0, RiskThreshold: 85},
	{Name: "technology", Description: "Devices, software, the internet", Weight: 1.0, RiskThreshold: 85},
	{Name: "entertainment", Description: "Celebrities, media, sport", Weight: 1.0, RiskThreshold: 85},
	{Name: CategoryOther, Description: "Anything that fits no other category", Weight: 1.0, RiskThreshold: 85},
}

// IsDefaultCategory checks if a category name is a built-in default.
func IsDefaultCategory(name string) bool {
	for _, c := range DefaultCategories {
		if c.Name == name {
			return true
		}
	}
	return false
}
