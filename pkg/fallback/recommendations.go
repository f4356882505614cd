package fallback

import (
	"fmt"
	"strings"
)

// CatalogVersion identifies the built-in recommendation set. Surfaced in the
// Degraded reason so callers can tell which static content they received.
const CatalogVersion = "2025.1"

// Category is a coarse career-goal bucket used to pick a static
// recommendation when live generation is unavailable.
type Category string

const (
	CategoryDataScience         Category = "data_science"
	CategorySoftwareEngineering Category = "software_engineering"
	CategoryCloudEngineering    Category = "cloud_engineering"
	CategoryGeneric             Category = "generic"
)

// categoryKeywords maps goal/query substrings to categories. First match
// wins in declaration order.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryDataScience, []string{"data scien", "machine learning", "ml engineer", "data analy", "statistic"}},
	{CategorySoftwareEngineering, []string{"software engineer", "software develop", "backend", "frontend", "full stack", "fullstack", "programmer"}},
	{CategoryCloudEngineering, []string{"cloud", "devops", "aws", "azure", "infrastructure", "site reliability", "sre"}},
}

// recommendations is the versioned static catalog substituted during
// degradation. Content mirrors the deployed demo guidance.
var recommendations = map[Category]string{
	CategoryDataScience: "Learn Python, statistics, and SQL; build a portfolio " +
		"with Kaggle projects. Recommended courses: Machine Learning, " +
		"Statistics for Data Science.",
	CategorySoftwareEngineering: "Master algorithms, data structures, Git, and " +
		"system design. Build real-world apps and contribute to open source.",
	CategoryCloudEngineering: "Learn AWS or Azure, Docker, CI/CD, and " +
		"distributed systems. Deploy sample apps to the cloud.",
}

// DetectCategory buckets a career goal (falling back to the query text) into
// a recommendation category. Unrecognized goals map to CategoryGeneric.
func DetectCategory(goal, query string) Category {
	haystack := strings.ToLower(goal)
	if haystack == "" {
		haystack = strings.ToLower(query)
	}
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.category
			}
		}
	}
	return CategoryGeneric
}

// Recommendation returns the static text for a category. The generic text
// embeds the stated goal when one was given.
func Recommendation(category Category, goal string) string {
	if text, ok := recommendations[category]; ok {
		return text
	}
	if goal == "" {
		goal = "your chosen career path"
	}
	return fmt.Sprintf("For %s, focus on general programming skills, online "+
		"courses, and project experience.", goal)
}

// DegradedReason builds the reason string attached to a degraded result,
// naming the failure class and the catalog version substituted.
func DegradedReason(cause string) string {
	return fmt.Sprintf("%s; served static recommendation catalog %s", cause, CatalogVersion)
}
