package keyword

import (
	"regexp"
	"strings"
)

// categories maps trigger words to transaction categories. Used as the
// rule-based fallback when no model prediction is available.
var categories = map[string]string{
	"salary":        "Salary",
	"deposit":       "Salary",
	"bonus":         "Salary",
	"food":          "Food",
	"restaurant":    "Food",
	"dining":        "Food",
	"rent":          "Rent",
	"shopping":      "Shopping",
	"grocery":       "Groceries",
	"groceries":     "Groceries",
	"supermarket":   "Groceries",
	"subscription":  "Subscription",
	"netflix":       "Subscription",
	"spotify":       "Subscription",
	"electricity":   "Bills",
	"water":         "Bills",
	"internet":      "Bills",
	"insurance":     "Insurance",
	"health":        "Insurance",
	"fuel":          "Transport",
	"car":           "Transport",
	"bus":           "Transport",
	"taxi":          "Transport",
	"uber":          "Transport",
	"ola":           "Transport",
	"loan":          "Loans",
	"emi":           "Loans",
	"mortgage":      "Loans",
	"gift":          "Gift",
	"donation":      "Donation",
	"charity":       "Donation",
	"entertainment": "Entertainment",
	"movie":         "Entertainment",
	"concert":       "Entertainment",
	"travel":        "Travel",
	"flight":        "Travel",
	"hotel":         "Travel",
	"vacation":      "Travel",
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// Categorize returns the category of the first word with a known mapping,
// or the empty string when no word matches. Earlier words win, so the most
// prominent term in a description decides the category.
func Categorize(words []string) string {
	for _, word := range words {
		if category, ok := categories[strings.ToLower(word)]; ok {
			return category
		}
	}
	return ""
}

// CategorizeText tokenizes free text and categorizes its words.
func CategorizeText(text string) string {
	return Categorize(wordPattern.FindAllString(strings.ToLower(text), -1))
}
