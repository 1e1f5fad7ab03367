package voice

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expensio/ml-gateway/internal/keyword"
)

const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

var incomeWords = map[string]bool{
	"salary":   true,
	"bonus":    true,
	"deposit":  true,
	"credit":   true,
	"refunded": true,
	"refund":   true,
	"received": true,
	"income":   true,
}

var currencyWords = []string{"rs", "rupees", "inr", "₹", "rs."}

var (
	amountPattern     = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	wordPattern       = regexp.MustCompile(`[a-zA-Z]+`)
	symbolPattern     = regexp.MustCompile(`[₹$,]`)
	numberPattern     = regexp.MustCompile(`\b[0-9]+(?:\.[0-9]+)?\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Parsed is the structured draft extracted from a spoken phrase. It carries
// hints only: the caller decides what to do when a field could not be
// extracted (zero Amount, empty CategoryHint).
type Parsed struct {
	Amount          float64
	TransactionType string
	CategoryHint    string
	Description     string
	Date            string
}

// Parse extracts transaction hints from voice text: the first number becomes
// the amount, income keywords flip the type, date words shift the date, and
// currency words and digits are stripped to leave a clean description.
func Parse(text string) Parsed {
	normalized := strings.ToLower(text)
	words := wordPattern.FindAllString(normalized, -1)

	parsed := Parsed{
		TransactionType: TypeExpense,
		CategoryHint:    keyword.Categorize(words),
		Date:            detectDate(normalized),
	}

	if match := amountPattern.FindString(normalized); match != "" {
		if value, err := strconv.ParseFloat(match, 64); err == nil {
			parsed.Amount = value
		}
	}

	for _, word := range words {
		if incomeWords[word] {
			parsed.TransactionType = TypeIncome
			break
		}
	}

	parsed.Description = cleanDescription(normalized)
	if parsed.Description == "" {
		parsed.Description = strings.TrimSpace(text)
	}

	return parsed
}

func detectDate(lowered string) string {
	today := time.Now()
	if strings.Contains(lowered, "yesterday") {
		return today.AddDate(0, 0, -1).Format("2006-01-02")
	}
	if strings.Contains(lowered, "tomorrow") {
		return today.AddDate(0, 0, 1).Format("2006-01-02")
	}
	return today.Format("2006-01-02")
}

// cleanDescription removes currency words, symbols and numbers, leaving a
// concise description for the prediction service.
func cleanDescription(lowered string) string {
	for _, word := range currencyWords {
		lowered = strings.ReplaceAll(lowered, word, " ")
	}
	lowered = symbolPattern.ReplaceAllString(lowered, " ")
	lowered = numberPattern.ReplaceAllString(lowered, " ")
	lowered = whitespacePattern.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(lowered)
}
