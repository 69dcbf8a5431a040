package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// UnknownVendor is returned when no line qualifies as a vendor name
	UnknownVendor = "Unknown Vendor"

	// NotAvailable is returned when no transaction ID or total pattern matches
	NotAvailable = "N/A"
)

// Rule is a pattern paired with the capture group holding the value
type Rule struct {
	Pattern *regexp.Regexp
	Group   int
}

// Rules is an ordered list of alternatives tried until one matches
type Rules []Rule

// Match returns the captured value of the first rule that matches anywhere in text.
// The boolean is false when no rule matches.
func (rs Rules) Match(text string) (string, bool) {
	for _, rule := range rs {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil || rule.Group >= len(m) {
			continue
		}
		return m[rule.Group], true
	}
	return "", false
}

func mustRule(pattern string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Group: 1}
}

// space is the body of a character class matching any Unicode whitespace,
// including vertical tab and no-break space, which `\s` alone does not cover
const space = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}`

// TransactionIDRules are checked in order, so "Transaction ID" wins over "Order #" and "Invoice #"
var TransactionIDRules = Rules{
	mustRule(`(?i)Transaction[` + space + `]*ID[:#]*[` + space + `]*([A-Za-z0-9-]+)`),
	mustRule(`(?i)Order #[:` + space + `]*([A-Za-z0-9-]+)`),
	mustRule(`(?i)Invoice #[:` + space + `]*([A-Za-z0-9-]+)`),
}

// TotalAmountRules capture the amount as written, without normalization
var TotalAmountRules = Rules{
	mustRule(`(?i)Total[:` + space + `]*\$?([\d,.]+)`),
	mustRule(`(?i)Amount[` + space + `]*Due[:` + space + `]*\$?([\d,.]+)`),
	mustRule(`(?i)Grand Total[:` + space + `]*\$?([\d,.]+)`),
	mustRule(`(?i)Sum[:` + space + `]*\$?([\d,.]+)`),
}

// vendorExclusions marks lines that carry totals or document metadata
var vendorExclusions = regexp.MustCompile(`(?i)total|amount|invoice|order`)

// Fields holds the values extracted from one document's text
type Fields struct {
	VendorName    string
	TransactionID string
	TotalAmount   string
}

// Extract runs every field extractor against the raw text
func Extract(text string) Fields {
	return Fields{
		VendorName:    VendorName(text),
		TransactionID: TransactionID(text),
		TotalAmount:   TotalAmount(text),
	}
}

// VendorName returns the first non-trivial line that is not a total or
// invoice line. It assumes the vendor is printed above that metadata, so a
// noisy first line (OCR garbage from a logo, an address) is returned as is.
func VendorName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if utf8.RuneCountInString(trimmed) <= 1 {
			continue
		}
		if vendorExclusions.MatchString(trimmed) {
			continue
		}
		return trimmed
	}
	return UnknownVendor
}

// TransactionID returns the token following the first matching ID label
func TransactionID(text string) string {
	if id, ok := TransactionIDRules.Match(text); ok {
		return id
	}
	return NotAvailable
}

// TotalAmount returns the amount following the first matching total label
func TotalAmount(text string) string {
	if amount, ok := TotalAmountRules.Match(text); ok {
		return amount
	}
	return NotAvailable
}
