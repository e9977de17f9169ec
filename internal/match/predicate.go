// Package match evaluates reconciliation rules against transactions. It is
// pure: no I/O, deterministic, and total. Malformed patterns and conditions
// fail closed to no-match rather than erroring.
package match

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcollier/studiobooks/internal/database/repository"
)

// Matches reports whether rule matches txn.
//
// The transaction-type pre-filter runs first regardless of match type: a rule
// constrained to income never matches an expense. Type is derived from the
// amount sign (negative = expense), the single canonical derivation used
// everywhere.
func Matches(rule repository.Rule, txn repository.Transaction) bool {
	if rule.MatchTransactionType != nil && *rule.MatchTransactionType != txn.Type() {
		return false
	}

	switch rule.MatchType {
	case repository.MatchTypeVendor:
		if rule.MatchVendorID == nil || txn.VendorID == nil || *rule.MatchVendorID != *txn.VendorID {
			return false
		}
		// A pattern on a vendor rule narrows it further.
		if p := strPtr(rule.MatchDescriptionPattern); p != "" {
			return regexContains(p, txn.Description)
		}
		return true

	case repository.MatchTypeStaff:
		if rule.MatchStaffID == nil || txn.StaffID == nil || *rule.MatchStaffID != *txn.StaffID {
			return false
		}
		if p := strPtr(rule.MatchDescriptionPattern); p != "" {
			return regexContains(p, txn.Description)
		}
		return true

	case repository.MatchTypeCounterParty:
		pattern := strings.TrimSpace(strPtr(rule.MatchCounterParty))
		if pattern == "" {
			return false
		}
		// Substring in either direction tolerates abbreviated names in bank
		// data, but is not a fuzzy match: one side must contain the other.
		party := strings.ToLower(txn.RawParty)
		pat := strings.ToLower(pattern)
		return strings.Contains(party, pat) || strings.Contains(pat, party)

	case repository.MatchTypeDescription:
		pattern := strPtr(rule.MatchDescriptionPattern)
		if pattern == "" {
			return false
		}
		return strings.Contains(strings.ToLower(txn.Description), strings.ToLower(pattern))

	case repository.MatchTypeRegex:
		pattern := strPtr(rule.MatchDescriptionPattern)
		if pattern == "" {
			return false
		}
		return regexContains(pattern, txn.Description)

	case repository.MatchTypeAmount:
		return amountInBounds(txn.AmountCents, rule.MatchAmountMinCents, rule.MatchAmountMaxCents)

	case repository.MatchTypeComposite:
		if rule.MatchVendorID != nil {
			if txn.VendorID == nil || *txn.VendorID != *rule.MatchVendorID {
				return false
			}
		}
		if rule.MatchStaffID != nil {
			if txn.StaffID == nil || *txn.StaffID != *rule.MatchStaffID {
				return false
			}
		}
		if p := strPtr(rule.MatchDescriptionPattern); p != "" {
			if !regexContains(p, txn.Description) {
				return false
			}
		}
		if rule.MatchAmountMinCents != nil || rule.MatchAmountMaxCents != nil {
			if !amountInBounds(txn.AmountCents, rule.MatchAmountMinCents, rule.MatchAmountMaxCents) {
				return false
			}
		}
		return true

	case repository.MatchTypeConditions:
		// A conditions rule with nothing to check matches nothing.
		if len(rule.Conditions) == 0 {
			return false
		}
		for _, c := range rule.Conditions {
			if !conditionMatches(c, txn) {
				return false
			}
		}
		return true
	}
	return false
}

func conditionMatches(c repository.Condition, txn repository.Transaction) bool {
	switch c.Field {
	case repository.FieldAmount:
		return amountCondition(c, txn.AmountCents)
	case repository.FieldTransactionType:
		return strings.ToLower(strings.TrimSpace(c.Value)) == txn.Type()
	case repository.FieldCounterParty:
		return textCondition(c, txn.RawParty)
	case repository.FieldReference:
		return textCondition(c, txn.Description)
	}
	return false
}

func textCondition(c repository.Condition, subject string) bool {
	s := strings.ToLower(subject)
	v := strings.ToLower(c.Value)
	switch c.Operator {
	case repository.OpContains:
		return strings.Contains(s, v)
	case repository.OpNotContains:
		return !strings.Contains(s, v)
	case repository.OpEquals:
		return s == v
	case repository.OpStartsWith:
		return strings.HasPrefix(s, v)
	case repository.OpEndsWith:
		return strings.HasSuffix(s, v)
	case repository.OpRegex:
		return regexContains(c.Value, subject)
	}
	return false
}

// amountCondition compares against the absolute value of the amount, so a rule
// on "amount greater than 50" matches a 75.00 expense and a 75.00 income alike
// (the transaction_type field exists for sign constraints).
func amountCondition(c repository.Condition, amountCents int64) bool {
	abs := amountCents
	if abs < 0 {
		abs = -abs
	}
	value, ok := parseAmountCents(c.Value)
	if !ok {
		return false
	}
	switch c.Operator {
	case repository.OpEquals:
		return abs == value
	case repository.OpGreaterThan:
		return abs > value
	case repository.OpLessThan:
		return abs < value
	case repository.OpBetween:
		if c.Value2 == nil {
			return false
		}
		upper, ok := parseAmountCents(*c.Value2)
		if !ok {
			return false
		}
		return abs >= value && abs <= upper
	}
	return false
}

func amountInBounds(amountCents int64, minCents, maxCents *int64) bool {
	abs := amountCents
	if abs < 0 {
		abs = -abs
	}
	if minCents != nil && abs < *minCents {
		return false
	}
	if maxCents != nil && abs > *maxCents {
		return false
	}
	return true
}

// parseAmountCents parses a user-entered dollar amount exactly.
func parseAmountCents(s string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return d.Shift(2).Round(0).IntPart(), true
}

// regexContains matches pattern case-insensitively against subject. An invalid
// pattern is treated as no-match, never as an error.
func regexContains(pattern, subject string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false
	}
	return re.MatchString(subject)
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
