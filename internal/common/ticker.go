// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// Ticker represents a normalized US equity ticker as EDGAR reports it.
// Class shares keep their dotted form (e.g., "BRK.B").
type Ticker struct {
	// Code is the canonical upper-case ticker code (e.g., "TSLA", "BRK.B")
	Code string
	// Raw is the original ticker string
	Raw string
}

// ParseTicker normalizes a raw ticker string.
// Supports formats:
//   - "TSLA" -> Code="TSLA"
//   - "tsla" -> Code="TSLA" (normalized to uppercase)
//   - "$TSLA" -> Code="TSLA" (cashtag prefix dropped)
//   - "BRK.B" -> Code="BRK.B" (class shares keep the dot)
//
// Returns the zero value for empty input.
func ParseTicker(ticker string) Ticker {
	raw := ticker
	ticker = strings.TrimSpace(ticker)
	ticker = strings.TrimPrefix(ticker, "$")
	if ticker == "" {
		return Ticker{}
	}

	return Ticker{
		Code: strings.ToUpper(ticker),
		Raw:  raw,
	}
}

// String returns the canonical ticker code.
func (t Ticker) String() string {
	return t.Code
}

// StooqSymbol returns the primary Stooq quote symbol for a US listing.
// Stooq lower-cases codes, appends ".us", and writes class shares with
// a dash instead of a dot.
// Example: "BRK.B" -> "brk-b.us"
func (t Ticker) StooqSymbol() string {
	if t.Code == "" {
		return ""
	}
	return t.stooqCode() + ".us"
}

// StooqCandidates returns the Stooq symbols to try in order. Most US
// equities resolve under the ".us" suffix; a few only resolve in bare
// form, so the unsuffixed code is kept as the fallback.
func (t Ticker) StooqCandidates() []string {
	if t.Code == "" {
		return nil
	}
	return []string{t.StooqSymbol(), t.stooqCode()}
}

func (t Ticker) stooqCode() string {
	code := strings.ToLower(t.Code)
	return strings.ReplaceAll(code, ".", "-")
}

// ParseTickers parses a list of ticker strings, skipping empties.
func ParseTickers(tickers []string) []Ticker {
	result := make([]Ticker, 0, len(tickers))
	for _, t := range tickers {
		if parsed := ParseTicker(t); parsed.Code != "" {
			result = append(result, parsed)
		}
	}
	return result
}
