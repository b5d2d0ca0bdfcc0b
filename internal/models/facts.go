package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// CompanyFacts is the typed form of the EDGAR companyfacts document:
// facts -> taxonomy -> tag -> units -> unit -> points. Only the us-gaap
// taxonomy is consumed downstream.
type CompanyFacts struct {
	CIK        int64                          `json:"cik"`
	EntityName string                         `json:"entityName"`
	Facts      map[string]map[string]TagFacts `json:"facts"`
}

// USGAAP returns the us-gaap tag map, never nil.
func (f *CompanyFacts) USGAAP() map[string]TagFacts {
	if f == nil || f.Facts == nil {
		return map[string]TagFacts{}
	}
	if gaap, ok := f.Facts["us-gaap"]; ok && gaap != nil {
		return gaap
	}
	return map[string]TagFacts{}
}

// TagFacts holds all reported points for one concept tag, grouped by unit.
type TagFacts struct {
	Label       string                `json:"label"`
	Description string                `json:"description"`
	Units       map[string][]RawPoint `json:"units"`
}

// RawPoint is a single reported fact value. Malformed dates and values
// decode to zero/NaN and are dropped during extraction rather than
// failing the whole document.
type RawPoint struct {
	Start Date   `json:"start"`
	End   Date   `json:"end"`
	Val   Amount `json:"val"`
	FY    int    `json:"fy"`
	FP    string `json:"fp"`
	Form  string `json:"form"`
	Filed Date   `json:"filed"`
	Frame string `json:"frame"`
}

// Date is a civil calendar date as EDGAR serializes it ("2006-01-02").
// Unparsable input decodes to the zero value.
type Date struct {
	time.Time
}

// NewDate builds a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// Some documents carry full timestamps; keep the date part.
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		d.Time = time.Time{}
		return nil
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// String renders the canonical "2006-01-02" form, empty for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Amount is a fact value. EDGAR emits bare JSON numbers; a few older
// documents quote them. Unparsable tokens decode as NaN and are dropped
// during extraction.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*a = Amount(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*a = Amount(math.NaN())
		return nil
	}
	*a = Amount(f)
	return nil
}

// IsFinite reports whether the value parsed to a usable number.
func (a Amount) IsFinite() bool {
	f := float64(a)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
