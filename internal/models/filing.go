package models

import "time"

// Filing identifies one submission from a filer's recent-filings index.
type Filing struct {
	AccessionNumber string    `json:"accession_number"`
	Form            string    `json:"form"`
	FilingDate      time.Time `json:"filing_date"`
	PrimaryDocument string    `json:"primary_document,omitempty"`
}

// FilingText is the extracted plain text of one filing document,
// used by the initiative keyword scan.
type FilingText struct {
	AccessionNumber string `json:"accession_number"`
	Text            string `json:"text"`
}
