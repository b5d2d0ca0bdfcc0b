package edgar

import (
	"strings"
	"time"

	"github.com/ternarybob/caveo/internal/models"
)

// SubmissionsResponse is the per-filer submissions index. The recent
// filings arrive column-oriented: parallel arrays indexed by filing.
type SubmissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent FilingColumns `json:"recent"`
	} `json:"filings"`
}

// FilingColumns holds the parallel arrays of the recent-filings index,
// most recent first.
type FilingColumns struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// FilingsSince flattens the column arrays into Filing rows matching the
// given form type and filed on or after since. Scanning stops after
// limit index rows (the arrays are most-recent-first, so this bounds
// work without losing new filings). Rows with unparsable dates are
// dropped.
func (s *SubmissionsResponse) FilingsSince(form string, since time.Time, limit int) []models.Filing {
	recent := s.Filings.Recent
	n := len(recent.AccessionNumber)
	if len(recent.Form) < n {
		n = len(recent.Form)
	}
	if len(recent.FilingDate) < n {
		n = len(recent.FilingDate)
	}
	if limit > 0 && n > limit {
		n = limit
	}

	var out []models.Filing
	for i := 0; i < n; i++ {
		if !strings.EqualFold(recent.Form[i], form) {
			continue
		}
		filed, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}
		if filed.Before(since) {
			continue
		}
		f := models.Filing{
			AccessionNumber: recent.AccessionNumber[i],
			Form:            recent.Form[i],
			FilingDate:      filed,
		}
		if i < len(recent.PrimaryDocument) {
			f.PrimaryDocument = recent.PrimaryDocument[i]
		}
		out = append(out, f)
	}
	return out
}

// FilingIndex is the index.json listing of one filing's archive folder.
type FilingIndex struct {
	Directory struct {
		Name string      `json:"name"`
		Item []IndexItem `json:"item"`
	} `json:"directory"`
}

// IndexItem is one file in a filing's archive folder.
type IndexItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PickDocument chooses the document most likely to carry the filing
// body: the full-submission .txt when present, then .htm/.html, then
// whatever is listed first. Empty when the folder is empty.
func (x *FilingIndex) PickDocument() string {
	items := x.Directory.Item
	if len(items) == 0 {
		return ""
	}
	for _, ext := range []string{".txt", ".htm", ".html"} {
		for _, item := range items {
			if strings.HasSuffix(strings.ToLower(item.Name), ext) {
				return item.Name
			}
		}
	}
	return items[0].Name
}

// tickerRow is one entry of the official company_tickers.json map.
type tickerRow struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// accessionFolder strips the dashes from an accession number, giving
// the archive folder name for the filing.
func accessionFolder(accession string) string {
	return strings.ReplaceAll(accession, "-", "")
}
