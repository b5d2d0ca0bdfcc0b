// Package dashboard assembles the exported snapshot: watch-list,
// latest state per company enriched with one-month price overlays and
// a pressure grade, and the recent transition events. The JSON shape
// is the public contract in pkg/models.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	"github.com/ternarybob/caveo/internal/quotes"
	pkgmodels "github.com/ternarybob/caveo/pkg/models"
)

const defaultStaleAfter = 72 * time.Hour

// Service builds and exports the dashboard payload.
type Service struct {
	storage    interfaces.StorageManager
	prices     interfaces.PriceDataProvider
	config     common.DashboardConfig
	staleAfter time.Duration
	logger     arbor.ILogger
}

var _ interfaces.DashboardService = (*Service)(nil)

// NewService creates the dashboard service. A nil price provider
// disables quote enrichment; every row then exports null price data.
func NewService(storage interfaces.StorageManager, prices interfaces.PriceDataProvider, config common.DashboardConfig, logger arbor.ILogger) *Service {
	staleAfter, err := time.ParseDuration(config.StaleAfter)
	if err != nil || staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Service{
		storage:    storage,
		prices:     prices,
		config:     config,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Snapshot builds the full payload from storage. Quote fetch failures
// degrade the affected row to null price data; they never fail the
// snapshot. A canceled context stops further quote fetches while the
// rest of the payload still assembles from storage.
func (s *Service) Snapshot(ctx context.Context) (*pkgmodels.Dashboard, error) {
	companies, err := s.storage.CompanyStorage().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].ID < companies[j].ID })

	latest, err := s.storage.StateStorage().LatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest states: %w", err)
	}

	now := time.Now().UTC()

	companyRows := make([]pkgmodels.CompanyRow, 0, len(companies))
	stateRows := make([]pkgmodels.StateRow, 0, len(latest))
	inScopeTotal := 0

	for _, company := range companies {
		companyRows = append(companyRows, pkgmodels.CompanyRow{
			CompanyID: company.ID,
			Ticker:    company.Ticker,
			CIK:       models.PadCIK(company.CIK),
			Bucket:    company.Bucket,
			InScope:   company.InScope,
		})
		if company.InScope {
			inScopeTotal++
		}

		record, ok := latest[company.ID]
		if !ok || record == nil {
			continue
		}
		stateRows = append(stateRows, s.buildStateRow(ctx, company, record, now))
	}

	sort.Slice(stateRows, func(i, j int) bool { return stateRows[i].Ticker < stateRows[j].Ticker })

	events, err := s.storage.EventStorage().RecentEvents(ctx, s.config.EventLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	eventRows := make([]pkgmodels.EventRow, 0, len(events))
	for _, event := range events {
		eventRows = append(eventRows, pkgmodels.EventRow{
			ID:        event.ID,
			CompanyID: event.CompanyID,
			Ticker:    event.Ticker,
			AsOf:      event.AsOf,
			PrevState: string(event.PrevState),
			NewState:  string(event.NewState),
			Payload:   json.RawMessage(event.Payload),
			CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return &pkgmodels.Dashboard{
		GeneratedAt: now.Format(time.RFC3339),
		Summary:     buildSummary(companyRows, stateRows, inScopeTotal),
		Companies:   companyRows,
		LatestState: stateRows,
		Events:      eventRows,
	}, nil
}

// Export writes the snapshot to the configured path atomically and
// returns the path written.
func (s *Service) Export(ctx context.Context) (string, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode dashboard: %w", err)
	}

	dir := filepath.Dir(s.config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dashboard-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write dashboard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.config.Path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to replace dashboard file: %w", err)
	}

	s.logger.Info().
		Str("path", s.config.Path).
		Int("companies", len(snapshot.Companies)).
		Int("latest_rows", len(snapshot.LatestState)).
		Int("events", len(snapshot.Events)).
		Msg("Dashboard exported")

	return s.config.Path, nil
}

func (s *Service) buildStateRow(ctx context.Context, company *models.Company, record *models.StateRecord, now time.Time) pkgmodels.StateRow {
	row := pkgmodels.StateRow{
		CompanyID:    company.ID,
		Ticker:       company.Ticker,
		Bucket:       company.Bucket,
		InScope:      company.InScope,
		AsOf:         record.AsOf,
		State:        string(record.State),
		Condition1:   record.Flags.Condition1,
		Condition2:   record.Flags.Condition2,
		Condition3:   record.Flags.Condition3,
		Condition4:   record.Flags.Condition4,
		Details:      json.RawMessage(record.Details),
		PriceMetrics: pkgmodels.PriceMetrics{},
		Stale:        common.CheckStateStaleness(record.CreatedAt, now, s.staleAfter).IsStale,
	}

	var metrics quotes.PriceMetrics
	if s.prices != nil && company.InScope && ctx.Err() == nil {
		ticker := common.ParseTicker(company.Ticker)
		if ticker.Code != "" {
			price, err := s.prices.History1M(ctx, ticker, now)
			if err != nil {
				s.logger.Debug().
					Str("ticker", company.Ticker).
					Err(err).
					Msg("No price data for ticker")
			} else {
				row.Price1M = toPrice(price)
				metrics = quotes.ComputeMetrics(price)
			}
		}
	}
	row.PriceMetrics = toMetrics(metrics)

	row.PressureScore, row.PressureGrade, row.TriggeredConditions = gradeRow(company.InScope, record.Flags, row.PriceMetrics)
	return row
}

func buildSummary(companies []pkgmodels.CompanyRow, rows []pkgmodels.StateRow, inScopeTotal int) pkgmodels.Summary {
	states := map[string]int{
		string(models.StateIgnore):   0,
		string(models.StateMonitor):  0,
		string(models.StateTrack):    0,
		string(models.StateTerminal): 0,
	}
	grades := map[string]int{
		pkgmodels.GradeStable:     0,
		pkgmodels.GradeWatch:      0,
		pkgmodels.GradeElevated:   0,
		pkgmodels.GradeCritical:   0,
		pkgmodels.GradeOutOfScope: 0,
	}

	pricesAvailable := 0
	for _, row := range rows {
		states[row.State]++
		grades[row.PressureGrade]++
		if row.Price1M != nil && len(row.Price1M.Closes) > 0 {
			pricesAvailable++
		}
	}

	return pkgmodels.Summary{
		CompaniesTotal:    len(companies),
		LatestRows:        len(rows),
		InScopeTotal:      inScopeTotal,
		States:            states,
		Prices1MAvailable: pricesAvailable,
		PressureGrades:    grades,
	}
}

func toPrice(price *quotes.Price1M) *pkgmodels.Price1M {
	if price == nil {
		return nil
	}
	return &pkgmodels.Price1M{
		Closes:    price.Closes,
		PctChange: price.PctChange,
		Start:     price.Start,
		End:       price.End,
		Source:    price.Source,
	}
}

func toMetrics(metrics quotes.PriceMetrics) pkgmodels.PriceMetrics {
	return pkgmodels.PriceMetrics{
		Return1MPct:   metrics.Return1MPct,
		Drawdown1MPct: metrics.Drawdown1MPct,
		Vol1MDailyPct: metrics.Vol1MDailyPct,
	}
}
