// Package evaluator orchestrates the evaluation pipeline: quarterly
// facts in, condition flags through the state machine, state history
// out. One batch at a time; per-company work is serialized by a keyed
// mutex so a manual evaluation can never race a scheduled one.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/facts"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	"github.com/ternarybob/caveo/internal/signals"
	"github.com/ternarybob/caveo/internal/state"
)

// Service implements the evaluation pipeline over the stored watch-list.
type Service struct {
	storage      interfaces.StorageManager
	edgar        interfaces.EdgarService
	transform    interfaces.TransformService
	eventService interfaces.EventService
	edgarConfig  common.EdgarConfig
	concurrency  int
	logger       arbor.ILogger

	runMu   sync.Mutex
	running bool

	// companyLocks serializes evaluations of the same company. Entries
	// are never removed; the map is bounded by the watch-list size.
	lockMu       sync.Mutex
	companyLocks map[string]*sync.Mutex
}

var _ interfaces.EvaluatorService = (*Service)(nil)

// NewService creates the evaluator service.
func NewService(
	storage interfaces.StorageManager,
	edgarClient interfaces.EdgarService,
	transform interfaces.TransformService,
	eventService interfaces.EventService,
	edgarConfig common.EdgarConfig,
	evaluatorConfig common.EvaluatorConfig,
	logger arbor.ILogger,
) *Service {
	concurrency := evaluatorConfig.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Service{
		storage:      storage,
		edgar:        edgarClient,
		transform:    transform,
		eventService: eventService,
		edgarConfig:  edgarConfig,
		concurrency:  concurrency,
		logger:       logger,
		companyLocks: make(map[string]*sync.Mutex),
	}
}

// IsRunning reports whether a batch is currently in flight.
func (s *Service) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

// EvaluateAll runs one batch over every stored company and returns the
// per-company outcomes. In-scope companies are evaluated first so the
// IGNORE short-circuits never delay notifiable work.
func (s *Service) EvaluateAll(ctx context.Context) (*models.BatchReport, error) {
	if err := s.acquireRun(); err != nil {
		return nil, err
	}
	defer s.releaseRun()

	return s.runBatch(ctx, common.NewRunID())
}

// Start begins a batch in the background and returns its run ID
// immediately. The batch runs on a background context so it outlives
// the caller.
func (s *Service) Start() (string, error) {
	if err := s.acquireRun(); err != nil {
		return "", err
	}

	runID := common.NewRunID()
	common.SafeGo(s.logger, "evaluation-batch", func() {
		defer s.releaseRun()
		if _, err := s.runBatch(context.Background(), runID); err != nil {
			s.logger.Error().Err(err).Str("run_id", runID).Msg("Background evaluation failed")
		}
	})

	return runID, nil
}

func (s *Service) acquireRun() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return fmt.Errorf("evaluation batch already running")
	}
	s.running = true
	return nil
}

func (s *Service) releaseRun() {
	s.runMu.Lock()
	s.running = false
	s.runMu.Unlock()
}

func (s *Service) runBatch(ctx context.Context, runID string) (*models.BatchReport, error) {
	companies, err := s.storage.CompanyStorage().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	sort.SliceStable(companies, func(i, j int) bool {
		return companies[i].InScope && !companies[j].InScope
	})

	report := &models.BatchReport{
		RunID:     runID,
		AsOf:      time.Now().UTC().Format("2006-01-02"),
		StartedAt: time.Now().UTC(),
		Results:   make([]models.EntityResult, len(companies)),
	}

	runLogger := s.logger.WithCorrelationId(report.RunID)
	runLogger.Info().
		Str("run_id", report.RunID).
		Str("as_of", report.AsOf).
		Int("companies", len(companies)).
		Msg("🚀 Evaluation run started")

	if err := s.eventService.Publish(ctx, interfaces.Event{
		Type: interfaces.EventRunStarted,
		Payload: map[string]interface{}{
			"run_id":    report.RunID,
			"as_of":     report.AsOf,
			"companies": len(companies),
		},
	}); err != nil {
		runLogger.Warn().Err(err).Msg("Failed to publish run started event")
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for i, company := range companies {
		wg.Add(1)
		go func(idx int, c *models.Company) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			report.Results[idx] = s.evaluateOne(ctx, runLogger, c, report.AsOf)
		}(i, company)
	}

	wg.Wait()

	report.FinishedAt = time.Now().UTC()
	report.Tally()

	runLogger.Info().
		Str("run_id", report.RunID).
		Int("evaluated", report.Evaluated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("changed", report.Changed).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("✅ Evaluation run completed")

	if err := s.eventService.Publish(ctx, interfaces.Event{
		Type: interfaces.EventRunCompleted,
		Payload: map[string]interface{}{
			"run_id":    report.RunID,
			"as_of":     report.AsOf,
			"evaluated": report.Evaluated,
			"skipped":   report.Skipped,
			"failed":    report.Failed,
			"changed":   report.Changed,
		},
	}); err != nil {
		runLogger.Warn().Err(err).Msg("Failed to publish run completed event")
	}

	return report, nil
}

// EvaluateCompany runs the pipeline for a single stored company.
func (s *Service) EvaluateCompany(ctx context.Context, companyID string) (*models.EntityResult, error) {
	company, err := s.storage.CompanyStorage().Get(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	asOf := time.Now().UTC().Format("2006-01-02")
	result := s.evaluateOne(ctx, s.logger, company, asOf)
	return &result, nil
}

// evaluateOne classifies a single company for one as-of date. Errors
// never escape: every path folds into an EntityResult so a batch can
// enumerate exactly what happened to each company.
func (s *Service) evaluateOne(ctx context.Context, logger arbor.ILogger, company *models.Company, asOf string) (result models.EntityResult) {
	result = models.EntityResult{
		CompanyID: company.ID,
		Ticker:    company.Ticker,
		Outcome:   models.OutcomeFailed,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = models.OutcomeFailed
			result.Reason = fmt.Sprintf("panic: %v", r)
			logger.Error().
				Str("ticker", company.Ticker).
				Str("reason", result.Reason).
				Msg("Evaluation panicked")
		}
	}()

	unlock := s.lockCompany(company.ID)
	defer unlock()

	prev := models.DefaultState
	latest, err := s.storage.StateStorage().LatestState(ctx, company.ID)
	if err != nil {
		result.Reason = fmt.Sprintf("failed to read latest state: %v", err)
		logger.Error().Err(err).Str("ticker", company.Ticker).Msg("Evaluation failed")
		return result
	}
	if latest != nil {
		prev = latest.State
	}
	result.PrevState = prev

	// Out of scope: classify without touching EDGAR.
	if !company.InScope {
		next := state.Next(models.EvaluationInput{InScope: false, PrevState: prev})
		details, _ := json.Marshal(map[string]string{"reason": "out_of_scope"})
		result.Reason = "out_of_scope"
		return s.commit(ctx, logger, company, asOf, prev, next, models.ConditionFlags{}, details, result)
	}

	doc, err := s.edgar.CompanyFacts(ctx, company.CIK)
	if err != nil {
		result.Reason = fmt.Sprintf("failed to fetch company facts: %v", err)
		logger.Warn().Err(err).Str("ticker", company.Ticker).Msg("Evaluation failed")
		return result
	}

	c1, err := signals.EvaluateCondition1(doc)
	if err != nil {
		var insufficient *facts.InsufficientSeriesError
		if errors.As(err, &insufficient) {
			// The prior state stands until a later cycle resolves the
			// series; nothing is written for this company.
			result.Outcome = models.OutcomeSkipped
			result.Reason = insufficient.Error()
			logger.Info().
				Str("ticker", company.Ticker).
				Str("reason", result.Reason).
				Msg("Skipped: insufficient quarterly series")
			return result
		}
		result.Reason = fmt.Sprintf("failed to evaluate condition 1: %v", err)
		logger.Warn().Err(err).Str("ticker", company.Ticker).Msg("Evaluation failed")
		return result
	}

	c2 := signals.EvaluateCondition2(doc)
	c3 := signals.EvaluateCondition3(doc, c1)
	c4 := s.scanInitiatives(ctx, logger, company, c1)

	flags := models.ConditionFlags{
		Condition1: c1.Triggered,
		Condition2: c2.Triggered,
		Condition3: c3.Triggered,
		Condition4: c4.Triggered,
	}

	next := state.Next(models.EvaluationInput{
		InScope:           true,
		HasSufficientData: true,
		PrevState:         prev,
		Flags:             flags,
	})

	details, err := json.Marshal(signals.Evaluation{C1: c1, C2: c2, C3: c3, C4: c4})
	if err != nil {
		logger.Warn().Err(err).Str("ticker", company.Ticker).Msg("Failed to encode evaluation details")
		details = nil
	}

	return s.commit(ctx, logger, company, asOf, prev, next, flags, details, result)
}

// commit persists the evaluation outcome: the state record always, and
// on a transition the event row plus the bus notification.
func (s *Service) commit(ctx context.Context, logger arbor.ILogger, company *models.Company, asOf string, prev, next models.State, flags models.ConditionFlags, details []byte, result models.EntityResult) models.EntityResult {
	record := &models.StateRecord{
		CompanyID: company.ID,
		AsOf:      asOf,
		State:     next,
		Flags:     flags,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.StateStorage().SaveRecord(ctx, record); err != nil {
		result.Outcome = models.OutcomeFailed
		result.Reason = fmt.Sprintf("failed to save state record: %v", err)
		logger.Error().Err(err).Str("ticker", company.Ticker).Msg("Evaluation failed")
		return result
	}

	result.Outcome = models.OutcomeEvaluated
	result.State = next
	result.Changed = next != prev

	if !result.Changed {
		logger.Info().
			Str("ticker", company.Ticker).
			Str("state", string(next)).
			Msg("State unchanged")
		return result
	}

	event := &models.StateEvent{
		ID:        common.NewEventID(),
		CompanyID: company.ID,
		Ticker:    company.Ticker,
		AsOf:      asOf,
		PrevState: prev,
		NewState:  next,
		Payload:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.EventStorage().SaveEvent(ctx, event); err != nil {
		logger.Warn().Err(err).Str("ticker", company.Ticker).Msg("Failed to save state event")
	}

	if err := s.eventService.Publish(ctx, interfaces.Event{
		Type: interfaces.EventStateChanged,
		Payload: map[string]interface{}{
			"company_id":  company.ID,
			"ticker":      company.Ticker,
			"as_of":       asOf,
			"prev_state":  string(prev),
			"new_state":   string(next),
			"condition_1": flags.Condition1,
			"condition_2": flags.Condition2,
			"condition_3": flags.Condition3,
			"condition_4": flags.Condition4,
		},
	}); err != nil {
		logger.Warn().Err(err).Str("ticker", company.Ticker).Msg("Failed to publish state change event")
	}

	logger.Info().
		Str("ticker", company.Ticker).
		Str("prev_state", string(prev)).
		Str("new_state", string(next)).
		Bool("condition_1", flags.Condition1).
		Bool("condition_2", flags.Condition2).
		Bool("condition_3", flags.Condition3).
		Bool("condition_4", flags.Condition4).
		Msg("State changed")

	return result
}

// scanInitiatives runs the initiative keyword scan over recent 8-K
// filings. Guardrail: the scan only runs when condition 1 already
// holds. The scan is best-effort: fetch or parse failures downgrade to
// the default false result rather than failing the evaluation.
func (s *Service) scanInitiatives(ctx context.Context, logger arbor.ILogger, company *models.Company, c1 signals.Condition1Result) signals.Condition4Result {
	if !c1.Triggered {
		return signals.DefaultCondition4(c1, "condition_1 gate: scan not run")
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -s.edgarConfig.LookbackDays)
	filings, err := s.edgar.RecentFilings(ctx, company.CIK, "8-K", since, s.edgarConfig.MaxFilings)
	if err != nil {
		logger.Warn().Err(err).Str("ticker", company.Ticker).Msg("Initiative scan failed, condition 4 defaults to false")
		return signals.DefaultCondition4(c1, "filing index fetch failed")
	}

	// Fetch bodies one at a time and rescan: the first initiative hit
	// ends the scan without fetching the remaining documents.
	scanned := make([]models.FilingText, 0, len(filings))
	for _, filing := range filings {
		if ctx.Err() != nil {
			break
		}
		if !common.WithinWindow(filing.FilingDate, now, s.edgarConfig.LookbackDays) {
			continue
		}

		body, err := s.edgar.FilingBody(ctx, company.CIK, filing)
		if err != nil {
			logger.Warn().Err(err).
				Str("ticker", company.Ticker).
				Str("accession", filing.AccessionNumber).
				Msg("Filing body fetch failed, skipping document")
			continue
		}

		scanned = append(scanned, models.FilingText{
			AccessionNumber: filing.AccessionNumber,
			Text:            s.transform.ExtractText(body),
		})

		if candidate := signals.EvaluateCondition4(scanned, c1); candidate.InitiativeDetected {
			return candidate
		}
	}

	return signals.EvaluateCondition4(scanned, c1)
}

func (s *Service) lockCompany(id string) func() {
	s.lockMu.Lock()
	mu, ok := s.companyLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.companyLocks[id] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
