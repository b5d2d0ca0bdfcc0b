package handlers

import (
	"context"
	"time"

	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	pkgmodels "github.com/ternarybob/caveo/pkg/models"
)

// Func-field mocks shared across the handler tests. A nil func returns
// zero values so each test only stubs what it exercises.

type mockCompanyStorage struct {
	upsertFunc func(ctx context.Context, company *models.Company) error
	getFunc    func(ctx context.Context, id string) (*models.Company, error)
	listFunc   func(ctx context.Context) ([]*models.Company, error)
	deleteFunc func(ctx context.Context, id string) error
	countFunc  func(ctx context.Context) (int, error)
}

func (m *mockCompanyStorage) Upsert(ctx context.Context, company *models.Company) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, company)
	}
	return nil
}

func (m *mockCompanyStorage) Get(ctx context.Context, id string) (*models.Company, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCompanyStorage) List(ctx context.Context) ([]*models.Company, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockCompanyStorage) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockCompanyStorage) Count(ctx context.Context) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

type mockStateStorage struct {
	saveRecordFunc  func(ctx context.Context, record *models.StateRecord) error
	latestStateFunc func(ctx context.Context, companyID string) (*models.StateRecord, error)
	historyFunc     func(ctx context.Context, companyID string, limit int) ([]*models.StateRecord, error)
	latestAllFunc   func(ctx context.Context) (map[string]*models.StateRecord, error)
	countFunc       func(ctx context.Context) (int, error)
}

func (m *mockStateStorage) SaveRecord(ctx context.Context, record *models.StateRecord) error {
	if m.saveRecordFunc != nil {
		return m.saveRecordFunc(ctx, record)
	}
	return nil
}

func (m *mockStateStorage) LatestState(ctx context.Context, companyID string) (*models.StateRecord, error) {
	if m.latestStateFunc != nil {
		return m.latestStateFunc(ctx, companyID)
	}
	return nil, nil
}

func (m *mockStateStorage) History(ctx context.Context, companyID string, limit int) ([]*models.StateRecord, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, companyID, limit)
	}
	return nil, nil
}

func (m *mockStateStorage) LatestAll(ctx context.Context) (map[string]*models.StateRecord, error) {
	if m.latestAllFunc != nil {
		return m.latestAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockStateStorage) Count(ctx context.Context) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

type mockEventStorage struct {
	saveEventFunc        func(ctx context.Context, event *models.StateEvent) error
	recentEventsFunc     func(ctx context.Context, limit int) ([]*models.StateEvent, error)
	eventsForCompanyFunc func(ctx context.Context, companyID string, limit int) ([]*models.StateEvent, error)
	countFunc            func(ctx context.Context) (int, error)
}

func (m *mockEventStorage) SaveEvent(ctx context.Context, event *models.StateEvent) error {
	if m.saveEventFunc != nil {
		return m.saveEventFunc(ctx, event)
	}
	return nil
}

func (m *mockEventStorage) RecentEvents(ctx context.Context, limit int) ([]*models.StateEvent, error) {
	if m.recentEventsFunc != nil {
		return m.recentEventsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockEventStorage) EventsForCompany(ctx context.Context, companyID string, limit int) ([]*models.StateEvent, error) {
	if m.eventsForCompanyFunc != nil {
		return m.eventsForCompanyFunc(ctx, companyID, limit)
	}
	return nil, nil
}

func (m *mockEventStorage) Count(ctx context.Context) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

type mockRunLogStorage struct {
	appendEntryFunc func(ctx context.Context, runID string, entry models.RunLogEntry) error
	getEntriesFunc  func(ctx context.Context, runID string, minLevel string) ([]models.RunLogEntry, error)
	listRunIDsFunc  func(ctx context.Context, limit int) ([]string, error)
	deleteRunFunc   func(ctx context.Context, runID string) error
}

func (m *mockRunLogStorage) AppendEntry(ctx context.Context, runID string, entry models.RunLogEntry) error {
	if m.appendEntryFunc != nil {
		return m.appendEntryFunc(ctx, runID, entry)
	}
	return nil
}

func (m *mockRunLogStorage) GetEntries(ctx context.Context, runID string, minLevel string) ([]models.RunLogEntry, error) {
	if m.getEntriesFunc != nil {
		return m.getEntriesFunc(ctx, runID, minLevel)
	}
	return nil, nil
}

func (m *mockRunLogStorage) ListRunIDs(ctx context.Context, limit int) ([]string, error) {
	if m.listRunIDsFunc != nil {
		return m.listRunIDsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockRunLogStorage) DeleteRun(ctx context.Context, runID string) error {
	if m.deleteRunFunc != nil {
		return m.deleteRunFunc(ctx, runID)
	}
	return nil
}

// mockStorageManager bundles the storage mocks behind the composite
// interface handlers receive.
type mockStorageManager struct {
	companies *mockCompanyStorage
	states    *mockStateStorage
	events    *mockEventStorage
	runLogs   *mockRunLogStorage
}

func newMockStorageManager() *mockStorageManager {
	return &mockStorageManager{
		companies: &mockCompanyStorage{},
		states:    &mockStateStorage{},
		events:    &mockEventStorage{},
		runLogs:   &mockRunLogStorage{},
	}
}

func (m *mockStorageManager) CompanyStorage() interfaces.CompanyStorage { return m.companies }
func (m *mockStorageManager) StateStorage() interfaces.StateStorage     { return m.states }
func (m *mockStorageManager) EventStorage() interfaces.EventStorage     { return m.events }
func (m *mockStorageManager) RunLogStorage() interfaces.RunLogStorage   { return m.runLogs }
func (m *mockStorageManager) DB() interface{}                           { return nil }
func (m *mockStorageManager) Close() error                              { return nil }

type mockWatchlistService struct {
	loadFunc   func() ([]*models.Company, error)
	syncFunc   func(ctx context.Context) (int, error)
	addFunc    func(ctx context.Context, company *models.Company) error
	removeFunc func(ctx context.Context, ticker string) error
}

func (m *mockWatchlistService) Load() ([]*models.Company, error) {
	if m.loadFunc != nil {
		return m.loadFunc()
	}
	return nil, nil
}

func (m *mockWatchlistService) Sync(ctx context.Context) (int, error) {
	if m.syncFunc != nil {
		return m.syncFunc(ctx)
	}
	return 0, nil
}

func (m *mockWatchlistService) Add(ctx context.Context, company *models.Company) error {
	if m.addFunc != nil {
		return m.addFunc(ctx, company)
	}
	return nil
}

func (m *mockWatchlistService) Remove(ctx context.Context, ticker string) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, ticker)
	}
	return nil
}

type mockEdgarService struct {
	companyFactsFunc  func(ctx context.Context, cik string) (*models.CompanyFacts, error)
	recentFilingsFunc func(ctx context.Context, cik, form string, since time.Time, limit int) ([]models.Filing, error)
	filingBodyFunc    func(ctx context.Context, cik string, filing models.Filing) (string, error)
	tickerMapFunc     func(ctx context.Context) (map[string]string, error)
}

func (m *mockEdgarService) CompanyFacts(ctx context.Context, cik string) (*models.CompanyFacts, error) {
	if m.companyFactsFunc != nil {
		return m.companyFactsFunc(ctx, cik)
	}
	return nil, nil
}

func (m *mockEdgarService) RecentFilings(ctx context.Context, cik, form string, since time.Time, limit int) ([]models.Filing, error) {
	if m.recentFilingsFunc != nil {
		return m.recentFilingsFunc(ctx, cik, form, since, limit)
	}
	return nil, nil
}

func (m *mockEdgarService) FilingBody(ctx context.Context, cik string, filing models.Filing) (string, error) {
	if m.filingBodyFunc != nil {
		return m.filingBodyFunc(ctx, cik, filing)
	}
	return "", nil
}

func (m *mockEdgarService) TickerMap(ctx context.Context) (map[string]string, error) {
	if m.tickerMapFunc != nil {
		return m.tickerMapFunc(ctx)
	}
	return nil, nil
}

type mockEvaluatorService struct {
	evaluateAllFunc     func(ctx context.Context) (*models.BatchReport, error)
	startFunc           func() (string, error)
	evaluateCompanyFunc func(ctx context.Context, companyID string) (*models.EntityResult, error)
	isRunningFunc       func() bool
}

func (m *mockEvaluatorService) EvaluateAll(ctx context.Context) (*models.BatchReport, error) {
	if m.evaluateAllFunc != nil {
		return m.evaluateAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockEvaluatorService) Start() (string, error) {
	if m.startFunc != nil {
		return m.startFunc()
	}
	return "", nil
}

func (m *mockEvaluatorService) EvaluateCompany(ctx context.Context, companyID string) (*models.EntityResult, error) {
	if m.evaluateCompanyFunc != nil {
		return m.evaluateCompanyFunc(ctx, companyID)
	}
	return nil, nil
}

func (m *mockEvaluatorService) IsRunning() bool {
	if m.isRunningFunc != nil {
		return m.isRunningFunc()
	}
	return false
}

type mockDashboardService struct {
	snapshotFunc func(ctx context.Context) (*pkgmodels.Dashboard, error)
	exportFunc   func(ctx context.Context) (string, error)
}

func (m *mockDashboardService) Snapshot(ctx context.Context) (*pkgmodels.Dashboard, error) {
	if m.snapshotFunc != nil {
		return m.snapshotFunc(ctx)
	}
	return nil, nil
}

func (m *mockDashboardService) Export(ctx context.Context) (string, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx)
	}
	return "", nil
}
