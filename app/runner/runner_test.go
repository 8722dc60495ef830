package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/platevue/venue-comb/app/config"
	"github.com/platevue/venue-comb/app/database"
	"github.com/platevue/venue-comb/app/matching"
	"github.com/platevue/venue-comb/app/provider"
)

type fakePlaces struct {
	catalog     map[string][]provider.Candidate
	searchErr   map[string]error
	details     map[string]*provider.Candidate
	searchCalls []string
}

func (f *fakePlaces) Search(ctx context.Context, query string) ([]provider.Candidate, error) {
	f.searchCalls = append(f.searchCalls, query)
	if err, ok := f.searchErr[query]; ok {
		return nil, err
	}
	return f.catalog[query], nil
}

func (f *fakePlaces) Details(ctx context.Context, externalID string) (*provider.Candidate, error) {
	if c, ok := f.details[externalID]; ok {
		return c, nil
	}
	return nil, provider.NewError(provider.KindNotFound, "places.details", fmt.Errorf("no such place"))
}

type fakeMenus struct {
	blobs map[string][]byte
	errs  map[string]error
}

func (f *fakeMenus) FetchDetail(ctx context.Context, externalID string) ([]byte, error) {
	if err, ok := f.errs[externalID]; ok {
		return nil, err
	}
	if blob, ok := f.blobs[externalID]; ok {
		return blob, nil
	}
	return nil, provider.NewError(provider.KindNotFound, "menus.detail", fmt.Errorf("no detail"))
}

type fakeEstablishmentRepo struct {
	records []database.Establishment
	nextID  int
}

func (f *fakeEstablishmentRepo) Upsert(record database.EstablishmentRecord) (string, error) {
	if record.ExternalID != "" {
		for i, e := range f.records {
			if e.ExternalID == record.ExternalID {
				if record.Name != "" {
					f.records[i].Name = record.Name
				}
				if record.Address != "" {
					f.records[i].Address = record.Address
				}
				return e.ID, nil
			}
		}
	}
	f.nextID++
	id := fmt.Sprintf("est-%d", f.nextID)
	f.records = append(f.records, database.Establishment{
		ID:         id,
		ExternalID: record.ExternalID,
		Name:       record.Name,
		Address:    record.Address,
		Phone:      record.Phone,
	})
	return id, nil
}

func (f *fakeEstablishmentRepo) GetAll() ([]database.Establishment, error) {
	return append([]database.Establishment{}, f.records...), nil
}

func (f *fakeEstablishmentRepo) GetByID(id string) (*database.Establishment, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeEstablishmentRepo) GetByExternalID(externalID string) (*database.Establishment, error) {
	for i := range f.records {
		if f.records[i].ExternalID == externalID {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeEstablishmentRepo) GetCount() (int, error) { return len(f.records), nil }

func (f *fakeEstablishmentRepo) Merge(canonicalID string, memberIDs []string) error { return nil }

type fakeItemRepo struct {
	items map[string][]database.ItemRecord
}

func (f *fakeItemRepo) ReplaceItems(establishmentID string, items []database.ItemRecord) error {
	if f.items == nil {
		f.items = make(map[string][]database.ItemRecord)
	}
	f.items[establishmentID] = items
	return nil
}

func (f *fakeItemRepo) GetItems(establishmentID string) ([]database.Item, error) {
	var out []database.Item
	for _, r := range f.items[establishmentID] {
		out = append(out, database.Item{Kind: r.Kind, Position: r.Position, Name: r.Name})
	}
	return out, nil
}

func (f *fakeItemRepo) GetItemCount() (int, error) {
	count := 0
	for _, items := range f.items {
		count += len(items)
	}
	return count, nil
}

type fakeOutcomeRepo struct {
	outcomes map[string]map[string]database.OutcomeRecord
}

func (f *fakeOutcomeRepo) Record(runName string, outcome database.OutcomeRecord) error {
	if f.outcomes == nil {
		f.outcomes = make(map[string]map[string]database.OutcomeRecord)
	}
	if f.outcomes[runName] == nil {
		f.outcomes[runName] = make(map[string]database.OutcomeRecord)
	}
	f.outcomes[runName][outcome.Input] = outcome
	return nil
}

func (f *fakeOutcomeRepo) GetOutcomes(runName string) ([]database.RunOutcome, error) {
	var out []database.RunOutcome
	for _, o := range f.outcomes[runName] {
		out = append(out, database.RunOutcome{Input: o.Input, Status: o.Status, ItemsWritten: o.ItemsWritten, Error: o.Error})
	}
	return out, nil
}

func (f *fakeOutcomeRepo) GetCompletedInputs(runName string) (map[string]bool, error) {
	completed := make(map[string]bool)
	for input, o := range f.outcomes[runName] {
		if database.IsTerminalSuccess(o.Status) {
			completed[input] = true
		}
	}
	return completed, nil
}

func (f *fakeOutcomeRepo) GetStats() (database.OutcomeStats, error) {
	return database.OutcomeStats{}, nil
}

func (f *fakeOutcomeRepo) get(runName, input string) (database.OutcomeRecord, bool) {
	o, ok := f.outcomes[runName][input]
	return o, ok
}

func trabuxuCandidate() provider.Candidate {
	return provider.Candidate{
		ExternalID:  "p1",
		DisplayName: "Trabuxu Bistro",
		Address:     "Strait Street, Valletta",
		PhotoRefs:   []string{"https://img.example.com/1.jpg"},
	}
}

func trabuxuMenuBlob() []byte {
	return []byte(`{
		"currency": "EUR",
		"items": [
			{"name": "Bragioli", "price_minor": 1450},
			{"name": "Aljotta", "price_minor": 750}
		]
	}`)
}

func newTestRunner(places *fakePlaces, menus *fakeMenus) (*Runner, *fakeEstablishmentRepo, *fakeItemRepo, *fakeOutcomeRepo) {
	estRepo := &fakeEstablishmentRepo{}
	itemRepo := &fakeItemRepo{}
	outcomeRepo := &fakeOutcomeRepo{}
	r := NewRunner(places, menus, estRepo, itemRepo, outcomeRepo, matching.DefaultDedupThresholds())
	return r, estRepo, itemRepo, outcomeRepo
}

func testRunConfig(venues ...string) *config.RunConfig {
	return &config.RunConfig{
		Name:   "valletta",
		Venues: venues,
		Settings: config.RunSettings{
			Enabled:             true,
			BatchSize:           10,
			SimilarityThreshold: 0.85,
			MaxPhotos:           5,
		},
	}
}

func TestRunMatchesAndPersists(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{"Trabuxu Bistro": {trabuxuCandidate()}},
	}
	menus := &fakeMenus{blobs: map[string][]byte{"p1": trabuxuMenuBlob()}}
	r, estRepo, itemRepo, outcomeRepo := newTestRunner(places, menus)

	summary, err := r.Run(context.Background(), testRunConfig("Trabuxu Bistro"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Matched != 1 || summary.ItemsWritten != 3 {
		t.Errorf("Expected 1 match with 3 items, got %+v", summary)
	}

	stored, _ := estRepo.GetByExternalID("p1")
	if stored == nil {
		t.Fatal("Expected establishment to be persisted")
	}

	items, _ := itemRepo.GetItems(stored.ID)
	if len(items) != 3 {
		t.Errorf("Expected 2 menu items plus 1 photo, got %d", len(items))
	}

	outcome, ok := outcomeRepo.get("valletta", "Trabuxu Bistro")
	if !ok || outcome.Status != database.StatusMatched || outcome.ItemsWritten != 3 {
		t.Errorf("Unexpected outcome: %+v", outcome)
	}
}

func TestRunRecordsNotFound(t *testing.T) {
	places := &fakePlaces{catalog: map[string][]provider.Candidate{}}
	menus := &fakeMenus{}
	r, estRepo, itemRepo, outcomeRepo := newTestRunner(places, menus)

	summary, err := r.Run(context.Background(), testRunConfig("Ghost Kitchen"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.NotFound != 1 || summary.Matched != 0 {
		t.Errorf("Expected 1 not_found, got %+v", summary)
	}

	if count, _ := estRepo.GetCount(); count != 0 {
		t.Error("Unmatched input must not persist an establishment")
	}
	if count, _ := itemRepo.GetItemCount(); count != 0 {
		t.Error("Unmatched input must not persist items")
	}

	outcome, _ := outcomeRepo.get("valletta", "Ghost Kitchen")
	if outcome.Status != database.StatusNotFound {
		t.Errorf("Expected not_found status, got %q", outcome.Status)
	}
}

func TestRunProviderNotFoundIsNotFound(t *testing.T) {
	places := &fakePlaces{
		searchErr: map[string]error{
			"Ghost Kitchen": provider.NewError(provider.KindNotFound, "places.search", fmt.Errorf("no results")),
		},
	}
	r, _, _, outcomeRepo := newTestRunner(places, &fakeMenus{})

	summary, err := r.Run(context.Background(), testRunConfig("Ghost Kitchen"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.NotFound != 1 || summary.Failed != 0 {
		t.Errorf("Expected provider not-found to resolve as not_found, got %+v", summary)
	}
	outcome, _ := outcomeRepo.get("valletta", "Ghost Kitchen")
	if outcome.Status != database.StatusNotFound {
		t.Errorf("Expected not_found status, got %q", outcome.Status)
	}
}

func TestRunBelowThresholdIsNotFound(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{
			"Trabuxu Bistro": {{ExternalID: "p9", DisplayName: "Completely Different Place"}},
		},
	}
	r, _, _, outcomeRepo := newTestRunner(places, &fakeMenus{})

	summary, err := r.Run(context.Background(), testRunConfig("Trabuxu Bistro"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.NotFound != 1 {
		t.Errorf("Expected weak candidate to be rejected, got %+v", summary)
	}
	outcome, _ := outcomeRepo.get("valletta", "Trabuxu Bistro")
	if outcome.Status != database.StatusNotFound {
		t.Errorf("Expected not_found, got %q", outcome.Status)
	}
}

func TestRunQuotaAbortsRemainingInputs(t *testing.T) {
	quotaErr := provider.NewError(provider.KindQuotaExceeded, "places.search", fmt.Errorf("quota exhausted"))
	places := &fakePlaces{
		searchErr: map[string]error{"First Venue": quotaErr},
	}
	r, _, _, outcomeRepo := newTestRunner(places, &fakeMenus{})

	summary, err := r.Run(context.Background(), testRunConfig("First Venue", "Second Venue", "Third Venue"), false)
	if err == nil || !provider.IsQuotaExceeded(err) {
		t.Fatalf("Expected quota error, got %v", err)
	}

	if summary.Failed != 3 {
		t.Errorf("Expected all 3 inputs failed on quota abort, got %+v", summary)
	}
	if len(places.searchCalls) != 1 {
		t.Errorf("Expected no further provider calls after quota, got %d", len(places.searchCalls))
	}

	for _, input := range []string{"First Venue", "Second Venue", "Third Venue"} {
		outcome, ok := outcomeRepo.get("valletta", input)
		if !ok || outcome.Status != database.StatusFailed {
			t.Errorf("Expected %q marked failed, got %+v", input, outcome)
		}
		if outcome.Error != "quota exceeded, run aborted" {
			t.Errorf("Unexpected abort reason for %q: %q", input, outcome.Error)
		}
	}
}

func TestRunTransientFailureIsIsolatedPerInput(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{"Trabuxu Bistro": {trabuxuCandidate()}},
		searchErr: map[string]error{
			"Flaky Venue": provider.NewError(provider.KindTransient, "places.search", fmt.Errorf("connection reset")),
		},
	}
	menus := &fakeMenus{blobs: map[string][]byte{"p1": trabuxuMenuBlob()}}
	r, _, _, outcomeRepo := newTestRunner(places, menus)

	summary, err := r.Run(context.Background(), testRunConfig("Flaky Venue", "Trabuxu Bistro"), false)
	if err != nil {
		t.Fatalf("Expected non-quota failure to be isolated, got %v", err)
	}

	if summary.Failed != 1 || summary.Matched != 1 {
		t.Errorf("Expected 1 failed and 1 matched, got %+v", summary)
	}

	outcome, _ := outcomeRepo.get("valletta", "Flaky Venue")
	if outcome.Status != database.StatusFailed || outcome.Error == "" {
		t.Errorf("Expected failed outcome with error, got %+v", outcome)
	}
}

func TestRunResumeSkipsCompletedInputs(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{"Trabuxu Bistro": {trabuxuCandidate()}},
	}
	menus := &fakeMenus{blobs: map[string][]byte{"p1": trabuxuMenuBlob()}}
	r, _, _, outcomeRepo := newTestRunner(places, menus)

	outcomeRepo.Record("valletta", database.OutcomeRecord{Input: "Trabuxu Bistro", Status: database.StatusMatched, ItemsWritten: 3})
	outcomeRepo.Record("valletta", database.OutcomeRecord{Input: "Ghost Kitchen", Status: database.StatusNotFound})

	summary, err := r.Run(context.Background(), testRunConfig("Trabuxu Bistro", "Ghost Kitchen"), true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Skipped != 2 {
		t.Errorf("Expected both completed inputs skipped, got %+v", summary)
	}
	if len(places.searchCalls) != 0 {
		t.Errorf("Expected zero provider calls on full resume, got %d", len(places.searchCalls))
	}
}

func TestRunResumeRetriesFailures(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{"Trabuxu Bistro": {trabuxuCandidate()}},
	}
	menus := &fakeMenus{blobs: map[string][]byte{"p1": trabuxuMenuBlob()}}
	r, _, _, outcomeRepo := newTestRunner(places, menus)

	outcomeRepo.Record("valletta", database.OutcomeRecord{Input: "Trabuxu Bistro", Status: database.StatusFailed, Error: "timeout"})

	summary, err := r.Run(context.Background(), testRunConfig("Trabuxu Bistro"), true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Skipped != 0 || summary.Matched != 1 {
		t.Errorf("Expected previously failed input re-attempted, got %+v", summary)
	}

	outcome, _ := outcomeRepo.get("valletta", "Trabuxu Bistro")
	if outcome.Status != database.StatusMatched {
		t.Errorf("Expected failure replaced by success, got %+v", outcome)
	}
}

func TestRunCancellationMarksRemainingFailed(t *testing.T) {
	places := &fakePlaces{}
	r, _, _, outcomeRepo := newTestRunner(places, &fakeMenus{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Run(ctx, testRunConfig("First Venue", "Second Venue"), false)
	if err != context.Canceled {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	if summary.Failed != 2 {
		t.Errorf("Expected both inputs failed on cancellation, got %+v", summary)
	}
	outcome, _ := outcomeRepo.get("valletta", "First Venue")
	if outcome.Error != "cancelled" {
		t.Errorf("Expected cancelled reason, got %q", outcome.Error)
	}
	if len(places.searchCalls) != 0 {
		t.Errorf("Expected no provider calls after cancellation, got %d", len(places.searchCalls))
	}
}

func TestRunEmptyExtractionStillRecordsEstablishment(t *testing.T) {
	candidate := trabuxuCandidate()
	candidate.PhotoRefs = nil
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{"Trabuxu Bistro": {candidate}},
	}
	// Menu source has no detail blob for p1
	r, estRepo, itemRepo, outcomeRepo := newTestRunner(places, &fakeMenus{})

	summary, err := r.Run(context.Background(), testRunConfig("Trabuxu Bistro"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Matched != 1 || summary.ItemsWritten != 0 {
		t.Errorf("Expected match with zero items, got %+v", summary)
	}

	if count, _ := estRepo.GetCount(); count != 1 {
		t.Error("Expected establishment persisted even without items")
	}
	if count, _ := itemRepo.GetItemCount(); count != 0 {
		t.Error("Expected no items written")
	}

	outcome, _ := outcomeRepo.get("valletta", "Trabuxu Bistro")
	if outcome.Status != database.StatusExtractionEmpty {
		t.Errorf("Expected extraction_empty status, got %q", outcome.Status)
	}
}

func TestRunAttachesToStoredDuplicate(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{
			"Trabuxu Bistro Valetta": {{
				ExternalID:  "p2",
				DisplayName: "Trabuxu Bistro Valetta",
				Address:     "Strait Street, Valletta",
			}},
		},
	}
	menus := &fakeMenus{blobs: map[string][]byte{"p2": trabuxuMenuBlob()}}
	r, estRepo, itemRepo, _ := newTestRunner(places, menus)

	// A prior run stored the same venue under a different external id
	existingID, _ := estRepo.Upsert(database.EstablishmentRecord{
		ExternalID: "p1",
		Name:       "Trabuxu Bistro Valletta",
		Address:    "Strait Street, Valletta",
	})

	summary, err := r.Run(context.Background(), testRunConfig("Trabuxu Bistro Valetta"), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Matched != 1 {
		t.Fatalf("Expected a match, got %+v", summary)
	}

	if count, _ := estRepo.GetCount(); count != 1 {
		t.Errorf("Expected items attached to existing record, not a new establishment; count %d", count)
	}
	items, _ := itemRepo.GetItems(existingID)
	if len(items) != 2 {
		t.Errorf("Expected 2 items attached to existing record, got %d", len(items))
	}
}

func TestRunExtraStopWordsAffectDedupOnly(t *testing.T) {
	places := &fakePlaces{
		catalog: map[string][]provider.Candidate{
			"Ta Marija": {{ExternalID: "p3", DisplayName: "Ta Marija", Address: "Mosta"}},
		},
	}
	menus := &fakeMenus{blobs: map[string][]byte{"p3": trabuxuMenuBlob()}}
	r, estRepo, _, _ := newTestRunner(places, menus)

	runConfig := testRunConfig("Ta Marija")
	runConfig.Settings.ExtraStopWords = []string{"ta"}

	if _, err := r.Run(context.Background(), runConfig, false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if count, _ := estRepo.GetCount(); count != 1 {
		t.Errorf("Expected establishment persisted, got count %d", count)
	}
}
