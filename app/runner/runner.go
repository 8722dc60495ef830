package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/platevue/venue-comb/app/config"
	"github.com/platevue/venue-comb/app/database"
	"github.com/platevue/venue-comb/app/extract"
	"github.com/platevue/venue-comb/app/matching"
	"github.com/platevue/venue-comb/app/provider"
)

// attachProbeID marks the incoming candidate when it is run through the
// duplicate detector against the stored catalog. Stored records carry
// UUID keys, so the probe key can never collide.
const attachProbeID = "__incoming__"

// Runner executes one reconciliation run: for each configured venue name
// it searches the place provider, resolves the best match, extracts menu
// and photo items, and persists the result. Inputs are processed
// sequentially in batches so provider pacing stays predictable.
type Runner struct {
	places            provider.PlaceSearchProvider
	menus             provider.MenuSourceProvider
	establishmentRepo database.EstablishmentRepository
	itemRepo          database.ItemRepository
	outcomeRepo       database.OutcomeRepository
	dedupThresholds   matching.DedupThresholds
}

func NewRunner(places provider.PlaceSearchProvider, menus provider.MenuSourceProvider,
	establishmentRepo database.EstablishmentRepository, itemRepo database.ItemRepository,
	outcomeRepo database.OutcomeRepository, dedupThresholds matching.DedupThresholds) *Runner {
	return &Runner{
		places:            places,
		menus:             menus,
		establishmentRepo: establishmentRepo,
		itemRepo:          itemRepo,
		outcomeRepo:       outcomeRepo,
		dedupThresholds:   dedupThresholds,
	}
}

// Run processes every venue of a run config. With resume enabled, inputs
// that already reached a terminal-success outcome in an earlier attempt
// are skipped; failures stay eligible. A quota error from the provider
// aborts the whole run, marking all unprocessed inputs failed so a later
// resume picks them up.
func (r *Runner) Run(ctx context.Context, runConfig *config.RunConfig, resume bool) (Summary, error) {
	summary := Summary{Run: runConfig.Name, Total: len(runConfig.Venues)}

	inputs := runConfig.Venues
	if resume {
		completed, err := r.outcomeRepo.GetCompletedInputs(runConfig.Name)
		if err != nil {
			return summary, fmt.Errorf("failed to load completed inputs: %w", err)
		}

		remaining := make([]string, 0, len(inputs))
		for _, input := range inputs {
			if completed[input] {
				summary.Skipped++
			} else {
				remaining = append(remaining, input)
			}
		}
		inputs = remaining
	}

	stopWords := append(append([]string{}, matching.DefaultStopWords...), runConfig.Settings.ExtraStopWords...)
	normalizer := matching.NewNormalizer(stopWords)
	resolver := matching.NewResolver(runConfig.Settings.SimilarityThreshold)
	detector := matching.NewDetector(normalizer, r.dedupThresholds)
	adapter := extract.NewAdapter(r.menus, runConfig.Settings.MaxPhotos)

	batchSize := runConfig.Settings.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	slog.Info("Run started", "run", runConfig.Name, "inputs", len(inputs), "skipped", summary.Skipped, "batch_size", batchSize)

	for start := 0; start < len(inputs); start += batchSize {
		end := start + batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		slog.Debug("Processing batch", "run", runConfig.Name, "from", start, "to", end)

		for i := start; i < end; i++ {
			input := inputs[i]

			if err := ctx.Err(); err != nil {
				r.failRemaining(runConfig.Name, inputs[i:], "cancelled", &summary)
				slog.Warn("Run cancelled", "run", runConfig.Name, "processed", i, "remaining", len(inputs)-i)
				return summary, err
			}

			outcome, err := r.processInput(ctx, resolver, detector, adapter, input)
			if err != nil && provider.IsQuotaExceeded(err) {
				r.failRemaining(runConfig.Name, inputs[i:], "quota exceeded, run aborted", &summary)
				slog.Error("Run aborted on provider quota", "run", runConfig.Name, "input", input, "error", err)
				return summary, err
			}
			if err != nil {
				outcome = database.OutcomeRecord{Input: input, Status: database.StatusFailed, Error: err.Error()}
				slog.Warn("Input failed", "run", runConfig.Name, "input", input, "error", err)
			}

			if recordErr := r.outcomeRepo.Record(runConfig.Name, outcome); recordErr != nil {
				slog.Error("Failed to record outcome", "run", runConfig.Name, "input", input, "error", recordErr)
			}

			r.tally(outcome, &summary)
		}
	}

	slog.Info("Run completed", "run", runConfig.Name, "matched", summary.Matched,
		"not_found", summary.NotFound, "failed", summary.Failed,
		"skipped", summary.Skipped, "items_written", summary.ItemsWritten)

	return summary, nil
}

// processInput runs the pipeline for one venue name. Errors other than
// quota are isolated per input by the caller.
func (r *Runner) processInput(ctx context.Context, resolver *matching.Resolver,
	detector *matching.Detector, adapter *extract.Adapter, input string) (database.OutcomeRecord, error) {

	catalog, err := r.places.Search(ctx, input)
	if err != nil {
		if provider.IsNotFound(err) {
			return database.OutcomeRecord{Input: input, Status: database.StatusNotFound}, nil
		}
		return database.OutcomeRecord{}, fmt.Errorf("search failed: %w", err)
	}

	result := resolver.Resolve(input, catalog)
	if result.Type == matching.MatchNotFound {
		slog.Debug("No match for input", "input", input, "candidates", len(catalog))
		return database.OutcomeRecord{Input: input, Status: database.StatusNotFound}, nil
	}

	candidate := *result.Matched
	if candidate.ExternalID != "" {
		detailed, err := r.places.Details(ctx, candidate.ExternalID)
		if err != nil && !provider.IsNotFound(err) {
			return database.OutcomeRecord{}, fmt.Errorf("details fetch failed: %w", err)
		}
		if detailed != nil {
			candidate = *detailed
		}
	}

	items, err := adapter.Extract(ctx, candidate)
	if err != nil {
		return database.OutcomeRecord{}, fmt.Errorf("extraction failed: %w", err)
	}

	establishmentID, err := r.persistEstablishment(detector, candidate)
	if err != nil {
		return database.OutcomeRecord{Input: input, Status: database.StatusPersistError, Error: err.Error()}, nil
	}

	if len(items) == 0 {
		slog.Debug("Extraction produced no items", "input", input, "external_id", candidate.ExternalID)
		return database.OutcomeRecord{Input: input, Status: database.StatusExtractionEmpty}, nil
	}

	if err := r.itemRepo.ReplaceItems(establishmentID, toItemRecords(items)); err != nil {
		return database.OutcomeRecord{Input: input, Status: database.StatusPersistError, Error: err.Error()}, nil
	}

	slog.Info("Input matched", "input", input, "match_type", string(result.Type),
		"score", result.Score, "items", len(items))

	return database.OutcomeRecord{Input: input, Status: database.StatusMatched, ItemsWritten: len(items)}, nil
}

// persistEstablishment writes the candidate, attaching to a stored
// duplicate when the detector finds one. Attachment reuses the existing
// record so repeated runs against slightly different provider spellings
// never fork the catalog; merging whole groups stays an explicit API
// operation.
func (r *Runner) persistEstablishment(detector *matching.Detector, candidate provider.Candidate) (string, error) {
	attachID, err := r.findAttachTarget(detector, candidate)
	if err != nil {
		return "", err
	}
	if attachID != "" {
		slog.Debug("Attaching to existing establishment", "establishment_id", attachID, "external_id", candidate.ExternalID)
		return attachID, nil
	}

	record := database.EstablishmentRecord{
		ExternalID:  candidate.ExternalID,
		Name:        candidate.DisplayName,
		Address:     candidate.Address,
		Phone:       candidate.Phone,
		Rating:      candidate.Rating,
		ReviewCount: candidate.ReviewCount,
	}
	if candidate.Geo != nil {
		record.Lat = &candidate.Geo.Lat
		record.Lng = &candidate.Geo.Lng
	}

	id, err := r.establishmentRepo.Upsert(record)
	if err != nil {
		return "", fmt.Errorf("failed to upsert establishment: %w", err)
	}
	return id, nil
}

// findAttachTarget probes the stored catalog for a record the candidate
// duplicates under a different external id. Same-external-id writes are
// already keyed by the repository upsert, so only the fuzzy criteria
// matter here.
func (r *Runner) findAttachTarget(detector *matching.Detector, candidate provider.Candidate) (string, error) {
	existing, err := r.establishmentRepo.GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to load establishments: %w", err)
	}
	if len(existing) == 0 {
		return "", nil
	}

	records := make([]matching.Record, 0, len(existing)+1)
	for _, e := range existing {
		if candidate.ExternalID != "" && e.ExternalID == candidate.ExternalID {
			// The upsert path owns this case
			return "", nil
		}
		records = append(records, matching.Record{
			ID:         e.ID,
			ExternalID: e.ExternalID,
			Name:       e.Name,
			Address:    e.Address,
		})
	}
	records = append(records, matching.Record{
		ID:      attachProbeID,
		Name:    candidate.DisplayName,
		Address: candidate.Address,
	})

	// The probe is appended last, so in the detector's single-pass union
	// it can only ever join a stored record's group as a member, never
	// originate one.
	for _, group := range detector.FindDuplicates(records) {
		for _, memberID := range group.MemberIDs {
			if memberID == attachProbeID {
				return group.CanonicalID, nil
			}
		}
	}

	return "", nil
}

func (r *Runner) failRemaining(runName string, inputs []string, reason string, summary *Summary) {
	for _, input := range inputs {
		outcome := database.OutcomeRecord{Input: input, Status: database.StatusFailed, Error: reason}
		if err := r.outcomeRepo.Record(runName, outcome); err != nil {
			slog.Error("Failed to record aborted outcome", "run", runName, "input", input, "error", err)
		}
		summary.Failed++
	}
}

func (r *Runner) tally(outcome database.OutcomeRecord, summary *Summary) {
	switch outcome.Status {
	case database.StatusMatched, database.StatusExtractionEmpty:
		summary.Matched++
		summary.ItemsWritten += outcome.ItemsWritten
	case database.StatusNotFound:
		summary.NotFound++
	default:
		summary.Failed++
	}
}

func toItemRecords(items []extract.Item) []database.ItemRecord {
	records := make([]database.ItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, database.ItemRecord{
			Kind:        string(item.Kind),
			Position:    item.Position,
			Name:        item.Name,
			Description: item.Description,
			PriceMinor:  item.PriceMinor,
			Currency:    item.Currency,
			Category:    item.Category,
			ImageURL:    item.ImageURL,
			SourceURL:   item.SourceURL,
			Width:       item.Width,
			Height:      item.Height,
			IsEnhanced:  item.IsEnhanced,
		})
	}
	return records
}
