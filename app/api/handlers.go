package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platevue/venue-comb/app/config"
	"github.com/platevue/venue-comb/app/database"
	"github.com/platevue/venue-comb/app/matching"
	"github.com/platevue/venue-comb/app/runner"
)

func NewHandler(configCache *config.Cache, establishmentRepo database.EstablishmentRepository,
	itemRepo database.ItemRepository, outcomeRepo database.OutcomeRepository,
	detector *matching.Detector, manager runner.ManagerInterface, version string) *Handler {
	return &Handler{
		establishmentRepo: establishmentRepo,
		itemRepo:          itemRepo,
		outcomeRepo:       outcomeRepo,
		configCache:       configCache,
		detector:          detector,
		manager:           manager,
		version:           version,
	}
}

func (h *Handler) ListEstablishments(c *gin.Context) {
	establishments, err := h.establishmentRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_establishments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]map[string]interface{}, 0, len(establishments))
	for _, e := range establishments {
		out = append(out, map[string]interface{}{
			"id":           e.ID,
			"external_id":  e.ExternalID,
			"name":         e.Name,
			"address":      e.Address,
			"phone":        e.Phone,
			"rating":       e.Rating,
			"review_count": e.ReviewCount,
			"lat":          e.Lat,
			"lng":          e.Lng,
			"updated_at":   e.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"establishments": out,
		"total":          len(out),
	})
}

func (h *Handler) GetEstablishment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing establishment id parameter"})
		return
	}

	establishment, err := h.establishmentRepo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_establishment", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if establishment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Establishment not found"})
		return
	}

	items, err := h.itemRepo.GetItems(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"establishment": establishment,
		"items":         items,
		"item_count":    len(items),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.establishmentRepo.GetCount(); err == nil {
		health["establishments"] = count
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()
	health["active_run"] = h.manager.ActiveRun()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.outcomeRepo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	establishmentCount, _ := h.establishmentRepo.GetCount()
	itemCount, _ := h.itemRepo.GetItemCount()

	c.JSON(http.StatusOK, gin.H{
		"establishments": establishmentCount,
		"items":          itemCount,
		"outcomes": gin.H{
			"total":         stats.Total,
			"matched":       stats.Matched,
			"not_found":     stats.NotFound,
			"failed":        stats.Failed,
			"items_written": stats.ItemsWritten,
		},
	})
}

func (h *Handler) ListRuns(c *gin.Context) {
	configs := h.configCache.GetConfigs()
	activeRun := h.manager.ActiveRun()

	runs := make([]map[string]interface{}, 0, len(configs))
	for _, runConfig := range configs {
		runInfo := map[string]interface{}{
			"name":       runConfig.Name,
			"region":     runConfig.Region,
			"venues":     len(runConfig.Venues),
			"enabled":    runConfig.Settings.Enabled,
			"batch_size": runConfig.Settings.BatchSize,
			"active":     runConfig.Name == activeRun,
		}

		if outcomes, err := h.outcomeRepo.GetOutcomes(runConfig.Name); err == nil {
			counts := map[string]int{}
			for _, o := range outcomes {
				counts[o.Status]++
			}
			runInfo["outcomes"] = counts
			runInfo["processed"] = len(outcomes)
		}

		runs = append(runs, runInfo)
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) GetRunOutcomes(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing run name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run configuration not found"})
		return
	}

	outcomes, err := h.outcomeRepo.GetOutcomes(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_outcomes", "run", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run":      name,
		"outcomes": outcomes,
		"total":    len(outcomes),
	})
}

func (h *Handler) StartRun(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing run name parameter"})
		return
	}

	runConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run configuration not found"})
		return
	}

	if !runConfig.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Run is disabled"})
		return
	}

	resume := runConfig.Settings.Resume
	if raw, ok := c.GetQuery("resume"); ok {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resume parameter"})
			return
		}
		resume = parsed
	}

	if err := h.manager.Enqueue(runner.Request{RunName: name, Resume: resume}); err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Run already in progress"})
			return
		}
		slog.Error("Failed to enqueue run", "run", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue run"})
		return
	}

	slog.Info("Run enqueued", "run", name, "resume", resume)
	c.JSON(http.StatusAccepted, gin.H{
		"run":    name,
		"resume": resume,
		"status": "queued",
	})
}

func (h *Handler) ListDuplicates(c *gin.Context) {
	establishments, err := h.establishmentRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_establishments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	records := make([]matching.Record, 0, len(establishments))
	for _, e := range establishments {
		records = append(records, matching.Record{
			ID:         e.ID,
			ExternalID: e.ExternalID,
			Name:       e.Name,
			Address:    e.Address,
		})
	}

	groups := h.detector.FindDuplicates(records)

	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"total":  len(groups),
	})
}

type mergeRequest struct {
	CanonicalID string   `json:"canonical_id" binding:"required"`
	MemberIDs   []string `json:"member_ids" binding:"required"`
}

func (h *Handler) MergeDuplicates(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "canonical_id and member_ids are required"})
		return
	}

	canonical, err := h.establishmentRepo.GetByID(req.CanonicalID)
	if err != nil {
		slog.Error("Database error", "operation", "get_establishment", "id", req.CanonicalID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if canonical == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Canonical establishment not found"})
		return
	}

	for _, memberID := range req.MemberIDs {
		if memberID == req.CanonicalID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Canonical id must not appear in member_ids"})
			return
		}
	}

	if err := h.establishmentRepo.Merge(req.CanonicalID, req.MemberIDs); err != nil {
		slog.Error("Merge failed", "canonical_id", req.CanonicalID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Merge failed"})
		return
	}

	slog.Info("Establishments merged", "canonical_id", req.CanonicalID, "members", len(req.MemberIDs))
	c.JSON(http.StatusOK, gin.H{
		"canonical_id": req.CanonicalID,
		"merged":       len(req.MemberIDs),
	})
}
