package api

import (
	"github.com/platevue/venue-comb/app/config"
	"github.com/platevue/venue-comb/app/database"
	"github.com/platevue/venue-comb/app/matching"
	"github.com/platevue/venue-comb/app/runner"
)

type Handler struct {
	establishmentRepo database.EstablishmentRepository
	itemRepo          database.ItemRepository
	outcomeRepo       database.OutcomeRepository
	configCache       *config.Cache
	detector          *matching.Detector
	manager           runner.ManagerInterface
	version           string
}
