package service

import (
	"nominatim-indexer/internal/data"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewIndexerService,
	wire.Bind(new(DocumentCounter), new(*data.BleveSink)),
	wire.Bind(new(HealthChecker), new(*data.Data)),
)
