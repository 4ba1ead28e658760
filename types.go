// Package novaplan is the top-level facade for the NovaPlan query planner.
package novaplan

import (
	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/engine"
)

type (
	Engine        = engine.Engine
	EngineOptions = engine.Options
	ParsedQuery   = engine.ParsedQuery
	Report        = engine.Report
	Provider      = catalog.Provider
)

// New builds a planning engine over the given statistics provider.
func New(opts EngineOptions, cat Provider) (*Engine, error) {
	return engine.New(opts, cat)
}
