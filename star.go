package star

import "github.com/goliatone/go-star/service"

// Re-export the service package entry point so consumers can do `star.New(...)`
// without importing the wiring packages.
type (
	Service    = service.Service
	Config     = service.Config
	Commands   = service.Commands
	Queries    = service.Queries
	BunOptions = service.BunOptions
)

// New constructs the go-star runtime using the provided configuration.
func New(cfg Config) *Service {
	return service.New(cfg)
}

// NewBunConfig builds a Config backed by the Bun repositories.
var NewBunConfig = service.NewBunConfig
