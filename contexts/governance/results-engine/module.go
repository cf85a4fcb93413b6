package resultsengine

import (
	"log/slog"

	httpadapter "agora/contexts/governance/results-engine/adapters/http"
	"agora/contexts/governance/results-engine/adapters/memory"
	"agora/contexts/governance/results-engine/application/commands"
	"agora/contexts/governance/results-engine/application/queries"
	"agora/contexts/governance/results-engine/domain/entities"
	"agora/contexts/governance/results-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections     ports.ElectionRepository
	Registrations ports.RegistrationRepository
	Ballots       ports.BallotRepository
	Reports       ports.ReportRepository
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	electionUseCase := commands.ElectionUseCase{
		Elections:     deps.Elections,
		Registrations: deps.Registrations,
		Ballots:       deps.Ballots,
		Reports:       deps.Reports,
		Outbox:        deps.Outbox,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Logger:        deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Elections:     deps.Elections,
		Registrations: deps.Registrations,
		Ballots:       deps.Ballots,
		Reports:       deps.Reports,
		Clock:         deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Results:   resultsUseCase,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Election, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Elections:     store,
		Registrations: store,
		Ballots:       store,
		Reports:       store,
		Outbox:        store,
		Clock:         store,
		IDGen:         store,
		Logger:        logger,
	})
	module.Store = store
	return module
}
