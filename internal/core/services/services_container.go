package services

import (
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, events portssvc.EventPublisher, extra ...ServiceOption) *portssvc.ServiceContainer {
	options := []ServiceOption{WithClock(cfg.Now)}
	if events != nil {
		options = append(options, WithEventPublisher(events))
	}
	options = append(options, extra...)

	container := &portssvc.ServiceContainer{}

	// Policy is resolved per operation by every other service
	container.Policy = NewPolicyService(repos.SettingsRepo, options...)

	container.Eligibility = NewEligibilityService(
		repos.BorrowerRepo,
		repos.LoanRepo,
		repos.FineRepo,
		container.Policy,
		options...,
	)

	container.Circulation = NewCirculationService(
		repos.TxManager,
		repos.LoanRepo,
		repos.BorrowerRepo,
		repos.FineRepo,
		container.Policy,
		options...,
	)

	container.Fine = NewFineService(repos.TxManager, repos.FineRepo, repos.BorrowerRepo, options...)
	container.History = NewHistoryService(repos.HistoryRepo, repos.LoanRepo, options...)

	return container
}
