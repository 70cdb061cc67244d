package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	jsoniter "github.com/json-iterator/go"
)

// Settings keys. Values are JSON documents overlaying the defaults, e.g.
// policy:student = {"maxBooks":2,"loanDays":15}.
const (
	PolicyKeyPrefix = "policy:"
	FinePolicyKey   = "policy:fines"
)

var settingsJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type policyService struct {
	BaseService
	settings portsrepo.SettingsReader
}

// NewPolicyService creates a PolicySvc reading from the settings store on every call.
func NewPolicyService(settings portsrepo.SettingsReader, options ...ServiceOption) portssvc.PolicySvc {
	svc := &policyService{settings: settings}
	svc.apply(options)
	return svc
}

var _ portssvc.PolicySvc = (*policyService)(nil)

func (s *policyService) Resolve(ctx context.Context, policyClass string) (domain.PolicySnapshot, error) {
	if policyClass == "" {
		policyClass = domain.DefaultPolicyClass
	}

	snapshot := domain.PolicySnapshot{
		Class:    policyClass,
		Borrower: domain.DefaultBorrowerPolicy(),
		Fines:    domain.DefaultFinePolicy(),
	}
	if err := s.load(ctx, PolicyKeyPrefix+policyClass, &snapshot.Borrower); err != nil {
		return domain.PolicySnapshot{}, err
	}
	if err := s.load(ctx, FinePolicyKey, &snapshot.Fines); err != nil {
		return domain.PolicySnapshot{}, err
	}
	if err := validatePolicy(snapshot); err != nil {
		s.LogError(ctx, err, "Configured policy is invalid", slog.String("policy_class", policyClass))
		return domain.PolicySnapshot{}, err
	}
	return snapshot, nil
}

func (s *policyService) load(ctx context.Context, key string, into any) error {
	raw, ok, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		return err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := settingsJSON.UnmarshalFromString(raw, into); err != nil {
		return fmt.Errorf("%w: malformed setting %q: %v", apperrors.ErrInternal, key, err)
	}
	return nil
}

func validatePolicy(p domain.PolicySnapshot) error {
	b, f := p.Borrower, p.Fines
	switch {
	case b.MaxBooks < 0, b.LoanDays <= 0, b.RenewalDays < 0, b.MaxRenewals < 0, b.GracePeriod < 0:
		return fmt.Errorf("%w: policy %q has negative or zero limits", apperrors.ErrInternal, p.Class)
	case b.BlockFineThreshold.IsNegative(), f.DailyFineRate.IsNegative(), f.DamagedFineAmount.IsNegative(),
		f.LostFineAmount.IsNegative(), f.MaxFinePerStudent.IsNegative():
		return fmt.Errorf("%w: policy %q has negative amounts", apperrors.ErrInternal, p.Class)
	}
	return nil
}
