package domain_test

import (
	"testing"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func TestPolicySnapshot_OverdueFine(t *testing.T) {
	base := domain.PolicySnapshot{
		Borrower: domain.BorrowerPolicy{GracePeriod: 3},
		Fines:    domain.FinePolicy{DailyFineRate: decimal.NewFromInt(1)},
	}

	withGrace := base
	withGrace.Fines.ApplyGracePeriod = true

	capped := base
	capped.Fines.MaxFinePerStudent = decimal.NewFromInt(7)

	tests := []struct {
		name   string
		policy domain.PolicySnapshot
		days   int
		want   decimal.Decimal
	}{
		{"not overdue", base, 0, decimal.Zero},
		{"grace ignored by default", base, 10, decimal.NewFromInt(10)},
		{"grace applied when enabled", withGrace, 10, decimal.NewFromInt(7)},
		{"inside grace window", withGrace, 2, decimal.Zero},
		{"cap applied", capped, 10, decimal.NewFromInt(7)},
		{"under cap", capped, 4, decimal.NewFromInt(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.OverdueFine(tt.days)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestPolicySnapshot_CapIsPerReturn(t *testing.T) {
	p := domain.PolicySnapshot{
		Fines: domain.FinePolicy{
			DailyFineRate:     decimal.NewFromInt(1),
			DamagedFineAmount: decimal.NewFromInt(20),
			MaxFinePerStudent: decimal.NewFromInt(7),
		},
	}

	total := decimal.Zero
	for n := 0; n < 3; n++ {
		total = total.Add(p.OverdueFine(10))
	}
	assert.True(t, decimal.NewFromInt(21).Equal(total), "each return capped on its own, got %s", total)

	damaged := p.ConditionFine(domain.ConditionDamaged, nil)
	assert.True(t, decimal.NewFromInt(20).Equal(damaged), "condition fine is not capped, got %s", damaged)
}

func TestPolicySnapshot_ConditionFine(t *testing.T) {
	p := domain.PolicySnapshot{Fines: domain.DefaultFinePolicy()}

	assert.True(t, p.ConditionFine(domain.ConditionGood, decimalPtr(decimal.NewFromInt(9))).IsZero())
	assert.True(t, p.ConditionFine(domain.ConditionDamaged, nil).Equal(decimal.NewFromInt(100)))
	assert.True(t, p.ConditionFine(domain.ConditionLost, nil).Equal(decimal.NewFromInt(500)))
	assert.True(t, p.ConditionFine(domain.ConditionLost, decimalPtr(decimal.NewFromInt(250))).Equal(decimal.NewFromInt(250)))
	assert.True(t, p.ConditionFine(domain.ConditionDamaged, decimalPtr(decimal.Zero)).IsZero())
}

func TestPolicySnapshot_RenewalExtension(t *testing.T) {
	assert.Equal(t, 7, domain.PolicySnapshot{Borrower: domain.BorrowerPolicy{LoanDays: 14, RenewalDays: 7}}.RenewalExtension())
	assert.Equal(t, 14, domain.PolicySnapshot{Borrower: domain.BorrowerPolicy{LoanDays: 14}}.RenewalExtension())
}

func TestReturnCondition(t *testing.T) {
	assert.True(t, domain.ConditionLost.IsValid())
	assert.False(t, domain.ReturnCondition("Soggy").IsValid())
	assert.Equal(t, domain.CopyAvailable, domain.ConditionGood.ResultingCopyStatus())
	assert.Equal(t, domain.CopyMaintenance, domain.ConditionDamaged.ResultingCopyStatus())
	assert.Equal(t, domain.CopyLost, domain.ConditionLost.ResultingCopyStatus())
}
