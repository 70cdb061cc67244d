package mapping

import (
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/models"
)

// ToModelCopy converts a domain Copy to a model Copy
func ToModelCopy(d domain.Copy) models.Copy {
	return models.Copy{
		CopyID:          d.CopyID,
		CatalogRef:      d.CatalogRef,
		AccessionNumber: d.AccessionNumber,
		Status:          string(d.Status),
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainCopy converts a model Copy to a domain Copy
func ToDomainCopy(m models.Copy) domain.Copy {
	return domain.Copy{
		CopyID:          m.CopyID,
		CatalogRef:      m.CatalogRef,
		AccessionNumber: m.AccessionNumber,
		Status:          domain.CopyStatus(m.Status),
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelLoan converts a domain Loan to a model Loan
func ToModelLoan(d domain.Loan) models.Loan {
	return models.Loan{
		LoanID:          d.LoanID,
		StudentID:       d.StudentID,
		CopyID:          d.CopyID,
		IssuedBy:        d.IssuedBy,
		IssueDate:       d.IssueDate,
		DueDate:         d.DueDate,
		LastRenewedDate: d.LastRenewedDate,
		RenewalCount:    d.RenewalCount,
	}
}

// ToDomainLoan converts a model Loan to a domain Loan
func ToDomainLoan(m models.Loan) domain.Loan {
	return domain.Loan{
		LoanID:          m.LoanID,
		StudentID:       m.StudentID,
		CopyID:          m.CopyID,
		IssuedBy:        m.IssuedBy,
		IssueDate:       m.IssueDate,
		DueDate:         m.DueDate,
		LastRenewedDate: m.LastRenewedDate,
		RenewalCount:    m.RenewalCount,
	}
}

// ToModelFine converts a domain Fine to a model Fine. The amount is stored with two
// decimal places.
func ToModelFine(d domain.Fine) models.Fine {
	return models.Fine{
		FineID:               d.FineID,
		ReceiptNumber:        d.ReceiptNumber,
		TransactionID:        d.TransactionID,
		StudentID:            d.StudentID,
		StudentNameSnapshot:  d.StudentNameSnapshot,
		StudentRegNoSnapshot: d.StudentRegNoSnapshot,
		Amount:               d.Amount.Round(2),
		Status:               string(d.Status),
		IsPaid:               d.IsPaid,
		PaymentDate:          d.PaymentDate,
		CollectedBy:          d.CollectedBy,
		PaymentMethod:        d.PaymentMethod,
		Remark:               d.Remark,
		CreatedAt:            d.CreatedAt,
	}
}

// ToDomainFine converts a model Fine to a domain Fine
func ToDomainFine(m models.Fine) domain.Fine {
	return domain.Fine{
		FineID:               m.FineID,
		ReceiptNumber:        m.ReceiptNumber,
		TransactionID:        m.TransactionID,
		StudentID:            m.StudentID,
		StudentNameSnapshot:  m.StudentNameSnapshot,
		StudentRegNoSnapshot: m.StudentRegNoSnapshot,
		Amount:               m.Amount,
		Status:               domain.FineStatus(m.Status),
		IsPaid:               m.IsPaid,
		PaymentDate:          m.PaymentDate,
		CollectedBy:          m.CollectedBy,
		PaymentMethod:        m.PaymentMethod,
		Remark:               m.Remark,
		CreatedAt:            m.CreatedAt,
	}
}

// ToDomainFineSlice converts a slice of model Fines to a slice of domain Fines
func ToDomainFineSlice(ms []models.Fine) []domain.Fine {
	ds := make([]domain.Fine, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainFine(m)
	}
	return ds
}
