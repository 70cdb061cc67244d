package memory

import (
	"fmt"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

// PutBorrower adds or replaces a borrower directory record.
func (s *Store) PutBorrower(b domain.Borrower) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.borrowers[b.BorrowerID] = b
}

// DeleteBorrower removes a borrower directory record.
func (s *Store) DeleteBorrower(borrowerID string) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.borrowers, borrowerID)
}

// PutCatalogEntry adds or replaces title metadata.
func (s *Store) PutCatalogEntry(meta domain.CatalogMeta) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.catalog[meta.CatalogRef] = meta
}

// PutCopy adds a copy. The catalog entry must exist and the accession must be unique.
func (s *Store) PutCopy(c domain.Copy) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCopy(s.st, c)
}

// PutSetting sets a raw settings value.
func (s *Store) PutSetting(key, value string) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.settings[key] = value
}

// AuditEntries returns a copy of the stored audit records.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditEntry, len(s.st.audit))
	copy(out, s.st.audit)
	return out
}

func insertCopy(st *state, c domain.Copy) error {
	if _, ok := st.catalog[c.CatalogRef]; !ok {
		return fmt.Errorf("%w: unknown catalog reference %s", apperrors.ErrValidation, c.CatalogRef)
	}
	if _, ok := st.copies[c.CopyID]; ok {
		return fmt.Errorf("%w: copy %s", apperrors.ErrDuplicate, c.CopyID)
	}
	for _, existing := range st.copies {
		if existing.AccessionNumber == c.AccessionNumber {
			return fmt.Errorf("%w: accession number %s", apperrors.ErrDuplicate, c.AccessionNumber)
		}
	}
	st.copies[c.CopyID] = c
	return nil
}

// SeedDemo loads a small directory, catalog and shelf for local runs.
func (s *Store) SeedDemo() error {
	borrowers := []domain.Borrower{
		{BorrowerID: "stu-1001", Name: "Asha Rao", RegNo: "CS-2023-014", DeptName: "Computer Science", Email: "asha.rao@example.edu", Status: domain.BorrowerActive, PolicyClass: "student"},
		{BorrowerID: "stu-1002", Name: "Daniel Okafor", RegNo: "ME-2022-101", DeptName: "Mechanical", Status: domain.BorrowerActive, PolicyClass: "student"},
		{BorrowerID: "fac-2001", Name: "Meera Iyer", RegNo: "FAC-077", DeptName: "Physics", Email: "m.iyer@example.edu", Status: domain.BorrowerActive, PolicyClass: "faculty"},
		{BorrowerID: "stu-1003", Name: "Tom Becker", RegNo: "EE-2019-033", DeptName: "Electrical", Status: domain.BorrowerInactive, PolicyClass: "student"},
	}
	for _, b := range borrowers {
		s.PutBorrower(b)
	}

	titles := []domain.CatalogMeta{
		{CatalogRef: "cat-0001", Title: "The Go Programming Language", ISBN: "9780134190440", Author: "Donovan, Kernighan", Publisher: "Addison-Wesley"},
		{CatalogRef: "cat-0002", Title: "Designing Data-Intensive Applications", ISBN: "9781449373320", Author: "Kleppmann", Publisher: "O'Reilly"},
		{CatalogRef: "cat-0003", Title: "Engineering Mechanics: Statics", ISBN: "9780133918922", Author: "Hibbeler", Publisher: "Pearson"},
	}
	accession := 1
	for _, t := range titles {
		s.PutCatalogEntry(t)
		for i := 0; i < 3; i++ {
			c := domain.Copy{
				CopyID:          fmt.Sprintf("copy-%04d", accession),
				CatalogRef:      t.CatalogRef,
				AccessionNumber: fmt.Sprintf("ACC-%05d", accession),
				Status:          domain.CopyAvailable,
			}
			if err := s.PutCopy(c); err != nil {
				return fmt.Errorf("seed copy %s: %w", c.AccessionNumber, err)
			}
			accession++
		}
	}

	s.PutSetting("policy:faculty", `{"maxBooks":10,"loanDays":30,"renewalDays":14,"maxRenewals":3,"gracePeriod":2,"blockFineThreshold":"500"}`)
	return nil
}
