package domain

// CopyStatus is the availability state of a physical copy.
type CopyStatus string

const (
	CopyAvailable   CopyStatus = "Available"
	CopyIssued      CopyStatus = "Issued"
	CopyLost        CopyStatus = "Lost"
	CopyMaintenance CopyStatus = "Maintenance"
)

// Copy is one accession-tracked instance of a catalog title.
type Copy struct {
	CopyID          string     `json:"copyID"`
	CatalogRef      string     `json:"catalogRef"`
	AccessionNumber string     `json:"accessionNumber"`
	Status          CopyStatus `json:"status"`
	AuditFields
}

// IsAvailable reports whether the copy can be issued.
func (c Copy) IsAvailable() bool {
	return c.Status == CopyAvailable
}

// CatalogMeta is the title-level metadata snapshotted into history.
type CatalogMeta struct {
	CatalogRef string `json:"catalogRef"`
	Title      string `json:"title"`
	ISBN       string `json:"isbn"`
	Author     string `json:"author"`
	Publisher  string `json:"publisher"`
}
