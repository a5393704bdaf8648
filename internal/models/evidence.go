package models

// EvidenceIndex maps each package name encountered as an import/require
// specifier to the sorted, deduplicated list of POSIX-relative paths that
// reference it.
type EvidenceIndex struct {
	ScannedFiles int                 `json:"scannedFiles"`
	ByPackage    map[string][]string `json:"byPackage"`
}

// EmptyEvidenceIndex is returned when evidenceMode=none.
func EmptyEvidenceIndex() EvidenceIndex {
	return EvidenceIndex{ScannedFiles: 0, ByPackage: map[string][]string{}}
}

// Paths returns the evidence file list for a package, or nil if none.
func (e EvidenceIndex) Paths(name string) []string {
	return e.ByPackage[name]
}
