package constants

// PackageStatus is the publish state of an exported package.
type PackageStatus string

const (
	StatusActive   PackageStatus = "active"
	StatusInactive PackageStatus = "inactive"
)

// BatchStatus tracks a stored batch snapshot.
type BatchStatus string

// Stable values (store these exact strings in DB).
const (
	BatchStatusOCROK     BatchStatus = "OCR_OK"    // pages extracted
	BatchStatusExtracted BatchStatus = "EXTRACTED" // packages produced for every file
	BatchStatusPartial   BatchStatus = "PARTIAL"   // at least one file failed extraction
	BatchStatusFailed    BatchStatus = "FAILED"    // terminal failure
)
