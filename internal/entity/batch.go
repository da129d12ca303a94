package entity

import (
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
)

// Batch is a stored snapshot of one upload batch and its extraction output.
type Batch struct {
	ID         string                `json:"batch_id"`
	Status     constants.BatchStatus `json:"status"`
	Files      []FileMeta            `json:"files"`
	Pages      []OcrPage             `json:"ocr_pages"`
	Packages   []PackageRow          `json:"packages"`
	Summary    Summary               `json:"summary"`
	CreatedAt  time.Time             `json:"created_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	ModelName  string                `json:"model_name,omitempty"`
}
