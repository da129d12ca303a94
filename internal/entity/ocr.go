package entity

// SavedFile is an accepted upload held in memory for one request.
type SavedFile struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// OcrPage is one page of cleaned text plus its file/page provenance.
// PageNumber is 1-based and strictly increasing within a file.
type OcrPage struct {
	FileID     string `json:"fileId"`
	FileName   string `json:"fileName"`
	PageNumber int    `json:"pageNumber"`
	RawText    string `json:"rawText"`
}

// FileMeta describes one uploaded file in a batch.
type FileMeta struct {
	FileID       string `json:"file_id"`
	OriginalName string `json:"original_name"`
	PageCount    int    `json:"page_count"`
	Error        string `json:"error,omitempty"`
}
