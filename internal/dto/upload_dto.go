package dto

type UploadResponse struct {
	Id           string `json:"id"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
	IsProcessed  bool   `json:"is_processed"`
}

type TicketIngestRequest struct {
	ProjectKey string `json:"project_key" validate:"required"`
}

type TicketIngestResponse struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

type PolicyUploadRequest struct {
	Title      string `json:"title" validate:"required"`
	Department string `json:"department"`
	Body       string `json:"body" validate:"required"`
}
