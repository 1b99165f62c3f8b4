package dto

// StatusUpdateRequest sets a registration or lead triage label.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetLiveRequest writes a session's live flag explicitly.
type SetLiveRequest struct {
	IsLive *bool `json:"is_live" binding:"required"`
}

// MediaUploadResponse is returned after a successful media upload.
type MediaUploadResponse struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
