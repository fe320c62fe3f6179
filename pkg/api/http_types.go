package api

// Endpoint: /default-audio
type DefaultAudio struct {
	URL string `json:"url"`
}
type DefaultAudioResponse []DefaultAudio

// Endpoint: /upload/direct
type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// Returned by every route on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
