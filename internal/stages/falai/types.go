package falai

// Структуры queue API fal.ai (только используемые поля).

type submitRequest struct {
	Prompt    string `json:"prompt"`
	ImageSize string `json:"image_size,omitempty"`
	NumImages int    `json:"num_images"`
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

const (
	statusInQueue    = "IN_QUEUE"
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"
)

type statusResponse struct {
	Status string `json:"status"`
}

type resultResponse struct {
	Images []resultImage `json:"images"`
}

type resultImage struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}
