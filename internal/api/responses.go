package api

type ErrorResponse struct {
	Error string `json:"error" example:"Mesa no encontrada"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
