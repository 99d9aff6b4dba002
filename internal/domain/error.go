package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"400"`
	Category string `json:"category" example:"VALIDATION_ERROR"`
	Message  string `json:"message" example:"A quantidade solicitada deve ser positiva."`
}

// NewErrorResponse monta o corpo de erro padronizado.
func NewErrorResponse(code int, category, message string) ErrorResponse {
	return ErrorResponse{Code: code, Category: category, Message: message}
}
