package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code      int    `json:"code" example:"400"`
	Category  string `json:"category" example:"VALIDATION_ERROR"`
	Message   string `json:"message" example:"O título da tarefa não pode ser vazio."`
	Kind      string `json:"kind,omitempty" example:"DUPLICATE_DATE"`
	SlotIndex *int   `json:"slot_index,omitempty" example:"1"`
}
