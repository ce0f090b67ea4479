package domain

import (
	"time"
)

// ProductStatus é o estado de aprovação de um produto.
type ProductStatus string

const (
	ProductApproved   ProductStatus = "approved"
	ProductUnapproved ProductStatus = "unapproved"
)

// Valid informa se o status é conhecido.
func (s ProductStatus) Valid() bool {
	return s == ProductApproved || s == ProductUnapproved
}

// WarrantyType é a modalidade da garantia.
type WarrantyType string

const (
	WarrantyBasic    WarrantyType = "basic"
	WarrantyExtended WarrantyType = "extended"
	WarrantyLifetime WarrantyType = "lifetime"
)

func (t WarrantyType) Valid() bool {
	switch t {
	case WarrantyBasic, WarrantyExtended, WarrantyLifetime:
		return true
	}
	return false
}

// DefaultWarrantyMonths é a duração aplicada quando a garantia não é informada.
const DefaultWarrantyMonths = 12

// MaxImagesPerEntity limita o número de fotos de um produto ou tarefa.
const MaxImagesPerEntity = 5

// WarrantyDetails descreve a garantia de um produto.
type WarrantyDetails struct {
	Type     WarrantyType `json:"type" example:"basic"`
	Duration int          `json:"duration" example:"12"` // meses
	Coverage []string     `json:"coverage"`
	Provider string       `json:"provider"`
	Terms    string       `json:"terms"`
}

// DefaultWarranty retorna a garantia padrão (basic, 12 meses).
func DefaultWarranty() WarrantyDetails {
	return WarrantyDetails{Type: WarrantyBasic, Duration: DefaultWarrantyMonths, Coverage: []string{}}
}

// Normalize preenche o tipo padrão e remove coberturas vazias ou repetidas, preservando a ordem.
func (w WarrantyDetails) Normalize() WarrantyDetails {
	if w.Type == "" {
		w.Type = WarrantyBasic
	}
	seen := make(map[string]struct{}, len(w.Coverage))
	coverage := make([]string, 0, len(w.Coverage))
	for _, c := range w.Coverage {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		coverage = append(coverage, c)
	}
	w.Coverage = coverage
	return w
}

// Product é um item registrado por um usuário, com garantia e fotos.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SerialNumber  string          `json:"serial_number,omitempty"`
	PurchaseDate  *Date           `json:"purchase_date,omitempty" swaggertype:"string" example:"2024-05-01"`
	Warranty      WarrantyDetails `json:"warranty"`
	Images        []string        `json:"images"`
	UserID        string          `json:"user_id"`
	UploaderEmail string          `json:"uploader_email,omitempty"`
	Status        ProductStatus   `json:"status"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductInput é o payload de criação/edição de produto.
// Em edições, ExistingImages lista as fotos atuais que devem ser mantidas (nil mantém todas).
type ProductInput struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	SerialNumber   string           `json:"serial_number"`
	PurchaseDate   *Date            `json:"purchase_date" swaggertype:"string"`
	Warranty       *WarrantyDetails `json:"warranty"`
	Status         ProductStatus    `json:"status"`
	ExistingImages []string         `json:"existing_images"`
	Version        int              `json:"version"`
}
