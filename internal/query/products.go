package query

import (
	"slices"
	"strings"

	"sitetrack/internal/domain"
)

// ProductFilters são os filtros da lista de produtos.
type ProductFilters struct {
	WarrantyTypes   []domain.WarrantyType `json:"warranty_types"`
	HasImages       *bool                 `json:"has_images"`
	HasSerialNumber *bool                 `json:"has_serial_number"`
	HasPurchaseDate *bool                 `json:"has_purchase_date"`
	Users           []string              `json:"users"`
}

// ActiveCount conta quantos filtros estão ativos.
func (f ProductFilters) ActiveCount() int {
	n := 0
	if len(f.WarrantyTypes) > 0 {
		n++
	}
	for _, p := range []*bool{f.HasImages, f.HasSerialNumber, f.HasPurchaseDate} {
		if p != nil {
			n++
		}
	}
	if len(f.Users) > 0 {
		n++
	}
	return n
}

func (f ProductFilters) Equal(o ProductFilters) bool {
	return slices.Equal(f.WarrantyTypes, o.WarrantyTypes) &&
		slices.Equal(f.Users, o.Users) &&
		sameFlag(f.HasImages, o.HasImages) &&
		sameFlag(f.HasSerialNumber, o.HasSerialNumber) &&
		sameFlag(f.HasPurchaseDate, o.HasPurchaseDate)
}

type ProductParams = Params[ProductFilters]

func productMatches(p domain.Product, params ProductParams, v Viewer) bool {
	f := params.Filters
	if !inSet(f.WarrantyTypes, p.Warranty.Type) ||
		!inSet(f.Users, p.UserID) ||
		!matchPresence(f.HasImages, len(p.Images) > 0) ||
		!matchPresence(f.HasSerialNumber, p.SerialNumber != "") ||
		!matchPresence(f.HasPurchaseDate, p.PurchaseDate != nil && !p.PurchaseDate.IsZero()) {
		return false
	}

	needle := strings.ToLower(strings.TrimSpace(params.Search))
	if needle == "" {
		return true
	}
	return containsFold(p.Name, needle) ||
		containsFold(p.Description, needle) ||
		containsFold(p.SerialNumber, needle) ||
		ownerMatches(v, p.UserID, p.UploaderEmail, needle)
}

// Products aplica busca, filtros, ordenação e paginação, nesta ordem.
func Products(items []domain.Product, params ProductParams, v Viewer) Page[domain.Product] {
	out := make([]domain.Product, 0, len(items))
	for _, p := range items {
		if productMatches(p, params, v) {
			out = append(out, p)
		}
	}

	c := newCollator()
	switch params.Sort {
	case SortOldest:
		sortStable(out, func(a, b domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) })
	case SortNameAsc:
		sortStable(out, func(a, b domain.Product) int { return c.CompareString(a.Name, b.Name) })
	case SortNameDesc:
		sortStable(out, func(a, b domain.Product) int { return c.CompareString(b.Name, a.Name) })
	default:
		sortStable(out, func(a, b domain.Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}

	return Paginate(out, params.Page)
}

func sortStable[T any](items []T, cmp func(a, b T) int) {
	slices.SortStableFunc(items, cmp)
}
