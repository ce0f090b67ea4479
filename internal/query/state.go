package query

import "reflect"

// ViewMode é a forma de exibição da lista.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// ListState guarda o estado de uma tela de listagem entre interações.
// Mudar a busca ou qualquer filtro volta para a página 1; mudar a ordenação
// ou o modo de exibição mantém a página atual.
type ListState[F any] struct {
	Params Params[F] `json:"params"`
	View   ViewMode  `json:"view"`
}

// NewListState cria o estado inicial: página 1, mais recentes primeiro, em grade.
func NewListState[F any]() ListState[F] {
	return ListState[F]{
		Params: Params[F]{Sort: SortNewest, Page: 1},
		View:   ViewGrid,
	}
}

func (s *ListState[F]) SetSearch(text string) {
	if text == s.Params.Search {
		return
	}
	s.Params.Search = text
	s.Params.Page = 1
}

// SetFilters só volta para a página 1 quando os filtros mudam de fato.
func (s *ListState[F]) SetFilters(f F) {
	if sameFilters(f, s.Params.Filters) {
		return
	}
	s.Params.Filters = f
	s.Params.Page = 1
}

func sameFilters[F any](a, b F) bool {
	if eq, ok := any(a).(interface{ Equal(F) bool }); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

func (s *ListState[F]) SetSort(k SortKey) {
	s.Params.Sort = k
}

func (s *ListState[F]) SetView(v ViewMode) {
	s.View = v
}

func (s *ListState[F]) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.Params.Page = page
}
