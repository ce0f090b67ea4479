package transport

import (
	"net/url"
	"strconv"
	"strings"

	"sitetrack/internal/query"
)

// ListResponse é a resposta das listagens: a página calculada e o estado da tela.
type ListResponse[T any, F any] struct {
	Page          query.Page[T]      `json:"page"`
	State         query.ListState[F] `json:"state"`
	ActiveFilters int                `json:"active_filters"`
}

// ApplyListQuery aplica sobre state os parâmetros presentes na query string.
// Os filtros são lidos por parseFilters apenas quando alguma chave de filtro aparece.
func ApplyListQuery[F any](state *query.ListState[F], q url.Values, filterKeys []string, parseFilters func(url.Values) F) {
	if q.Has("search") {
		state.SetSearch(strings.TrimSpace(q.Get("search")))
	}
	for _, k := range filterKeys {
		if q.Has(k) {
			state.SetFilters(parseFilters(q))
			break
		}
	}
	if q.Has("sort") {
		state.SetSort(query.SortKey(q.Get("sort")))
	}
	if q.Has("view") {
		if v := query.ViewMode(q.Get("view")); v == query.ViewGrid || v == query.ViewList {
			state.SetView(v)
		}
	}
	if q.Has("page") {
		if p, err := strconv.Atoi(q.Get("page")); err == nil {
			state.SetPage(p)
		}
	}
}

// TriState lê "true"/"false"; qualquer outro valor (ou ausência) desliga o filtro.
func TriState(q url.Values, key string) *bool {
	switch strings.ToLower(q.Get(key)) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	return nil
}

// CSV lê uma lista separada por vírgulas, aceitando também a chave repetida.
func CSV(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
