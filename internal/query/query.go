// Package query filtra, ordena e pagina em memória as listas já restritas ao
// escopo do usuário (admin vê tudo, os demais apenas os próprios registros).
package query

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"sitetrack/internal/domain"
)

// PageSize é o tamanho fixo das páginas.
const PageSize = 10

// SortKey identifica a ordenação escolhida.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortTitleAsc  SortKey = "title-asc"
	SortTitleDesc SortKey = "title-desc"
	SortTime      SortKey = "time" // apenas tarefas: início do primeiro horário
)

// Params reúne os parâmetros escolhidos na tela de listagem.
type Params[F any] struct {
	Search  string  `json:"search"`
	Sort    SortKey `json:"sort"`
	Filters F       `json:"filters"`
	Page    int     `json:"page"`
}

// Viewer descreve quem está consultando. Directory é usado na busca de administradores.
type Viewer struct {
	IsAdmin   bool
	Directory domain.UserDirectory
}

// Page é a fatia de resultados a exibir.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
}

// Paginate recorta items na página pedida (base 1). Páginas além do fim retornam vazias.
func Paginate[T any](items []T, page int) Page[T] {
	if page < 1 {
		page = 1
	}
	total := len(items)
	p := Page[T]{
		Items:      []T{},
		TotalCount: total,
		TotalPages: (total + PageSize - 1) / PageSize,
		Page:       page,
		PageSize:   PageSize,
	}
	start := (page - 1) * PageSize
	if start >= total {
		return p
	}
	end := min(start+PageSize, total)
	p.Items = append(p.Items, items[start:end]...)
	return p
}

// Tri-state: nil não filtra, true/false exigem presença/ausência.
func matchPresence(want *bool, has bool) bool {
	return want == nil || *want == has
}

func sameFlag(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func inSet[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ownerMatches aplica a parte exclusiva de administradores da busca:
// e-mail de quem enviou e nome/e-mail do dono no diretório.
func ownerMatches(v Viewer, ownerID, uploaderEmail, needle string) bool {
	if !v.IsAdmin {
		return false
	}
	if containsFold(uploaderEmail, needle) {
		return true
	}
	if u, ok := v.Directory[ownerID]; ok {
		return containsFold(u.Name, needle) || containsFold(u.Email, needle)
	}
	return false
}

func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}

// FilterUsers filtra o diretório pelo nome ou e-mail, para o seletor de usuários.
// O resultado segue a ordem alfabética de nome.
func FilterUsers(dir domain.UserDirectory, q string) []domain.UserInfo {
	needle := strings.ToLower(strings.TrimSpace(q))
	out := make([]domain.UserInfo, 0, len(dir))
	for _, u := range dir {
		if needle == "" || containsFold(u.Name, needle) || containsFold(u.Email, needle) {
			out = append(out, u)
		}
	}
	c := newCollator()
	sortStable(out, func(a, b domain.UserInfo) int {
		if r := c.CompareString(a.Name, b.Name); r != 0 {
			return r
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
