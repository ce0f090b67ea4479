package query

import (
	"slices"
	"strings"

	"sitetrack/internal/domain"
)

// TaskFilters são os filtros da lista de tarefas.
type TaskFilters struct {
	Statuses  []domain.TaskStatus `json:"statuses"`
	HasImages *bool               `json:"has_images"`
	Users     []string            `json:"users"`
}

func (f TaskFilters) ActiveCount() int {
	n := 0
	if len(f.Statuses) > 0 {
		n++
	}
	if f.HasImages != nil {
		n++
	}
	if len(f.Users) > 0 {
		n++
	}
	return n
}

// Equal compara os filtros; listas nulas e vazias são equivalentes.
func (f TaskFilters) Equal(o TaskFilters) bool {
	return slices.Equal(f.Statuses, o.Statuses) &&
		slices.Equal(f.Users, o.Users) &&
		sameFlag(f.HasImages, o.HasImages)
}

type TaskParams = Params[TaskFilters]

func taskMatches(t domain.Task, params TaskParams, v Viewer) bool {
	f := params.Filters
	if !inSet(f.Statuses, t.Status) ||
		!inSet(f.Users, t.UserID) ||
		!matchPresence(f.HasImages, len(t.Images) > 0) {
		return false
	}

	needle := strings.ToLower(strings.TrimSpace(params.Search))
	if needle == "" {
		return true
	}
	return containsFold(t.Title, needle) ||
		containsFold(t.Description, needle) ||
		ownerMatches(v, t.UserID, t.UploaderEmail, needle)
}

// compareFirstStart ordena pelo início do primeiro horário; tarefas sem início vão para o fim.
func compareFirstStart(a, b domain.Task) int {
	as, bs := firstStart(a), firstStart(b)
	switch {
	case as.IsZero() && bs.IsZero():
		return 0
	case as.IsZero():
		return 1
	case bs.IsZero():
		return -1
	}
	return as.Minutes() - bs.Minutes()
}

func firstStart(t domain.Task) domain.TimeOfDay {
	if len(t.TimeSlots) == 0 {
		return domain.TimeOfDay{}
	}
	return t.TimeSlots[0].StartTime
}

// Tasks aplica busca, filtros, ordenação e paginação, nesta ordem.
func Tasks(items []domain.Task, params TaskParams, v Viewer) Page[domain.Task] {
	out := make([]domain.Task, 0, len(items))
	for _, t := range items {
		if taskMatches(t, params, v) {
			out = append(out, t)
		}
	}

	c := newCollator()
	switch params.Sort {
	case SortOldest:
		sortStable(out, func(a, b domain.Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	case SortTitleAsc:
		sortStable(out, func(a, b domain.Task) int { return c.CompareString(a.Title, b.Title) })
	case SortTitleDesc:
		sortStable(out, func(a, b domain.Task) int { return c.CompareString(b.Title, a.Title) })
	case SortTime:
		sortStable(out, compareFirstStart)
	default:
		sortStable(out, func(a, b domain.Task) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}

	return Paginate(out, params.Page)
}
