// Package scheduler valida e altera a lista ordenada de horários de uma tarefa.
//
// Todas as operações recebem a lista atual e devolvem uma cópia alterada; em caso
// de erro a lista original é preservada. As regras aplicadas são:
//   - no máximo um horário por data;
//   - quando há horário de término, ele é posterior ao de início no mesmo dia;
//   - horários aprovados não podem ser alterados ou removidos por não administradores.
package scheduler

import (
	"fmt"
	"iter"
	"slices"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
)

// Step é o intervalo entre as opções de horário oferecidas.
const Step = 30

func checkIndex(slots []domain.TimeSlot, index int) error {
	if index < 0 || index >= len(slots) {
		return apperror.NewValidationError(fmt.Sprintf("horário %d não existe", index))
	}
	return nil
}

func checkUnlocked(slots []domain.TimeSlot, index int, isAdmin bool) error {
	if err := checkIndex(slots, index); err != nil {
		return err
	}
	if slots[index].Approved && !isAdmin {
		return apperror.NewScheduleError(apperror.ScheduleLocked, index,
			"horários aprovados só podem ser alterados por administradores")
	}
	return nil
}

// AddSlot acrescenta um horário vazio na data today.
func AddSlot(slots []domain.TimeSlot, today domain.Date) ([]domain.TimeSlot, error) {
	for i, s := range slots {
		if s.Date == today {
			return slots, apperror.NewScheduleError(apperror.ScheduleDuplicateDate, i,
				fmt.Sprintf("já existe um horário para %s", today))
		}
	}
	out := slices.Clone(slots)
	return append(out, domain.TimeSlot{Date: today}), nil
}

// RemoveSlot remove o horário index preservando a ordem dos demais.
func RemoveSlot(slots []domain.TimeSlot, index int, isAdmin bool) ([]domain.TimeSlot, error) {
	if err := checkUnlocked(slots, index, isAdmin); err != nil {
		return slots, err
	}
	return slices.Delete(slices.Clone(slots), index, index+1), nil
}

// SetStartTime define o início e limpa o término previamente escolhido.
func SetStartTime(slots []domain.TimeSlot, index int, t domain.TimeOfDay, isAdmin bool) ([]domain.TimeSlot, error) {
	if err := checkUnlocked(slots, index, isAdmin); err != nil {
		return slots, err
	}
	out := slices.Clone(slots)
	out[index].StartTime = t
	out[index].EndTime = domain.TimeOfDay{}
	return out, nil
}

// SetEndTime define o término. O valor zero limpa o término.
func SetEndTime(slots []domain.TimeSlot, index int, t domain.TimeOfDay, isAdmin bool) ([]domain.TimeSlot, error) {
	if err := checkUnlocked(slots, index, isAdmin); err != nil {
		return slots, err
	}
	start := slots[index].StartTime
	if !t.IsZero() {
		// Sem início nenhum término é posterior a ele.
		if start.IsZero() {
			return slots, apperror.NewScheduleError(apperror.ScheduleInvalidRange, index,
				"defina o horário de início antes do término")
		}
		if !start.Before(t) {
			return slots, apperror.NewScheduleError(apperror.ScheduleInvalidRange, index,
				fmt.Sprintf("o término (%s) deve ser posterior ao início (%s)", t, start))
		}
	}
	out := slices.Clone(slots)
	out[index].EndTime = t
	return out, nil
}

// SetApproval aprova ou desaprova um horário. Apenas administradores.
func SetApproval(slots []domain.TimeSlot, index int, approved bool, isAdmin bool) ([]domain.TimeSlot, error) {
	if !isAdmin {
		return slots, apperror.NewPermissionDeniedError("apenas administradores podem aprovar horários")
	}
	if err := checkIndex(slots, index); err != nil {
		return slots, err
	}
	out := slices.Clone(slots)
	out[index].Approved = approved
	return out, nil
}

// ComputeDuration retorna o tempo entre início e término em horas e minutos.
// Intervalos que cruzam a meia-noite não são aceitos.
func ComputeDuration(start, end domain.TimeOfDay) (hours, minutes int, err error) {
	if start.IsZero() || end.IsZero() {
		return 0, 0, apperror.NewScheduleError(apperror.ScheduleMissingStartTime, apperror.NoSlot,
			"início e término são obrigatórios para calcular a duração")
	}
	if !start.Before(end) {
		return 0, 0, apperror.NewScheduleError(apperror.ScheduleInvalidRange, apperror.NoSlot,
			"o término deve ser posterior ao início")
	}
	total := end.Minutes() - start.Minutes()
	return total / 60, total % 60, nil
}

// FormatDuration formata a duração no padrão "2h 30min".
func FormatDuration(hours, minutes int) string {
	switch {
	case hours == 0:
		return fmt.Sprintf("%dmin", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dmin", hours, minutes)
	}
}

// AvailableEndTimes gera os términos possíveis para start, de 30 em 30 minutos,
// a partir de start+30 e antes de 24:00. Cada iteração recomeça do início.
func AvailableEndTimes(start domain.TimeOfDay) iter.Seq[domain.TimeOfDay] {
	return func(yield func(domain.TimeOfDay) bool) {
		if start.IsZero() {
			return
		}
		for t, ok := start.Add(Step); ok; t, ok = t.Add(Step) {
			if !yield(t) {
				return
			}
		}
	}
}

// StartTimeOptions lista os 48 inícios possíveis de um dia (00:00 a 23:30).
func StartTimeOptions() []domain.TimeOfDay {
	opts := make([]domain.TimeOfDay, 0, domain.MinutesPerDay/Step)
	for m := 0; m < domain.MinutesPerDay; m += Step {
		t, _ := domain.TimeOfDayFromMinutes(m)
		opts = append(opts, t)
	}
	return opts
}

// ValidateSlots é a verificação feita antes de salvar. A primeira violação encontrada é retornada.
func ValidateSlots(slots []domain.TimeSlot) error {
	if len(slots) == 0 {
		return apperror.NewScheduleError(apperror.ScheduleMissingSlot, apperror.NoSlot,
			"adicione pelo menos um horário")
	}
	for i, s := range slots {
		if s.StartTime.IsZero() {
			return apperror.NewScheduleError(apperror.ScheduleMissingStartTime, i,
				fmt.Sprintf("o horário de %s não tem início", s.Date))
		}
	}
	for i, s := range slots {
		if !s.EndTime.IsZero() && !s.StartTime.Before(s.EndTime) {
			return apperror.NewScheduleError(apperror.ScheduleInvalidRange, i,
				fmt.Sprintf("o horário de %s termina antes de começar", s.Date))
		}
	}
	return nil
}

// Reconcile aplica uma lista completa de horários enviada pelo cliente sobre a lista
// armazenada, respeitando as mesmas regras das operações individuais: datas únicas e,
// para não administradores, horários aprovados intocados e aprovação inalterada.
func Reconcile(prev, next []domain.TimeSlot, isAdmin bool) ([]domain.TimeSlot, error) {
	seen := make(map[domain.Date]int, len(next))
	for i, s := range next {
		if s.Date.IsZero() {
			return prev, apperror.NewValidationError(fmt.Sprintf("horário %d sem data", i))
		}
		if _, dup := seen[s.Date]; dup {
			return prev, apperror.NewScheduleError(apperror.ScheduleDuplicateDate, i,
				fmt.Sprintf("já existe um horário para %s", s.Date))
		}
		seen[s.Date] = i
	}

	if !isAdmin {
		approvedBefore := make(map[domain.Date]domain.TimeSlot)
		for i, p := range prev {
			if !p.Approved {
				continue
			}
			approvedBefore[p.Date] = p
			j, ok := seen[p.Date]
			if !ok || next[j] != p {
				return prev, apperror.NewScheduleError(apperror.ScheduleLocked, i,
					fmt.Sprintf("o horário aprovado de %s não pode ser alterado", p.Date))
			}
		}
		for i, s := range next {
			if _, wasApproved := approvedBefore[s.Date]; s.Approved && !wasApproved {
				return prev, apperror.NewPermissionDeniedError(
					fmt.Sprintf("apenas administradores podem aprovar o horário %d", i))
			}
		}
	}

	for i, s := range next {
		if !s.EndTime.IsZero() && (s.StartTime.IsZero() || !s.StartTime.Before(s.EndTime)) {
			return prev, apperror.NewScheduleError(apperror.ScheduleInvalidRange, i,
				fmt.Sprintf("o horário de %s termina antes de começar", s.Date))
		}
	}

	return slices.Clone(next), nil
}
