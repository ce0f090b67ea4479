package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay é o total de minutos de um dia.
const MinutesPerDay = 24 * 60

// TimeOfDay é um horário do dia com precisão de minutos (HH:mm, 24h).
// O valor zero representa um horário "não definido" e é serializado como "".
type TimeOfDay struct {
	minutes int
	set     bool
}

// NewTimeOfDay cria um horário a partir de hora e minuto.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("horário inválido: %02d:%02d", hour, minute)
	}
	return TimeOfDay{minutes: hour*60 + minute, set: true}, nil
}

// TimeOfDayFromMinutes cria um horário a partir dos minutos desde a meia-noite.
func TimeOfDayFromMinutes(m int) (TimeOfDay, error) {
	if m < 0 || m >= MinutesPerDay {
		return TimeOfDay{}, fmt.Errorf("minutos fora do dia: %d", m)
	}
	return TimeOfDay{minutes: m, set: true}, nil
}

// MustTimeOfDay é como ParseTimeOfDay, mas entra em pânico em caso de erro.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay aceita "HH:mm" (24h) ou "h:mm AM/PM". String vazia retorna o valor zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeOfDay{}, nil
	}

	upper := strings.ToUpper(s)
	meridiem := ""
	if strings.HasSuffix(upper, "AM") || strings.HasSuffix(upper, "PM") {
		meridiem = upper[len(upper)-2:]
		s = strings.TrimSpace(s[:len(s)-2])
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("horário inválido: %q", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || len(hh) > 2 {
		return TimeOfDay{}, fmt.Errorf("hora inválida: %q", hh)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return TimeOfDay{}, fmt.Errorf("minuto inválido: %q", mm)
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return TimeOfDay{}, fmt.Errorf("hora inválida para formato 12h: %d", hour)
		}
		hour %= 12
		if meridiem == "PM" {
			hour += 12
		}
	}

	return NewTimeOfDay(hour, minute)
}

func (t TimeOfDay) IsZero() bool { return !t.set }
func (t TimeOfDay) Hour() int    { return t.minutes / 60 }
func (t TimeOfDay) Minute() int  { return t.minutes % 60 }

// Minutes retorna os minutos desde a meia-noite.
func (t TimeOfDay) Minutes() int { return t.minutes }

// Before compara dois horários definidos.
func (t TimeOfDay) Before(o TimeOfDay) bool { return t.minutes < o.minutes }

// Add soma minutos ao horário. Retorna false quando o resultado passa da meia-noite.
func (t TimeOfDay) Add(minutes int) (TimeOfDay, bool) {
	r, err := TimeOfDayFromMinutes(t.minutes + minutes)
	return r, err == nil
}

func (t TimeOfDay) String() string {
	if !t.set {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Format12h formata no padrão "9:30 AM".
func (t TimeOfDay) Format12h() string {
	if !t.set {
		return ""
	}
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if t.Hour() >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute(), suffix)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Date é uma data de calendário sem horário (YYYY-MM-DD).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate interpreta uma data no formato YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("data inválida: %q", s)
	}
	return DateOf(t), nil
}

// DateOf extrai a data de calendário de um instante, no fuso do próprio instante.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

// Time retorna a meia-noite UTC da data.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
