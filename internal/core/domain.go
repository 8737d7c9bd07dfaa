package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength caps the description accepted from clients.
const MaxDescriptionLength = 100

type (
	Date struct {
		time.Time
	}

	// MonthYear identifies a calendar month. Its canonical text form is YYYY-MM.
	MonthYear struct {
		Year  int
		Month time.Month
	}

	Expense struct {
		ID          string
		OwnerID     string
		Description string
		Amount      decimal.Decimal
		Category    Category
		OccurredOn  Date
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Budget struct {
		ID        string
		OwnerID   string
		Category  Category
		Amount    decimal.Decimal
		MonthYear MonthYear
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrDuplicateBudget    = errors.New("budget already exists for category and month")
	ErrNotFound           = errors.New("not found")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, keeping only the date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// MonthYear returns the month the date falls in.
func (d Date) MonthYear() MonthYear {
	return MonthYear{Year: d.Year(), Month: d.Month()}
}

func NewMonthYear(year int, month time.Month) MonthYear {
	return MonthYear{Year: year, Month: month}
}

// ParseMonthYear parses the canonical YYYY-MM form.
func ParseMonthYear(s string) (MonthYear, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return MonthYear{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthYear{Year: t.Year(), Month: t.Month()}, nil
}

func (m MonthYear) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m MonthYear) Validate() error {
	if m.Month < time.January || m.Month > time.December || m.Year < 1 {
		return ErrInvalidMonth
	}
	return nil
}

// FirstDay returns the first calendar day of the month.
func (m MonthYear) FirstDay() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// LastDay returns the last calendar day of the month.
func (m MonthYear) LastDay() Date {
	return Date{Time: m.FirstDay().AddDate(0, 1, -1)}
}

// Contains reports whether d falls between the first and last day of the month, inclusive.
func (m MonthYear) Contains(d Date) bool {
	day := NewDate(d.Year(), int(d.Month()), d.Day())
	return !day.Before(m.FirstDay().Time) && !day.After(m.LastDay().Time)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := e.OccurredOn.Validate(); err != nil {
		return err
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len([]rune(desc)) > MaxDescriptionLength {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, MaxDescriptionLength)
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Category.IsCanonical() {
		return ErrInvalidCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if !b.Category.IsCanonical() {
		return ErrInvalidCategory
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return b.MonthYear.Validate()
}
