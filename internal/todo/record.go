package todo

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// LocalUserID tags records created on this client rather than ingested.
const LocalUserID = 1

const MaxTitleLength = 256

var (
	ErrDuplicateID = errors.New("todo id already exists")
	ErrClosed      = errors.New("todo store is closed")
	ErrEmptyTitle  = errors.New("title cannot be empty")
	ErrTitleLength = errors.New("title is too long")
)

// Record is a single todo entry.
type Record struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft holds user input for creating or editing a record.
type Draft struct {
	Title     string `validate:"required,max=256"`
	Completed bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims the title and validates the draft. Blank titles are
// rejected with ErrEmptyTitle.
func (d Draft) Normalize() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return d, ErrTitleLength
		}
		return d, ErrEmptyTitle
	}
	return d, nil
}

// DraftOf returns a draft prefilled from r, used by edit forms.
func DraftOf(r Record) Draft {
	return Draft{Title: r.Title, Completed: r.Completed}
}

// Apply returns r with the draft's fields copied over.
func (d Draft) Apply(r Record) Record {
	r.Title = d.Title
	r.Completed = d.Completed
	return r
}

func (r Record) Status() string {
	if r.Completed {
		return "Completed"
	}
	return "Not Completed"
}

func normalizeTimes(r Record, now time.Time) Record {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() || r.UpdatedAt.Before(r.CreatedAt) {
		r.UpdatedAt = r.CreatedAt
	}
	return r
}
