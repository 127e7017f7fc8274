package matches

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/jrsteele09/go-mvp-voting/players"
)

// State is the match lifecycle as reported by the backend.
type State string

const (
	StateScheduled  State = "programado"
	StateInProgress State = "en_proceso"
	StateFinished   State = "finalizado"
)

func (s State) Valid() bool {
	switch s {
	case StateScheduled, StateInProgress, StateFinished:
		return true
	}
	return false
}

// Roster size accepted when an admin creates a match.
const (
	MinRoster = 15
	MaxRoster = 23
)

type Match struct {
	ID          string           `json:"_id"`
	Date        string           `json:"fecha"` // As sent by the backend, see ScheduledAt
	Opponent    string           `json:"rival"`
	State       State            `json:"estado"`
	Roster      []players.Player `json:"jugadores"`
	Winner      *players.Player  `json:"ganador,omitempty"`
	Description string           `json:"description,omitempty"`
}

// UnmarshalJSON tolerates backends that send "id" instead of "_id".
func (m *Match) UnmarshalJSON(data []byte) error {
	type match Match
	var raw struct {
		match
		PlainID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Match(raw.match)
	if m.ID == "" {
		m.ID = raw.PlainID
	}
	return nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// ScheduledAt parses the match date.
func (m Match) ScheduledAt() (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, m.Date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("[Match.ScheduledAt] unrecognised date %q", m.Date)
}

func (m Match) InProgress() bool {
	return m.State == StateInProgress
}

// Title is the human label used in listings.
func (m Match) Title() string {
	label := "vs " + m.Opponent
	if t, err := m.ScheduledAt(); err == nil {
		label += " (" + t.Format("02/01/2006 15:04") + ")"
	}
	return label
}

// CreateRequest is the admin payload; Roster carries player ids.
type CreateRequest struct {
	Date        time.Time `json:"fecha"`
	Opponent    string    `json:"rival"`
	State       State     `json:"estado,omitempty"`
	Roster      []string  `json:"jugadores"`
	Description string    `json:"description,omitempty"`
}

func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Opponent) == "" {
		return fmt.Errorf("%w: rival is required", apperrors.ErrInvalidRequest)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: fecha is required", apperrors.ErrInvalidRequest)
	}
	if r.State != "" && !r.State.Valid() {
		return fmt.Errorf("%w: unknown estado %q", apperrors.ErrInvalidRequest, r.State)
	}
	return ValidateRoster(r.Roster)
}

// ValidateRoster enforces the squad size and rejects duplicate players.
func ValidateRoster(ids []string) error {
	if len(ids) < MinRoster || len(ids) > MaxRoster {
		return fmt.Errorf("%w: Debes seleccionar entre %d y %d jugadores. Actualmente: %d",
			apperrors.ErrInvalidRequest, MinRoster, MaxRoster, len(ids))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty player id in roster", apperrors.ErrInvalidRequest)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: player %s selected twice", apperrors.ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// UpdateRequest holds optional fields; nil fields are not sent.
type UpdateRequest struct {
	Date        *time.Time `json:"fecha,omitempty"`
	Opponent    *string    `json:"rival,omitempty"`
	State       *State     `json:"estado,omitempty"`
	Roster      []string   `json:"jugadores,omitempty"`
	Description *string    `json:"description,omitempty"`
}

func (r UpdateRequest) Validate() error {
	if r.State != nil && !r.State.Valid() {
		return fmt.Errorf("%w: unknown estado %q", apperrors.ErrInvalidRequest, *r.State)
	}
	if r.Roster != nil {
		return ValidateRoster(r.Roster)
	}
	return nil
}
