package players

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
)

// Player is a squad member that can receive votes.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	Nickname string `json:"apodo,omitempty"`
	Position string `json:"posicion,omitempty"`
	ImageURL string `json:"imagen,omitempty"`
	Shirt    int    `json:"camiseta,omitempty"`
	Cohort   int    `json:"camada,omitempty"` // Birth-year group the player belongs to
	Active   bool   `json:"activo"`
}

// UnmarshalJSON accepts a full record, a record keyed by "_id", or a bare id
// string as sent in unpopulated rosters.
func (p *Player) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Player{ID: id}
		return nil
	}

	type player Player
	var raw struct {
		player
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Player(raw.player)
	if p.ID == "" {
		p.ID = raw.MongoID
	}
	return nil
}

// DisplayName prefers the nickname the squad knows the player by.
func (p Player) DisplayName() string {
	if p.Nickname != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Nickname)
	}
	return p.Name
}

type CreateRequest struct {
	Name     string `json:"nombre"`
	Nickname string `json:"apodo"`
	Position string `json:"posicion"`
	ImageURL string `json:"imagen"`
	Shirt    int    `json:"camiseta"`
	Cohort   int    `json:"camada"`
}

func (r CreateRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, fmt.Errorf("nombre is required"))
	}
	if strings.TrimSpace(r.Position) == "" {
		errs = append(errs, fmt.Errorf("posicion is required"))
	}
	if r.Shirt < 0 || r.Shirt > 99 {
		errs = append(errs, fmt.Errorf("camiseta %d out of range 0-99", r.Shirt))
	}
	if r.Cohort < 0 {
		errs = append(errs, fmt.Errorf("camada %d must not be negative", r.Cohort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, apperrors.Join(errs...))
	}
	return nil
}

// UpdateRequest holds optional fields; nil fields are not sent.
type UpdateRequest struct {
	Name     *string `json:"nombre,omitempty"`
	Nickname *string `json:"apodo,omitempty"`
	Position *string `json:"posicion,omitempty"`
	ImageURL *string `json:"imagen,omitempty"`
	Shirt    *int    `json:"camiseta,omitempty"`
	Cohort   *int    `json:"camada,omitempty"`
	Active   *bool   `json:"activo,omitempty"`
}

func (r UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("%w: nombre must not be empty", apperrors.ErrInvalidRequest)
	}
	if r.Shirt != nil && (*r.Shirt < 0 || *r.Shirt > 99) {
		return fmt.Errorf("%w: camiseta %d out of range 0-99", apperrors.ErrInvalidRequest, *r.Shirt)
	}
	return nil
}

type SortField string

const (
	SortByName     SortField = "nombre"
	SortByNickname SortField = "apodo"
	SortByCohort   SortField = "camada"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Pagination selects a page of the player list. Zero values are omitted.
type Pagination struct {
	Page   int
	Limit  int
	Sort   SortField
	Order  SortOrder
	Cohort int
}

func (p Pagination) Validate() error {
	if p.Page < 0 || p.Limit < 0 {
		return fmt.Errorf("%w: page and limit must not be negative", apperrors.ErrInvalidRequest)
	}
	switch p.Sort {
	case "", SortByName, SortByNickname, SortByCohort:
	default:
		return fmt.Errorf("%w: unknown sort field %q", apperrors.ErrInvalidRequest, p.Sort)
	}
	switch p.Order {
	case "", Ascending, Descending:
	default:
		return fmt.Errorf("%w: unknown sort order %q", apperrors.ErrInvalidRequest, p.Order)
	}
	return nil
}

func (p Pagination) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if p.Order != "" {
		q.Set("order", string(p.Order))
	}
	if p.Cohort > 0 {
		q.Set("camada", strconv.Itoa(p.Cohort))
	}
	return q
}

// ListResponse is the paginated list shape; some backend versions return a bare array.
type ListResponse struct {
	Players []Player `json:"jugadores"`
	Total   int      `json:"total"`
	Cohort  int      `json:"camada,omitempty"`
}

func (l *ListResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []Player
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = ListResponse{Players: list, Total: len(list)}
		return nil
	}
	type listResponse ListResponse
	var raw listResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = ListResponse(raw)
	return nil
}
