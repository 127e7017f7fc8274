package voting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Eligibility is the backend's answer to "may this user vote on this match now".
type Eligibility struct {
	CanVote          bool     `json:"puedeVotar"`
	Reason           string   `json:"razon,omitempty"`
	RemainingSeconds *float64 `json:"tiempoRestante,omitempty"`
}

// Remaining is the time left before the state changes, if the backend sent one.
func (e Eligibility) Remaining() (time.Duration, bool) {
	if e.RemainingSeconds == nil || *e.RemainingSeconds <= 0 {
		return 0, false
	}
	return time.Duration(math.Round(*e.RemainingSeconds)) * time.Second, true
}

type Vote struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId,omitempty"`
	PlayerID string    `json:"playerId"`
	MatchID  string    `json:"matchId"`
	CastAt   time.Time `json:"fechaVoto"`
}

type CreateVoteRequest struct {
	PlayerID string `json:"playerId"`
	MatchID  string `json:"matchId"`
}

// PlayerStats is one player's share of a match's votes.
type PlayerStats struct {
	PlayerID    string  `json:"playerId"`
	PlayerName  string  `json:"playerName"`
	PlayerImage string  `json:"playerImagen,omitempty"`
	Votes       int     `json:"totalVotos"`
	Percentage  float64 `json:"porcentaje"`
}

// TotalVotes accepts either a bare number or {"totalVotos": n}.
type TotalVotes int

func (t *TotalVotes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var body struct {
			TotalVotos *int `json:"totalVotos"`
			Total      *int `json:"total"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return err
		}
		switch {
		case body.TotalVotos != nil:
			*t = TotalVotes(*body.TotalVotos)
		case body.Total != nil:
			*t = TotalVotes(*body.Total)
		default:
			return fmt.Errorf("total votes missing from %s", data)
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = TotalVotes(n)
	return nil
}
