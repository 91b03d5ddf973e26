package models

import (
	"encoding/json"
	"time"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusEnded     MatchStatus = "ended"
)

type Score struct {
	Side1 int `json:"side1" db:"score_side1"`
	Side2 int `json:"side2" db:"score_side2"`
}

func (s Score) Valid() bool {
	return s.Side1 >= 0 && s.Side2 >= 0
}

// Match is one pairing inside a round. A nil EndTime means the match is still scheduled;
// once EndTime is set the match is terminal.
type Match struct {
	ID             int        `json:"id" db:"id"`
	TournamentID   int        `json:"tournament_id" db:"tournament_id"`
	StageID        int        `json:"stage_id" db:"stage_id"`
	StageItemID    int        `json:"stage_item_id" db:"stage_item_id"`
	RoundID        int        `json:"round_id" db:"round_id"`
	Participant1ID *int       `json:"participant1_id" db:"participant1_id"`
	Participant2ID *int       `json:"participant2_id" db:"participant2_id"`
	StartTime      *time.Time `json:"start_time,omitempty" db:"start_time"`
	Court          *string    `json:"court,omitempty" db:"court"`
	Score          Score      `json:"score" db:"-"`
	WinnerID       *int       `json:"winner_id" db:"winner_id"`
	EndTime        *time.Time `json:"end_time" db:"end_time"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

func (m *Match) Status() MatchStatus {
	if m.EndTime != nil {
		return MatchStatusEnded
	}
	return MatchStatusScheduled
}

type matchFields Match

// MarshalJSON adds the derived status to the stored fields.
func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		matchFields
		Status MatchStatus `json:"status"`
	}{matchFields(m), m.Status()})
}

func (m *Match) IsEnded() bool {
	return m.EndTime != nil
}

func (m *Match) HasParticipants() bool {
	return m.Participant1ID != nil && m.Participant2ID != nil
}

// IsParticipant reports whether teamID plays in this match.
func (m *Match) IsParticipant(teamID int) bool {
	return (m.Participant1ID != nil && *m.Participant1ID == teamID) ||
		(m.Participant2ID != nil && *m.Participant2ID == teamID)
}

// MatchPredicate is the condition a conditional match update must satisfy.
type MatchPredicate struct {
	Unended bool
}

// MatchPatch lists the fields to set. Nil pointers leave the column untouched;
// SetWinner makes WinnerID (possibly nil, a draw) part of the update.
type MatchPatch struct {
	Score     *Score
	SetWinner bool
	WinnerID  *int
	EndTime   *time.Time
}
