package models

// Round numbers are 1-based and unique within a stage item.
type Round struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	StageID      int    `json:"stage_id" db:"stage_id"`
	StageItemID  int    `json:"stage_item_id" db:"stage_item_id"`
	Name         string `json:"name" db:"name"`
	Number       int    `json:"number" db:"number"`
}
