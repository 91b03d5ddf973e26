package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMatchJSONIncludesStatus(t *testing.T) {
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		match Match
		want  MatchStatus
	}{
		{"scheduled", Match{ID: 1}, MatchStatusScheduled},
		{"ended", Match{ID: 2, EndTime: &end}, MatchStatusEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range []interface{}{tt.match, &tt.match} {
				raw, err := json.Marshal(v)
				if err != nil {
					t.Fatalf("Marshal: %v", err)
				}
				var out struct {
					ID     int         `json:"id"`
					Status MatchStatus `json:"status"`
				}
				if err := json.Unmarshal(raw, &out); err != nil {
					t.Fatalf("Unmarshal: %v", err)
				}
				if out.Status != tt.want || out.ID != tt.match.ID {
					t.Fatalf("got %+v from %s", out, raw)
				}
			}
		})
	}
}
