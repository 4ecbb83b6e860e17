package validate

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

var (
	perGameCols  = []string{"Rk", "Player", "Age", "Team", "Pos", "G", "GS", "MP", "FGA", "FG%", "3PA", "3P%", "FTA", "FT%", "TRB", "AST", "PTS", "Awards"}
	advancedCols = []string{"Rk", "Player", "Age", "Team", "Pos", "G", "MP", "PER", "TS%", "3PAr", "FTr"}
)

func perGameRow(i int) map[string]any {
	return map[string]any{
		"Rk": float64(i + 1), "Player": fmt.Sprintf("Player %03d", i), "Age": 25.0, "Team": "BOS", "Pos": "G",
		"G": 50.0, "GS": 20.0, "MP": 30.0, "FGA": 15.0, "FG%": 0.5, "3PA": 5.0, "3P%": 0.35,
		"FTA": 4.0, "FT%": 0.8, "TRB": 5.0, "AST": 4.0, "PTS": 20.0, "Awards": nil,
	}
}

func advancedRow(i int) map[string]any {
	return map[string]any{
		"Rk": float64(i + 1), "Player": fmt.Sprintf("Player %03d", i), "Age": 25.0, "Team": "BOS", "Pos": "G",
		"G": 50.0, "MP": 1500.0, "PER": 15.0, "TS%": 0.56, "3PAr": 0.33, "FTr": 0.27,
	}
}

type statsDoc map[string]any

func newStatsDoc(perGame, advanced int) statsDoc {
	pg := make([]map[string]any, perGame)
	for i := range pg {
		pg[i] = perGameRow(i)
	}
	adv := make([]map[string]any, advanced)
	for i := range adv {
		adv[i] = advancedRow(i)
	}
	return statsDoc{
		"season":           "2024-25",
		"fetch_timestamp":  "2025-01-15T06:00:00.000000",
		"source":           "basketball_reference",
		"per_game_stats":   pg,
		"advanced_stats":   adv,
		"per_game_columns": perGameCols,
		"advanced_columns": advancedCols,
	}
}

func (d statsDoc) perGame() []map[string]any { return d["per_game_stats"].([]map[string]any) }

func mustJSON(v any) []byte {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func playersDoc(n int) map[string]any {
	ps := make([]map[string]any, n)
	for i := range ps {
		ps[i] = map[string]any{"id": 1000 + i, "full_name": fmt.Sprintf("Player %03d", i), "is_active": true}
	}
	return map[string]any{"players": ps}
}

func salariesDoc(n int, each float64) map[string]any {
	ss := make([]map[string]any, n)
	for i := range ss {
		ss[i] = map[string]any{
			"player_name": fmt.Sprintf("Player %03d", i), "annual_salary": each,
			"season": "2024-25", "source": "espn",
		}
	}
	return map[string]any{"fetch_timestamp": "2025-01-15T06:00:00.000000", "source": "espn", "salaries": ss}
}
