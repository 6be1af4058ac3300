package domain

import (
	"bytes"
	"encoding/json"
)

type CubeColor string

const (
	CubeRed    CubeColor = "red"
	CubeBlue   CubeColor = "blue"
	CubeGreen  CubeColor = "green"
	CubeYellow CubeColor = "yellow"
	CubeBlack  CubeColor = "black"
)

var CubeColors = []CubeColor{CubeRed, CubeBlue, CubeGreen, CubeYellow, CubeBlack}

func (c CubeColor) Valid() bool {
	for _, v := range CubeColors {
		if c == v {
			return true
		}
	}
	return false
}

type Player struct {
	ID                  int          `json:"id"`
	Name                string       `json:"name"`
	SelectedCube        CubeColor    `json:"selectedCube"`
	SelectedCorporation string       `json:"selectedCorporation"`
	Games               []GameResult `json:"games"`
	Stats               PlayerStats  `json:"stats"`
	PlayOrder           int          `json:"playOrder,omitempty"` // 0 = not drawn
}

// PlayerStats is a cache over Player.Games and is never a source of truth.
type PlayerStats struct {
	TotalGames   int     `json:"totalGames"`
	TotalScore   int     `json:"totalScore"`
	AverageScore float64 `json:"averageScore"`
	Wins         int     `json:"wins"`
	Seconds      int     `json:"seconds"`
	Thirds       int     `json:"thirds"`
	Fourths      int     `json:"fourths"`
}

type Game struct {
	ID          int64        `json:"id"` // creation time in ms
	Date        string       `json:"date"`
	DateDisplay string       `json:"dateDisplay,omitempty"`
	Map         string       `json:"map"`
	Results     []GameResult `json:"results"` // ordered by rank ascending
}

type GameResult struct {
	ResultID       string          `json:"resultId,omitempty"`
	PlayerID       int             `json:"playerId"`
	PlayerName     string          `json:"playerName"` // copy of Player.Name at record time
	CubeColor      CubeColor       `json:"cubeColor"`
	Corporation    string          `json:"corporation"`
	Score          int             `json:"score"`
	ScoreBreakdown *ScoreBreakdown `json:"scoreBreakdown,omitempty"`
	Megacredits    int             `json:"megacredits"`
	Rank           int             `json:"rank"`
	Badges         []Badge         `json:"badges"`
}

type Badge struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type Document struct {
	Players          []Player `json:"players"`
	Games            []Game   `json:"games"`
	SelectedMap      MapName  `json:"selectedMap"`
	SelectedColonies []string `json:"selectedColonies"`
	LastUpdated      string   `json:"lastUpdated,omitempty"`
}

// MapName accepts both the plain string form and the older {value, name} object form.
type MapName string

func (m *MapName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = DefaultMap
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*m = MapName(obj.Value)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = MapName(s)
	return nil
}
