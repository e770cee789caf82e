package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedPayload is returned when a gameserver payload misses expected fields.
var ErrMalformedPayload = errors.New("malformed payload")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// HistoryPayload is served by service-history.json.
type HistoryPayload struct {
	Teams              []HistoryTeam      `json:"teams"`
	MinTick            *int               `json:"min-tick"`
	MaxTick            *int               `json:"max-tick"`
	ServiceName        string             `json:"service-name"`
	ServiceSlug        string             `json:"service-slug"`
	StatusDescriptions StatusDescriptions `json:"status-descriptions"`
	LogSearchURL       string             `json:"graylog-search-url,omitempty"`
}

// HistoryTeam carries one check result per tick, starting at min-tick.
type HistoryTeam struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	NetNumber int           `json:"net_number"`
	Checks    []CheckStatus `json:"checks"`
}

// Validate checks the payload shape before rendering.
func (p *HistoryPayload) Validate() error {
	if p.MinTick == nil || p.MaxTick == nil {
		return malformed("history: min-tick and max-tick are required")
	}
	if *p.MaxTick < *p.MinTick-1 {
		return malformed("history: max-tick %d before min-tick %d", *p.MaxTick, *p.MinTick)
	}
	if p.LogSearchURL != "" && p.ServiceSlug == "" {
		return malformed("history: service-slug is required for log search links")
	}
	width := *p.MaxTick - *p.MinTick + 1
	for i, team := range p.Teams {
		if team.Name == "" {
			return malformed("history: team %d has no name", i)
		}
		if len(team.Checks) != width {
			return malformed("history: team %q has %d checks, want %d", team.Name, len(team.Checks), width)
		}
		for _, check := range team.Checks {
			if !check.Known() {
				return malformed("history: team %q has unknown status %d", team.Name, check.Code)
			}
		}
	}
	return nil
}

// MissingChecksPayload is served by missing-checks.json.
type MissingChecksPayload struct {
	Checks       []MissingTick             `json:"checks"`
	AllTeams     map[string]MissingTeamRef `json:"all-teams"`
	MinTick      *int                      `json:"min-tick"`
	MaxTick      *int                      `json:"max-tick"`
	ServiceName  string                    `json:"service-name"`
	ServiceSlug  string                    `json:"service-slug"`
	LogSearchURL string                    `json:"graylog-search-url,omitempty"`
}

// MissingTick lists the teams without a (non-timeout) check result in a tick.
type MissingTick struct {
	Tick  int           `json:"tick"`
	Teams []MissingTeam `json:"teams"`
}

// MissingTeam is encoded as a [teamID, isTimeout] tuple.
type MissingTeam struct {
	TeamID  int
	Timeout bool
}

func (m *MissingTeam) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("missing team: %w", err)
	}
	if len(tuple) != 2 {
		return malformed("missing team: want [id, timeout], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &m.TeamID); err != nil {
		return fmt.Errorf("missing team id: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &m.Timeout); err != nil {
		return fmt.Errorf("missing team timeout: %w", err)
	}
	return nil
}

func (m MissingTeam) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{m.TeamID, m.Timeout})
}

// MissingTeamRef describes a team referenced from the checks list.
type MissingTeamRef struct {
	Name      string `json:"name"`
	NetNumber int    `json:"net-number"`
}

// Team resolves a team id against all-teams.
func (p *MissingChecksPayload) Team(id int) (MissingTeamRef, bool) {
	ref, ok := p.AllTeams[strconv.Itoa(id)]
	return ref, ok
}

// Validate checks the payload shape before rendering.
func (p *MissingChecksPayload) Validate() error {
	if p.MinTick == nil || p.MaxTick == nil {
		return malformed("missing checks: min-tick and max-tick are required")
	}
	if p.LogSearchURL != "" && p.ServiceSlug == "" {
		return malformed("missing checks: service-slug is required for log search links")
	}
	for _, check := range p.Checks {
		for _, team := range check.Teams {
			if _, ok := p.Team(team.TeamID); !ok {
				return malformed("missing checks: tick %d references unknown team %d", check.Tick, team.TeamID)
			}
		}
	}
	return nil
}

// StatusPayload is served by status.json.
type StatusPayload struct {
	Ticks              []int              `json:"ticks"`
	Services           []string           `json:"services"`
	Teams              []StatusTeam       `json:"teams"`
	StatusDescriptions StatusDescriptions `json:"status-descriptions"`
}

// StatusTeam carries, per tick, one status per service.
type StatusTeam struct {
	ID        int             `json:"id"`
	NOP       bool            `json:"nop"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Ticks     [][]CheckStatus `json:"ticks"`
}

// Validate checks the payload shape before rendering.
func (p *StatusPayload) Validate() error {
	for _, team := range p.Teams {
		if team.Name == "" {
			return malformed("status: team %d has no name", team.ID)
		}
		if len(team.Ticks) != len(p.Ticks) {
			return malformed("status: team %q has %d ticks, want %d", team.Name, len(team.Ticks), len(p.Ticks))
		}
		for i, statuses := range team.Ticks {
			if len(statuses) != len(p.Services) {
				return malformed("status: team %q tick %d has %d statuses, want %d",
					team.Name, p.Ticks[i], len(statuses), len(p.Services))
			}
			for _, status := range statuses {
				if !status.Known() {
					return malformed("status: team %q tick %d has unknown status %d", team.Name, p.Ticks[i], status.Code)
				}
			}
		}
	}
	return nil
}

// ScoreboardPayload is served by scoreboard.json.
type ScoreboardPayload struct {
	Tick               *int               `json:"tick"`
	Services           []string           `json:"services,omitempty"`
	Teams              []ScoreboardTeam   `json:"teams"`
	StatusDescriptions StatusDescriptions `json:"status-descriptions"`
}

// ScoreboardTeam is one ranked team.
type ScoreboardTeam struct {
	Rank      int                 `json:"rank"`
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	Image     string              `json:"image,omitempty"`
	Thumbnail string              `json:"thumbnail,omitempty"`
	Services  []ScoreboardService `json:"services"`
	Offense   float64             `json:"offense"`
	Defense   float64             `json:"defense"`
	SLA       float64             `json:"sla"`
	Total     float64             `json:"total"`
}

// ScoreboardService holds the points of a team for a single service.
type ScoreboardService struct {
	Status     CheckStatus `json:"status"`
	Offense    float64     `json:"offense"`
	Defense    float64     `json:"defense"`
	SLA        float64     `json:"sla"`
	Flagstores []Flagstore `json:"flagstores,omitempty"`
}

// Flagstore is encoded as a [status, message] tuple.
type Flagstore struct {
	Status  CheckStatus
	Message string
}

func (f *Flagstore) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("flagstore: %w", err)
	}
	if len(tuple) != 2 {
		return malformed("flagstore: want [status, message], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &f.Status); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &f.Message); err != nil {
		return fmt.Errorf("flagstore message: %w", err)
	}
	return nil
}

func (f Flagstore) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Status, f.Message})
}

// Validate checks the payload shape before rendering.
func (p *ScoreboardPayload) Validate() error {
	if p.Tick == nil {
		return malformed("scoreboard: tick is required")
	}
	width := -1
	for _, team := range p.Teams {
		if team.Name == "" {
			return malformed("scoreboard: team %d has no name", team.ID)
		}
		if width == -1 {
			width = len(team.Services)
		}
		if len(team.Services) != width {
			return malformed("scoreboard: team %q has %d services, want %d", team.Name, len(team.Services), width)
		}
		for i, service := range team.Services {
			if !service.Status.Known() {
				return malformed("scoreboard: team %q service %d has unknown status %d", team.Name, i, service.Status.Code)
			}
			for k, store := range service.Flagstores {
				if !store.Status.Known() {
					return malformed("scoreboard: team %q service %d flagstore %d has unknown status %d",
						team.Name, i, k, store.Status.Code)
				}
			}
		}
	}
	if len(p.Services) > 0 && width >= 0 && len(p.Services) != width {
		return malformed("scoreboard: %d service names for %d service columns", len(p.Services), width)
	}
	return nil
}

// Decode unmarshals data into a payload and validates it.
func Decode[P any, PT interface {
	*P
	Validate() error
}](data []byte) (*P, error) {
	var payload P
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := PT(&payload).Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}
