package metrics

import (
	"math"

	"scoreview/internal/models"
)

// TeamAvailability summarises the check results of a team for one service.
type TeamAvailability struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	AvailabilityPct float64 `json:"availability_percent"`
	TotalChecks     int     `json:"total_checks"`
	Checked         int     `json:"checked"`
	OK              int     `json:"ok"`
	Down            int     `json:"down"`
	Faulty          int     `json:"faulty"`
	FlagNotFound    int     `json:"flag_not_found"`
	Recovering      int     `json:"recovering"`
	NotChecked      int     `json:"not_checked"`
	LastStatus      string  `json:"last_status,omitempty"`
	LastCheckedTick *int    `json:"last_checked_tick,omitempty"`
	LastStatusClass string  `json:"last_status_class,omitempty"`
}

// ComputeTeamAvailability aggregates a history payload per team, in payload order.
// Timeouts count as not checked.
func ComputeTeamAvailability(payload *models.HistoryPayload) []TeamAvailability {
	if payload == nil || len(payload.Teams) == 0 {
		return nil
	}
	minTick := 0
	if payload.MinTick != nil {
		minTick = *payload.MinTick
	}

	results := make([]TeamAvailability, 0, len(payload.Teams))
	for _, team := range payload.Teams {
		acc := TeamAvailability{
			ID:          team.ID,
			Name:        team.Name,
			TotalChecks: len(team.Checks),
		}
		for i, check := range team.Checks {
			switch check.Effective() {
			case models.StatusOK:
				acc.OK++
			case models.StatusDown:
				acc.Down++
			case models.StatusFaulty:
				acc.Faulty++
			case models.StatusFlagNotFound:
				acc.FlagNotFound++
			case models.StatusRecovering:
				acc.Recovering++
			default:
				acc.NotChecked++
				continue
			}
			tick := minTick + i
			acc.LastCheckedTick = &tick
			acc.LastStatus = payload.StatusDescriptions.Describe(check)
			acc.LastStatusClass = check.Class()
		}
		acc.Checked = acc.TotalChecks - acc.NotChecked
		if acc.Checked > 0 {
			acc.AvailabilityPct = round2(float64(acc.OK) / float64(acc.Checked) * 100)
		}
		results = append(results, acc)
	}
	return results
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
