package view

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"scoreview/internal/models"
)

// ScoreboardView renders the ranked teams with their per-service points.
type ScoreboardView struct {
	statusPath string

	mu         sync.RWMutex
	header     []HeaderCell
	body       *Container[Row]
	payload    *models.ScoreboardPayload
	renderedAt time.Time
}

// NewScoreboardView creates an empty scoreboard. Service cells link to the team's row
// on statusPath.
func NewScoreboardView(statusPath string) *ScoreboardView {
	proto := Row{Cells: []Cell{
		{Column: ColumnRank, Strong: true},
		{Column: ColumnImage, Image: &Image{}},
		{Column: ColumnName, Strong: true},
		{Column: ColumnServices},
		{Column: ColumnOffense},
		{Column: ColumnDefense},
		{Column: ColumnSLA},
		{Column: ColumnTotal, Strong: true},
	}}
	return &ScoreboardView{statusPath: statusPath, body: NewContainer(proto, Row.Clone)}
}

// Render replaces the scoreboard with the content of a scoreboard payload.
func (v *ScoreboardView) Render(raw []byte) error {
	payload, err := models.Decode[models.ScoreboardPayload](raw)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.header = scoreboardHeader(v.body.Prototype(), payload)
	v.body.Fill(len(payload.Teams), func(i int, row *Row) {
		v.fillRow(row, payload, payload.Teams[i])
	})
	v.payload = payload
	v.renderedAt = time.Now().UTC()
	return nil
}

func scoreboardHeader(proto Row, p *models.ScoreboardPayload) []HeaderCell {
	count := len(p.Services)
	if count == 0 && len(p.Teams) > 0 {
		count = len(p.Teams[0].Services)
	}
	titles := map[string]string{
		ColumnRank:    "#",
		ColumnName:    "Team",
		ColumnOffense: "Offense",
		ColumnDefense: "Defense",
		ColumnSLA:     "SLA",
		ColumnTotal:   "Total",
	}
	header := make([]HeaderCell, 0, len(proto.Cells)+count)
	for _, cell := range proto.Cells {
		if cell.Column != ColumnServices {
			header = append(header, HeaderCell{Text: titles[cell.Column], Labeled: true})
			continue
		}
		for i := 0; i < count; i++ {
			name := fmt.Sprintf("Service %d", i+1)
			if i < len(p.Services) {
				name = p.Services[i]
			}
			header = append(header, HeaderCell{Text: name, Labeled: true, Class: "text-center"})
		}
	}
	return header
}

// fillRow fills the prototype columns in place. The services column is replaced by
// one cell per service at the same position.
func (v *ScoreboardView) fillRow(row *Row, p *models.ScoreboardPayload, team models.ScoreboardTeam) {
	row.ID = teamRowID(team.ID)
	cells := make([]Cell, 0, len(row.Cells)+len(team.Services))
	for _, cell := range row.Cells {
		switch cell.Column {
		case ColumnRank:
			cell.Text = strconv.Itoa(team.Rank) + "."
		case ColumnImage:
			fillTeamImage(&cell, team.Name, team.Image, team.Thumbnail)
		case ColumnName:
			cell.Text = team.Name
		case ColumnServices:
			for i, service := range team.Services {
				cells = append(cells, v.serviceCell(i, team.ID, service, p.StatusDescriptions))
			}
			continue
		case ColumnOffense:
			cell.Text = points(team.Offense)
		case ColumnDefense:
			cell.Text = points(team.Defense)
		case ColumnSLA:
			cell.Text = points(team.SLA)
		case ColumnTotal:
			cell.Text = points(team.Total)
		}
		cells = append(cells, cell)
	}
	row.Cells = cells
}

func (v *ScoreboardView) serviceCell(idx, teamID int, service models.ScoreboardService, descriptions models.StatusDescriptions) Cell {
	cell := Cell{
		Column: fmt.Sprintf("service-%d", idx),
		Link:   v.statusPath + "#" + teamRowID(teamID),
		Parts: []Part{
			{Title: "Offense", Text: points(service.Offense)},
			{Title: "Defense", Text: points(service.Defense)},
			{Title: "SLA", Text: points(service.SLA)},
		},
	}
	if service.Status.Unset {
		return cell
	}
	for i, store := range service.Flagstores {
		content := store.Message
		if content == "" {
			content = "up"
		}
		cell.Parts = append(cell.Parts, Part{
			Icon:    store.Status.Effective().FlagstoreIcon(),
			Title:   fmt.Sprintf("Flagstore %d", i+1),
			Content: content,
		})
	}
	class := service.Status.Class()
	cell.Parts = append(cell.Parts, Part{Text: descriptions.Describe(service.Status), Class: "text-" + class})
	cell.Class = class
	return cell
}

func points(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Page returns a snapshot of the scoreboard.
func (v *ScoreboardView) Page() Page {
	v.mu.RLock()
	defer v.mu.RUnlock()

	page := Page{
		Kind:       KindScoreboard,
		Title:      "Scoreboard",
		Header:     v.header,
		Rows:       v.body.Items,
		Hidden:     v.body.Hidden,
		RenderedAt: v.renderedAt,
	}
	if v.payload != nil {
		page.Tick = intPtr(*v.payload.Tick)
	}
	return page
}
