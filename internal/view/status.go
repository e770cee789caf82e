package view

import (
	"sync"
	"time"

	"scoreview/internal/models"
)

// StatusView renders the service states of every team for the last few ticks.
type StatusView struct {
	density Density

	mu         sync.RWMutex
	header     []HeaderCell
	body       *Container[Row]
	payload    *models.StatusPayload
	renderedAt time.Time
}

// NewStatusView creates an empty status table. The prototype row is styled as a NOP
// team; regular teams drop the class.
func NewStatusView(density Density) *StatusView {
	proto := Row{
		Class: "nop",
		Cells: []Cell{
			{Column: ColumnImage, Image: &Image{}},
			{Column: ColumnName, Strong: true},
		},
	}
	return &StatusView{density: density, body: NewContainer(proto, Row.Clone)}
}

// Render replaces the table with the content of a status payload.
func (v *StatusView) Render(raw []byte) error {
	payload, err := models.Decode[models.StatusPayload](raw)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.header = append([]HeaderCell{{}, {Text: "Team", Labeled: true}}, v.density.ListHeaders(payload.Ticks)...)
	v.body.Fill(len(payload.Teams), func(i int, row *Row) {
		fillStatusRow(row, payload, payload.Teams[i])
	})
	v.payload = payload
	v.renderedAt = time.Now().UTC()
	return nil
}

func fillStatusRow(row *Row, p *models.StatusPayload, team models.StatusTeam) {
	row.ID = teamRowID(team.ID)
	if !team.NOP {
		row.Class = ""
	}
	if cell := row.Cell(ColumnImage); cell != nil {
		fillTeamImage(cell, team.Name, team.Image, team.Thumbnail)
	}
	if cell := row.Cell(ColumnName); cell != nil {
		cell.Text = team.Name
	}
	for i, statuses := range team.Ticks {
		cell := Cell{Column: tickColumn(p.Ticks[i])}
		for j, status := range statuses {
			cell.Parts = append(cell.Parts,
				Part{Text: p.Services[j] + ": "},
				Part{Text: p.StatusDescriptions.Describe(status), Class: "text-" + status.Class(), Break: true},
			)
		}
		row.Cells = append(row.Cells, cell)
	}
}

// fillTeamImage empties the cell when the team has no image.
func fillTeamImage(cell *Cell, name, image, thumbnail string) {
	if image == "" {
		cell.Image = nil
		return
	}
	cell.Image = &Image{Href: image, Src: thumbnail, Alt: name}
}

// Page returns a snapshot of the table.
func (v *StatusView) Page() Page {
	v.mu.RLock()
	defer v.mu.RUnlock()

	page := Page{
		Kind:       KindStatus,
		Title:      "Service Status",
		Header:     v.header,
		Rows:       v.body.Items,
		Hidden:     v.body.Hidden,
		RenderedAt: v.renderedAt,
	}
	if v.payload != nil && len(v.payload.Ticks) > 0 {
		page.MinTick = intPtr(v.payload.Ticks[0])
		page.MaxTick = intPtr(v.payload.Ticks[len(v.payload.Ticks)-1])
	}
	return page
}
