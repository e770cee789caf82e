package view

import (
	"sync"
	"time"

	"scoreview/internal/metrics"
	"scoreview/internal/models"
)

// HistoryView renders the check history of one service as a team x tick matrix.
type HistoryView struct {
	density Density

	mu         sync.RWMutex
	header     []HeaderCell
	body       *Container[Row]
	payload    *models.HistoryPayload
	summary    []metrics.TeamAvailability
	renderedAt time.Time
}

// NewHistoryView creates an empty history matrix.
func NewHistoryView(density Density) *HistoryView {
	proto := Row{Cells: []Cell{{Column: ColumnName}}}
	return &HistoryView{density: density, body: NewContainer(proto, Row.Clone)}
}

// Render replaces the matrix with the content of a service-history payload.
func (v *HistoryView) Render(raw []byte) error {
	payload, err := models.Decode[models.HistoryPayload](raw)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.header = append([]HeaderCell{{}}, v.density.TickHeaders(*payload.MinTick, *payload.MaxTick)...)
	v.body.Fill(len(payload.Teams), func(i int, row *Row) {
		fillHistoryRow(row, payload, payload.Teams[i])
	})
	v.payload = payload
	v.summary = metrics.ComputeTeamAvailability(payload)
	v.renderedAt = time.Now().UTC()
	return nil
}

func fillHistoryRow(row *Row, p *models.HistoryPayload, team models.HistoryTeam) {
	row.ID = teamRowID(team.ID)
	if cell := row.Cell(ColumnName); cell != nil {
		cell.Text = team.Name
	}
	for i, check := range team.Checks {
		tick := *p.MinTick + i
		cell := Cell{
			Column: tickColumn(tick),
			Class:  check.Class(),
			Title:  p.StatusDescriptions.Describe(check),
		}
		if p.LogSearchURL != "" {
			cell.Link = LogSearchLink(p.LogSearchURL, checkerLogFilter(p.ServiceSlug, team.ID, tick))
		}
		row.Cells = append(row.Cells, cell)
	}
}

// TickRange returns the tick range of the last render.
func (v *HistoryView) TickRange() (int, int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.payload == nil {
		return 0, 0, false
	}
	return *v.payload.MinTick, *v.payload.MaxTick, true
}

// Page returns a snapshot of the matrix.
func (v *HistoryView) Page() Page {
	v.mu.RLock()
	defer v.mu.RUnlock()

	page := Page{
		Kind:       KindHistory,
		Header:     v.header,
		Rows:       v.body.Items,
		Summary:    v.summary,
		Hidden:     v.body.Hidden,
		RenderedAt: v.renderedAt,
	}
	if v.payload != nil {
		page.Title = v.payload.ServiceName
		page.Slug = v.payload.ServiceSlug
		page.MinTick = intPtr(*v.payload.MinTick)
		page.MaxTick = intPtr(*v.payload.MaxTick)
	}
	return page
}
