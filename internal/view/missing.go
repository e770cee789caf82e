package view

import (
	"fmt"
	"sync"
	"time"

	"scoreview/internal/models"
)

// MissingChecksView lists, per tick, the teams a service has no result for.
type MissingChecksView struct {
	mu         sync.RWMutex
	list       *Container[ListItem]
	payload    *models.MissingChecksPayload
	renderedAt time.Time
}

// NewMissingChecksView creates an empty list.
func NewMissingChecksView() *MissingChecksView {
	return &MissingChecksView{list: NewContainer(ListItem{}, ListItem.Clone)}
}

// Render replaces the list with the content of a missing-checks payload.
func (v *MissingChecksView) Render(raw []byte) error {
	payload, err := models.Decode[models.MissingChecksPayload](raw)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.list.Fill(len(payload.Checks), func(i int, item *ListItem) {
		fillMissingItem(item, payload, payload.Checks[i])
	})
	v.payload = payload
	v.renderedAt = time.Now().UTC()
	return nil
}

func fillMissingItem(item *ListItem, p *models.MissingChecksPayload, check models.MissingTick) {
	item.ID = fmt.Sprintf("tick-%d", check.Tick)
	item.Prefix = fmt.Sprintf("Tick %d: ", check.Tick)
	for i, entry := range check.Teams {
		team, _ := p.Team(entry.TeamID)
		part := Part{Text: fmt.Sprintf("%s (%d)", team.Name, team.NetNumber)}
		if p.LogSearchURL != "" {
			part.Link = LogSearchLink(p.LogSearchURL, serviceLogFilter(p.ServiceSlug, team.NetNumber, check.Tick))
			if entry.Timeout {
				part.Class = "text-muted"
			}
		}
		item.Parts = append(item.Parts, part)
		if i != len(check.Teams)-1 {
			item.Parts = append(item.Parts, Part{Text: ", "})
		}
	}
}

// TickRange returns the tick range of the last render.
func (v *MissingChecksView) TickRange() (int, int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.payload == nil {
		return 0, 0, false
	}
	return *v.payload.MinTick, *v.payload.MaxTick, true
}

// Page returns a snapshot of the list.
func (v *MissingChecksView) Page() Page {
	v.mu.RLock()
	defer v.mu.RUnlock()

	page := Page{
		Kind:       KindMissingChecks,
		Items:      v.list.Items,
		Hidden:     v.list.Hidden,
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
