// Package console prints rendered pages to a terminal.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"scoreview/internal/view"
)

const (
	columnGap   = 2
	checkMarker = "■"
	storeMarker = "●"
)

// Printer renders pages with colours matching the status classes.
type Printer struct {
	title   lipgloss.Style
	header  lipgloss.Style
	strong  lipgloss.Style
	dim     lipgloss.Style
	plain   lipgloss.Style
	column  lipgloss.Style
	classes map[string]lipgloss.Style
}

// New creates a printer whose colour profile is detected from w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	color := func(hex string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(hex))
	}
	return &Printer{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA")),
		strong: r.NewStyle().Bold(true),
		dim:    color("#6C7086"),
		plain:  r.NewStyle(),
		column: r.NewStyle().PaddingRight(columnGap),
		classes: map[string]lipgloss.Style{
			"success": color("#A6E3A1"),
			"danger":  color("#F38BA8"),
			"warning": color("#F9E2AF"),
			"info":    color("#89DCEB"),
			"muted":   color("#6C7086"),
			"active":  color("#CBA6F7"),
		},
	}
}

// Fprint writes the rendering of page to w.
func (p *Printer) Fprint(w io.Writer, page view.Page) error {
	_, err := io.WriteString(w, p.Render(page))
	return err
}

// Render returns the page as text.
func (p *Printer) Render(page view.Page) string {
	var b strings.Builder
	b.WriteString(p.title.Render(p.heading(page)))
	b.WriteString("\n")
	if page.Hidden {
		b.WriteString(p.dim.Render("no content"))
		b.WriteString("\n")
		return b.String()
	}

	switch {
	case len(page.Items) > 0 || page.Kind == view.KindMissingChecks:
		p.renderList(&b, page.Items)
	default:
		p.renderTable(&b, page)
	}
	if len(page.Summary) > 0 {
		b.WriteString("\n")
		p.renderSummary(&b, page)
	}
	return b.String()
}

func (p *Printer) heading(page view.Page) string {
	title := page.Title
	if title == "" {
		title = page.Kind
	}
	switch {
	case page.Tick != nil:
		return fmt.Sprintf("%s (tick %d)", title, *page.Tick)
	case page.MinTick != nil && page.MaxTick != nil:
		return fmt.Sprintf("%s (ticks %d-%d)", title, *page.MinTick, *page.MaxTick)
	default:
		return title
	}
}

func (p *Printer) renderTable(b *strings.Builder, page view.Page) {
	var skip []bool
	grid := make([][]string, 0, len(page.Rows)+1)

	header := make([]string, 0, len(page.Header))
	if len(page.Rows) > 0 {
		for _, cell := range page.Rows[0].Cells {
			skip = append(skip, cell.Column == view.ColumnImage)
		}
	}
	for _, h := range page.Header {
		text := ""
		if h.Labeled {
			text = p.header.Render(h.Text)
		}
		header = append(header, text)
	}
	grid = append(grid, header)

	for _, row := range page.Rows {
		line := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			line = append(line, p.cell(cell))
		}
		grid = append(grid, line)
	}
	p.writeGrid(b, grid, skip)
}

// Table renders a plain grid with a styled header row.
func (p *Printer) Table(header []string, rows [][]string) string {
	grid := make([][]string, 0, len(rows)+1)
	styled := make([]string, len(header))
	for i, h := range header {
		styled[i] = p.header.Render(h)
	}
	grid = append(grid, styled)
	grid = append(grid, rows...)

	var b strings.Builder
	p.writeGrid(&b, grid, nil)
	return b.String()
}

// writeGrid lays out grid as borderless columns, dropping the skipped ones.
func (p *Printer) writeGrid(b *strings.Builder, grid [][]string, skip []bool) {
	rows := make([][]string, 0, len(grid))
	for _, line := range grid {
		kept := make([]string, 0, len(line))
		for i, text := range line {
			if i < len(skip) && skip[i] {
				continue
			}
			kept = append(kept, text)
		}
		rows = append(rows, kept)
	}
	if len(rows) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(_, _ int) lipgloss.Style { return p.column }).
		Rows(rows...)
	for _, line := range strings.Split(strings.TrimRight(t.String(), "\n"), "\n") {
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
}

func (p *Printer) cell(cell view.Cell) string {
	if len(cell.Parts) > 0 {
		return p.parts(cell.Parts)
	}
	text := cell.Text
	if text == "" && cell.Class != "" {
		text = checkMarker
	}
	style := p.class(cell.Class)
	if cell.Strong {
		style = style.Bold(true)
	}
	return style.Render(text)
}

func (p *Printer) parts(parts []view.Part) string {
	var b strings.Builder
	for i, part := range parts {
		switch {
		case part.Icon != "":
			b.WriteString(p.class(iconClass(part.Icon)).Render(storeMarker))
			if part.Content != "" {
				b.WriteString(" " + part.Content)
			}
		case part.Strong:
			b.WriteString(p.strong.Render(part.Text))
		default:
			b.WriteString(p.class(part.Class).Render(part.Text))
		}
		if (part.Break || part.Title != "") && i != len(parts)-1 {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func (p *Printer) renderList(b *strings.Builder, items []view.ListItem) {
	if len(items) == 0 {
		b.WriteString(p.dim.Render("nothing missing"))
		b.WriteString("\n")
		return
	}
	for _, item := range items {
		b.WriteString(p.strong.Render(item.Prefix))
		b.WriteString(p.parts(item.Parts))
		b.WriteString("\n")
	}
}

func (p *Printer) renderSummary(b *strings.Builder, page view.Page) {
	grid := [][]string{{p.header.Render("Team"), p.header.Render("Availability"), p.header.Render("OK/Checked"), p.header.Render("Last")}}
	for _, team := range page.Summary {
		grid = append(grid, []string{
			team.Name,
			fmt.Sprintf("%.2f%%", team.AvailabilityPct),
			fmt.Sprintf("%d/%d", team.OK, team.Checked),
			p.class(team.LastStatusClass).Render(team.LastStatus),
		})
	}
	p.writeGrid(b, grid, nil)
}

// class resolves "success" as well as "text-success".
func (p *Printer) class(class string) lipgloss.Style {
	if style, ok := p.classes[strings.TrimPrefix(class, "text-")]; ok {
		return style
	}
	return p.plain
}

// iconClass extracts the colour class from flagstore icon classes.
func iconClass(icon string) string {
	for _, field := range strings.Fields(icon) {
		if strings.HasPrefix(field, "text-") {
			return field
		}
	}
	return ""
}
