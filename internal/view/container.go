// Package view maps gameserver payloads to view models. Rendering to HTML, JSON or a
// terminal happens elsewhere; this package only decides what goes into which cell.
package view

// Container holds a prototype item and the items generated from it. The prototype is
// never part of Items: every render pass discards the previous items and clones the
// prototype once per record, in record order.
type Container[T any] struct {
	Items  []T  `json:"items"`
	Hidden bool `json:"hidden"`

	proto T
	clone func(T) T
}

// NewContainer creates a hidden container around proto.
func NewContainer[T any](proto T, clone func(T) T) *Container[T] {
	return &Container[T]{proto: proto, clone: clone, Hidden: true}
}

// Prototype returns a copy of the prototype.
func (c *Container[T]) Prototype() T {
	return c.clone(c.proto)
}

// Fill replaces the content with n clones of the prototype, each passed to fill, and
// reveals the container.
func (c *Container[T]) Fill(n int, fill func(i int, item *T)) {
	items := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item := c.clone(c.proto)
		fill(i, &item)
		items = append(items, item)
	}
	c.Items = items
	c.Hidden = false
}

// Image is a linked thumbnail.
type Image struct {
	Href string `json:"href"`
	Src  string `json:"src"`
	Alt  string `json:"alt"`
}

// Part is an inline fragment of a cell or list item.
type Part struct {
	Text    string `json:"text,omitempty"`
	Class   string `json:"class,omitempty"`
	Link    string `json:"link,omitempty"`
	Icon    string `json:"icon,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Strong  bool   `json:"strong,omitempty"`
	Break   bool   `json:"break,omitempty"`
}

// Cell is one table cell. Column identifies the prototype column it was filled from.
type Cell struct {
	Column string `json:"column"`
	Text   string `json:"text,omitempty"`
	Strong bool   `json:"strong,omitempty"`
	Class  string `json:"class,omitempty"`
	Title  string `json:"title,omitempty"`
	Link   string `json:"link,omitempty"`
	Image  *Image `json:"image,omitempty"`
	Parts  []Part `json:"parts,omitempty"`
}

// Row is one table row.
type Row struct {
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
	Cells []Cell `json:"cells"`
}

// Clone deep copies the row.
func (r Row) Clone() Row {
	out := Row{ID: r.ID, Class: r.Class, Cells: make([]Cell, len(r.Cells))}
	for i, cell := range r.Cells {
		out.Cells[i] = cell.clone()
	}
	return out
}

// Cell returns the cell of column, or nil.
func (r *Row) Cell(column string) *Cell {
	for i := range r.Cells {
		if r.Cells[i].Column == column {
			return &r.Cells[i]
		}
	}
	return nil
}

func (c Cell) clone() Cell {
	out := c
	if c.Image != nil {
		img := *c.Image
		out.Image = &img
	}
	if c.Parts != nil {
		out.Parts = append([]Part(nil), c.Parts...)
	}
	return out
}

// HeaderCell is a column header. Tick is set for tick columns.
type HeaderCell struct {
	Text    string `json:"text"`
	Tick    *int   `json:"tick,omitempty"`
	Labeled bool   `json:"labeled"`
	Class   string `json:"class,omitempty"`
}

// ListItem is one entry of a list view.
type ListItem struct {
	ID     string `json:"id,omitempty"`
	Prefix string `json:"prefix"`
	Parts  []Part `json:"parts"`
}

// Clone deep copies the item.
func (li ListItem) Clone() ListItem {
	out := li
	out.Parts = append([]Part(nil), li.Parts...)
	return out
}
