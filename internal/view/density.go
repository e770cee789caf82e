package view

import "strconv"

// Density decides which tick columns get a label. Every column is always rendered.
type Density struct {
	Threshold int `yaml:"threshold" json:"threshold"`
	Step      int `yaml:"step" json:"step"`
}

// DefaultDensity labels every tick for ranges up to 30 ticks and every fifth beyond.
func DefaultDensity() Density {
	return Density{Threshold: 30, Step: 5}
}

// Labeled reports whether tick gets a label in a range spanning width ticks.
func (d Density) Labeled(tick, width int) bool {
	if d.Step <= 1 || width <= d.Threshold {
		return true
	}
	return tick%d.Step == 0
}

// TickHeaders returns one header per tick in [minTick, maxTick].
func (d Density) TickHeaders(minTick, maxTick int) []HeaderCell {
	if maxTick < minTick {
		return nil
	}
	width := maxTick - minTick
	headers := make([]HeaderCell, 0, width+1)
	for tick := minTick; tick <= maxTick; tick++ {
		headers = append(headers, d.header(tick, width))
	}
	return headers
}

// ListHeaders labels an explicit list of ticks.
func (d Density) ListHeaders(ticks []int) []HeaderCell {
	if len(ticks) == 0 {
		return nil
	}
	width := ticks[len(ticks)-1] - ticks[0]
	headers := make([]HeaderCell, 0, len(ticks))
	for _, tick := range ticks {
		headers = append(headers, d.header(tick, width))
	}
	return headers
}

func (d Density) header(tick, width int) HeaderCell {
	t := tick
	h := HeaderCell{Tick: &t, Class: "text-center"}
	if d.Labeled(tick, width) {
		h.Text = strconv.Itoa(tick)
		h.Labeled = true
	}
	return h
}
