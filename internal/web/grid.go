package web

import (
	"fmt"

	"github.com/sweeney/port-monitor/internal/ports"
)

const gridCols = 10

// Cell states, also used as CSS classes.
const (
	cellHigh    = "high"
	cellLow     = "low"
	cellAnalog  = "analog"
	cellUnknown = "unknown"
	cellNone    = "none" // past the last channel of the class
)

type cell struct {
	Port     string
	Label    string
	State    string
	Shade    int // analog grey level, 255 is white
	Accessed bool
	Value    int
}

type gridRow struct {
	Heading string // "00", "10", ...
	Cells   []cell
}

type grid struct {
	Title string
	Cols  []int
	Rows  []gridRow
}

// buildGrid lays out one class as rows of ten, padding the last row.
func buildGrid(store *ports.Store, class ports.Class, labels map[ports.Channel]string) grid {
	count := class.Count()
	rows := (count + gridCols - 1) / gridCols

	g := grid{Title: "D"}
	if class == ports.Analog {
		g.Title = "A"
	}
	for c := 0; c < gridCols; c++ {
		g.Cols = append(g.Cols, c)
	}

	for r := 0; r < rows; r++ {
		row := gridRow{Heading: fmt.Sprintf("%d0", r)}
		for c := 0; c < gridCols; c++ {
			index := r*gridCols + c
			if index >= count {
				row.Cells = append(row.Cells, cell{State: cellNone})
				continue
			}
			ch := ports.Channel{Class: class, Index: index}
			row.Cells = append(row.Cells, buildCell(ch, store.View(class, index), labels[ch]))
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

func buildCell(ch ports.Channel, v ports.View, label string) cell {
	c := cell{Port: ch.String(), Label: label, Accessed: v.Accessed, Value: v.Value}
	switch {
	case !v.Configured:
		c.State = cellUnknown
	case ch.Class == ports.Analog:
		c.State = cellAnalog
		c.Shade = analogShade(v.Value)
	case v.Value == 1:
		c.State = cellHigh
	default:
		c.State = cellLow
	}
	return c
}

// analogShade maps a decoded analog value onto a grey level, darker for
// higher readings.
func analogShade(value int) int {
	shade := 255 - value/4
	if shade < 0 {
		return 0
	}
	return shade
}
