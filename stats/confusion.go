package stats

import (
	"fmt"
	"html/template"
)

// Confusion is a 2x2 count matrix for a binary classifier, indexed by
// [true label][predicted label].
type Confusion [2][2]int

// Add increments the count for one (true label, predicted label) pair.
// Labels outside {0,1} panic since they indicate a bug upstream.
func (c *Confusion) Add(label, pred int) {
	c[label][pred]++
}

// Total is the number of examples counted.
func (c Confusion) Total() int {
	return c[0][0] + c[0][1] + c[1][0] + c[1][1]
}

// Accuracy is the percentage of examples on the diagonal.
func (c Confusion) Accuracy() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return 100 * float64(c[0][0]+c[1][1]) / float64(total)
}

func (c Confusion) String() string {
	return fmt.Sprintf("            pred 0  pred 1\n"+
		"actual 0  %8d%8d\n"+
		"actual 1  %8d%8d\n", c[0][0], c[0][1], c[1][0], c[1][1])
}

// HTML renders the matrix as a table for the web dashboard.
func (c Confusion) HTML() template.HTML {
	s := `<table class="confusion"><tr><th></th><th>pred 0</th><th>pred 1</th></tr>`
	for label := 0; label < 2; label++ {
		s += fmt.Sprintf("<tr><th>actual %d</th><td>%d</td><td>%d</td></tr>",
			label, c[label][0], c[label][1])
	}
	s += "</table>"
	return template.HTML(s)
}
