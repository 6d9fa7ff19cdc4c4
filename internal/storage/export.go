package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/phaselab/internal/dynamo"
)

type ExportData struct {
	Run
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

// ExportJSON writes the run metadata and its finite samples as one
// indented document.
func ExportJSON(w io.Writer, run Run, tr *dynamo.Trajectory) error {
	n := tr.FiniteLen()
	data := ExportData{
		Run:    run,
		Times:  tr.Times[:n],
		States: tr.Points()[:n],
	}
	data.Samples = n
	data.Diverged = tr.Diverged

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
