package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/motioncore/internal/trace"
)

type ExportData struct {
	Meta    RunMetadata    `json:"meta"`
	Samples []trace.Sample `json:"samples"`
}

// ExportJSON writes a run and its samples to path, or to stdout when path
// is empty or "-".
func ExportJSON(path string, meta RunMetadata, samples []trace.Sample) error {
	if path == "" || path == "-" {
		return encodeExport(os.Stdout, meta, samples)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return encodeExport(file, meta, samples)
}

// ExportCSV writes samples in the samples.csv layout to path, or to
// stdout when path is empty or "-".
func ExportCSV(path string, samples []trace.Sample) error {
	if path == "" || path == "-" {
		return encodeSamples(os.Stdout, samples)
	}
	return writeSamples(path, samples)
}

func encodeExport(w io.Writer, meta RunMetadata, samples []trace.Sample) error {
	if samples == nil {
		samples = []trace.Sample{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Meta: meta, Samples: samples})
}
