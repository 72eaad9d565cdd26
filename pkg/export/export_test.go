package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Subject", "Attended", "Total"},
		Rows: []map[string]string{
			{"Subject": "Physics", "Attended": "3", "Total": "4"},
			{"Subject": "Maths, Applied", "Attended": "1"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	exporter := &CSVExporter{}
	out, err := exporter.Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Subject,Attended,Total\nPhysics,3,4\n\"Maths, Applied\",1,\n", string(out))
}

func TestCSVExporterBOM(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("\ufeff")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x", "")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC) }

	out, err := exporter.Render(sampleDataset(), "Attendance", "user-1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
