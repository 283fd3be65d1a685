package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPDF(t *testing.T) {
	exporter := NewPDFExporter()

	data := Dataset{
		Headers: []string{"Field", "Value"},
		Rows: []map[string]string{
			{"Field": "Name", "Value": "Quarterly Skills"},
			{"Field": "Status", "Value": "ACTIVE"},
		},
	}
	document, err := exporter.Render(data, "Campaign Summary")
	require.NoError(t, err)
	assert.True(t, len(document) > 4)
	assert.Equal(t, "%PDF", string(document[:4]))
}

func TestRenderMultiSections(t *testing.T) {
	exporter := NewPDFExporter()

	document, err := exporter.RenderMulti([]Section{
		{Title: "Summary", Data: Dataset{Headers: []string{"Field", "Value"}, Rows: []map[string]string{{"Field": "Name", "Value": "Pulse"}}}},
		{Title: "Roster", Data: Dataset{Headers: []string{"Employee", "Status"}, Rows: []map[string]string{{"Employee": "Alex", "Status": "ASSIGNED"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(document[:4]))
}

func TestRenderMultiRejectsEmptyInput(t *testing.T) {
	exporter := NewPDFExporter()

	_, err := exporter.RenderMulti(nil)
	assert.Error(t, err)

	_, err = exporter.RenderMulti([]Section{{Title: "No Columns"}})
	assert.Error(t, err)
}
