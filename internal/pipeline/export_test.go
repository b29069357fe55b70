package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-pipeline/internal/model"
)

func TestExportXLSX(t *testing.T) {
	areaID := "area-1"
	leads := []model.Lead{
		{
			ID: "lead-1", Company: "Bäckerei Schmidt", Street: "Hauptstraße 12",
			PostalCode: "10115", City: "Berlin", Phone: "030 1234567",
			Division: "nord", Status: model.LeadStatusNew, PoolStatus: model.PoolStatusInPool,
			AreaID:      &areaID,
			Coordinates: &model.Coordinates{Lat: 52.52, Lon: 13.405},
		},
		{
			ID: "lead-2", Company: "Autohaus Nord", Street: "Ringweg 5",
			City: "Berlin", Division: "nord",
			Status: model.LeadStatusContacted, PoolStatus: model.PoolStatusAssigned,
			AssignedToEmail: "anna@example.com", Verified: true,
		},
	}

	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, ExportXLSX(path, leads))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "Leads", sheet.Name)
	require.Len(t, sheet.Rows, 3) // header plus two leads

	header := sheet.Rows[0]
	assert.Equal(t, "ID", header.Cells[0].String())
	assert.Equal(t, "Company", header.Cells[1].String())

	first := sheet.Rows[1]
	assert.Equal(t, "lead-1", first.Cells[0].String())
	assert.Equal(t, "Bäckerei Schmidt", first.Cells[1].String())
	assert.Equal(t, "area-1", first.Cells[13].String())
	assert.Equal(t, "52.52", first.Cells[14].String())

	second := sheet.Rows[2]
	assert.Equal(t, "anna@example.com", second.Cells[12].String())
	assert.Equal(t, "", second.Cells[14].String())
	assert.Equal(t, "true", second.Cells[16].String())
}
