package pipeline

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-pipeline/internal/model"
)

var exportHeader = []string{
	"ID", "Company", "Street", "Postal Code", "City", "Phone", "Email",
	"Website", "Industry", "Division", "Status", "Pool Status",
	"Assigned To", "Area", "Latitude", "Longitude", "Verified",
}

// ExportXLSX writes the leads to an XLSX workbook at path, one row per lead.
func ExportXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		row.AddCell().SetString(l.ID)
		row.AddCell().SetString(l.Company)
		row.AddCell().SetString(l.Street)
		row.AddCell().SetString(l.PostalCode)
		row.AddCell().SetString(l.City)
		row.AddCell().SetString(l.Phone)
		row.AddCell().SetString(l.Email)
		row.AddCell().SetString(l.Website)
		row.AddCell().SetString(l.Industry)
		row.AddCell().SetString(l.Division)
		row.AddCell().SetString(string(l.Status))
		row.AddCell().SetString(string(l.PoolStatus))
		row.AddCell().SetString(l.AssignedToEmail)
		row.AddCell().SetString(deref(l.AreaID))
		if l.Coordinates != nil {
			row.AddCell().SetString(strconv.FormatFloat(l.Coordinates.Lat, 'f', -1, 64))
			row.AddCell().SetString(strconv.FormatFloat(l.Coordinates.Lon, 'f', -1, 64))
		} else {
			row.AddCell()
			row.AddCell()
		}
		row.AddCell().SetString(strconv.FormatBool(l.Verified))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
