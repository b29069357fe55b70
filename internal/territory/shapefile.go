package territory

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// FromShapefile derives a new Area from a drawn-region shapefile: the
// bounding box is the union of all shape extents. The street list is derived
// separately and passed in by the caller.
func FromShapefile(path, name, city string, streets []string) (*model.Area, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "territory: open shapefile %s", path)
	}
	defer func() { _ = r.Close() }()

	var (
		box   shp.Box
		first = true
	)
	for r.Next() {
		_, shape := r.Shape()
		if shape == nil {
			continue
		}
		b := shape.BBox()
		if first {
			box = b
			first = false
			continue
		}
		if b.MinX < box.MinX {
			box.MinX = b.MinX
		}
		if b.MinY < box.MinY {
			box.MinY = b.MinY
		}
		if b.MaxX > box.MaxX {
			box.MaxX = b.MaxX
		}
		if b.MaxY > box.MaxY {
			box.MaxY = b.MaxY
		}
	}
	if err := r.Err(); err != nil {
		return nil, eris.Wrap(err, "territory: read shapefile")
	}
	if first {
		return nil, eris.Errorf("territory: shapefile %s holds no shapes", path)
	}

	return &model.Area{
		Name: name,
		City: city,
		Bounds: model.BoundingBox{
			North: box.MaxY,
			South: box.MinY,
			East:  box.MaxX,
			West:  box.MinX,
		},
		Streets: streets,
	}, nil
}
