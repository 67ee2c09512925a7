package statelookup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
)

// stateBoundariesURL serves the GADM 4.1 administrative areas for
// Germany as a zipped shapefile in geographic WGS84 coordinates.
const stateBoundariesURL = "https://geodata.ucdavis.edu/gadm/gadm4.1/shp/gadm41_DEU_shp.zip"

// stateShapeBase names the level 1 layer inside the archive, one
// polygon record per federal state.
const stateShapeBase = "gadm41_DEU_1"

// stateNameField is the DBF index of the NAME_1 attribute.
const stateNameField = 3

// Ensure populates the boundary cache. An already populated cache is
// left untouched, otherwise the shapefile archive is downloaded,
// extracted and converted.
func (l *Lookup) Ensure(ctx context.Context) error {
	count, err := l.count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	l.logger.Info("state boundaries missing, downloading", "url", l.url)

	workDir, err := os.MkdirTemp("", "statelookup-")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	zipPath := filepath.Join(workDir, "boundaries.zip")
	if err := l.download(ctx, zipPath); err != nil {
		return fmt.Errorf("downloading state boundaries: %w", err)
	}
	if err := unzip(zipPath, workDir); err != nil {
		return fmt.Errorf("extracting state boundaries: %w", err)
	}

	inserted, err := l.build(filepath.Join(workDir, stateShapeBase+".shp"))
	if err != nil {
		return fmt.Errorf("building state areas: %w", err)
	}
	l.logger.Info("state boundaries provisioned", "states", inserted)
	return nil
}

func (l *Lookup) download(ctx context.Context, zipPath string) error {
	data, err := l.client.Get(ctx, l.url, nil, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(zipPath, data, 0o644)
}

// unzip extracts src into dest, refusing entries that would escape
// the destination directory.
func unzip(src, dest string) error {
	archive, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, f := range archive.File {
		path := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal archive path: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}
		in, err := f.Open()
		if err != nil {
			out.Close()
			return err
		}
		_, err = io.Copy(out, in)
		out.Close()
		in.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// build reads the state polygons from the shapefile and stores each
// one with its bounding box.
func (l *Lookup) build(shapePath string) (int, error) {
	shape, err := shp.Open(shapePath)
	if err != nil {
		return 0, fmt.Errorf("opening shapefile: %w", err)
	}
	defer shape.Close()

	tx, err := l.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO state_areas
		(name, rings, bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for shape.Next() {
		n, p := shape.Shape()
		polygon, ok := p.(*shp.Polygon)
		if !ok {
			continue
		}
		name := shape.ReadAttribute(n, stateNameField)
		if name == "" {
			continue
		}

		ringsJSON, err := json.Marshal(polygonRings(polygon))
		if err != nil {
			return 0, fmt.Errorf("encoding rings for %s: %w", name, err)
		}
		bbox := polygon.BBox()
		if _, err := stmt.Exec(name, string(ringsJSON),
			bbox.MinY, bbox.MaxY, bbox.MinX, bbox.MaxX); err != nil {
			return 0, fmt.Errorf("inserting state %s: %w", name, err)
		}
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("no state polygons in %s", filepath.Base(shapePath))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing state areas: %w", err)
	}
	return count, nil
}

// polygonRings splits a shapefile polygon into its parts. All parts
// are kept: the coastal states carry their islands as extra rings and
// the city states punch holes into their neighbors.
func polygonRings(polygon *shp.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(polygon.Parts))
	for partIdx := 0; partIdx < len(polygon.Parts); partIdx++ {
		start := int(polygon.Parts[partIdx])
		end := len(polygon.Points)
		if partIdx+1 < len(polygon.Parts) {
			end = int(polygon.Parts[partIdx+1])
		}

		ring := make([][]float64, 0, end-start)
		for i := start; i < end; i++ {
			ring = append(ring, []float64{polygon.Points[i].X, polygon.Points[i].Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
