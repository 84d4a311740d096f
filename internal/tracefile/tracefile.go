// Package tracefile reads and writes traced outlines as YAML.
//
// A trace file holds one or more YAML documents of the form:
//
//	id: NZ-042
//	name: Notchy
//	damage_category: Tip-Nick
//	image: nz042_2019.jpg
//	features: {begin_le: 0, tip: 57, end_le: 80, notch: 96, end_te: 140}
//	points: [[12.5, 301.0], [13.1, 298.4], ...]
package tracefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"finmatch/internal/catalog"
	"finmatch/internal/contour"
	"finmatch/internal/fileutil"
)

// File is one traced outline with its identifying metadata.
type File struct {
	ID             string           `yaml:"id"`
	Name           string           `yaml:"name,omitempty"`
	DamageCategory string           `yaml:"damage_category,omitempty"`
	Image          string           `yaml:"image,omitempty"`
	Features       contour.Features `yaml:"features"`
	Points         [][2]float64     `yaml:"points,flow"`
}

// Load reads every document in the file at path.
func Load(path string) ([]File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	files, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: no traces", filepath.Base(path))
	}
	for i := range files {
		if strings.TrimSpace(files[i].ID) == "" {
			files[i].ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if len(files) > 1 {
				files[i].ID = fmt.Sprintf("%s-%d", files[i].ID, i+1)
			}
		}
	}
	return files, nil
}

// Decode reads a stream of YAML trace documents.
func Decode(r io.Reader) ([]File, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var files []File
	for {
		var file File
		err := decoder.Decode(&file)
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse trace %d: %w", len(files)+1, err)
		}
		files = append(files, file)
	}
}

// Encode writes files as a multi-document YAML stream.
func Encode(w io.Writer, files ...File) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	for _, file := range files {
		if err := encoder.Encode(file); err != nil {
			return fmt.Errorf("encode trace %s: %w", file.ID, err)
		}
	}
	return encoder.Close()
}

// Save writes files to path, replacing any existing content.
func Save(path string, files ...File) error {
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, files...)
	})
	if err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	return nil
}

// Contour builds a validated contour from the trace. Consecutive duplicate
// points are collapsed first; a positive simplifyTolerance then thins the
// outline while keeping every landmark.
func (f File) Contour(simplifyTolerance float64) (*contour.Contour, error) {
	points := make([]contour.Point, len(f.Points))
	for i, p := range f.Points {
		points[i] = contour.Point{X: p[0], Y: p[1]}
	}
	points, features := contour.Collapse(points, f.Features)
	c, err := contour.New(points, features)
	if err != nil {
		return nil, fmt.Errorf("trace %s: %w", f.ID, err)
	}
	simplified, err := c.Simplify(simplifyTolerance)
	if err != nil {
		return nil, fmt.Errorf("trace %s: simplify: %w", f.ID, err)
	}
	return simplified, nil
}

// Entry converts the trace into a catalog entry.
func (f File) Entry(simplifyTolerance float64) (catalog.Entry, error) {
	c, err := f.Contour(simplifyTolerance)
	if err != nil {
		return catalog.Entry{}, err
	}
	return catalog.Entry{
		IndividualID:   strings.TrimSpace(f.ID),
		Name:           strings.TrimSpace(f.Name),
		DamageCategory: strings.TrimSpace(f.DamageCategory),
		ImageFilename:  strings.TrimSpace(f.Image),
		Contour:        c,
	}, nil
}

// FromEntry converts a catalog entry back into a trace document.
func FromEntry(entry catalog.Entry) (File, error) {
	features, err := entry.Contour.Features()
	if err != nil {
		return File{}, fmt.Errorf("entry %s: %w", entry.IndividualID, err)
	}
	points := entry.Contour.Points()
	pairs := make([][2]float64, len(points))
	for i, p := range points {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	return File{
		ID:             entry.IndividualID,
		Name:           entry.Name,
		DamageCategory: entry.DamageCategory,
		Image:          entry.ImageFilename,
		Features:       features,
		Points:         pairs,
	}, nil
}
