package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/cosmoweb/codec"
)

// WriteTable writes the catalog as a whitespace-separated table with
// columns x, y, z and, when present, mass. Lines starting with '#' are
// comments.
func WriteTable(w io.Writer, c *Catalog) error {
	bw := bufio.NewWriter(w)
	cols := "x y z"
	if c.HasMass() {
		cols += " mass"
	}
	if _, err := fmt.Fprintf(bw, "# %s\n", cols); err != nil {
		return err
	}
	for i, p := range c.Points() {
		if m, ok := c.Mass(i); ok {
			_, err := fmt.Fprintf(bw, "%.8g %.8g %.8g %.8g\n", p.X, p.Y, p.Z, m)
			if err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(bw, "%.8g %.8g %.8g\n", p.X, p.Y, p.Z); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTable parses a table written by WriteTable into a catalog of the
// given kind. Observed coordinates are not persisted in the tabular format.
func ReadTable(r io.Reader, kind Kind) (*Catalog, error) {
	var points []CartesianPoint
	var masses []float64
	hasMass := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 && len(fields) != 4 {
			return nil, fmt.Errorf("catalog: line %d: expected 3 or 4 columns, got %d", line, len(fields))
		}
		vals := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("catalog: line %d: column %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		points = append(points, CartesianPoint{X: vals[0], Y: vals[1], Z: vals[2]})
		if len(fields) == 4 {
			hasMass = true
			masses = append(masses, vals[3])
		} else {
			masses = append(masses, 0)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if hasMass {
		return NewWithMass(kind, points, masses)
	}
	return New(kind, points), nil
}

// SaveFile writes the catalog to path, compressing according to the file
// extension (.gz, .zst, .lz4; anything else is stored uncompressed).
func SaveFile(path string, c *Catalog) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w, err := codec.CompressionByExt(path).WrapWriter(f)
	if err != nil {
		return err
	}
	if err := WriteTable(w, c); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// LoadFile reads a catalog written by SaveFile, detecting compression from
// the file extension.
func LoadFile(path string, kind Kind) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, err := codec.CompressionByExt(path).WrapReader(f)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return ReadTable(r, kind)
}
