package filament

import (
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/cosmoweb/catalog"
)

// Mesh is a renderable solid: an ordered vertex list and quad faces
// indexing into it. Faces use zero-based indices internally; WriteOBJ
// shifts to the one-based convention of the format.
type Mesh struct {
	Vertices []catalog.CartesianPoint
	Faces    [][4]int
}

// SolidifyOptions contains configuration options for mesh generation.
type SolidifyOptions struct {
	// CubeSize is the side length of the cube each point expands into.
	CubeSize float64

	// WithPrisms expands every graph edge into a thin square prism
	// connecting its endpoints.
	WithPrisms bool

	// PrismSide is the cross-section side of edge prisms. Zero defaults
	// to a quarter of CubeSize.
	PrismSide float64
}

// DefaultSolidifyOptions contains the default mesh configuration.
var DefaultSolidifyOptions = SolidifyOptions{
	CubeSize:   1.0,
	WithPrisms: false,
}

// Solidify expands a skeleton graph into a solid mesh: one axis-aligned
// cube (8 vertices, 6 faces) per catalog point and, when enabled, one
// square prism (8 vertices, 4 side faces) per edge. Vertex order follows
// catalog order then graph edge order, so identical inputs produce an
// identical mesh.
func Solidify(c *catalog.Catalog, g *Graph, optFns ...func(o *SolidifyOptions)) (*Mesh, error) {
	opts := DefaultSolidifyOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.CubeSize <= 0 {
		return nil, fmt.Errorf("filament: cube size must be positive, got %g", opts.CubeSize)
	}
	if c == nil || c.Len() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}
	side := opts.PrismSide
	if side <= 0 {
		side = opts.CubeSize / 4
	}

	m := &Mesh{}
	for _, p := range c.Points() {
		m.addCube(p, opts.CubeSize)
	}
	if opts.WithPrisms && g != nil {
		for _, e := range g.Edges {
			m.addPrism(c.Point(e.A), c.Point(e.B), side)
		}
	}
	return m, nil
}

// cubeFaces enumerates the 6 quads of a unit cube over the vertex order
// produced by addCube: bottom ring then top ring, counter-clockwise seen
// from outside.
var cubeFaces = [6][4]int{
	{0, 3, 2, 1}, // bottom
	{4, 5, 6, 7}, // top
	{0, 1, 5, 4}, // front
	{1, 2, 6, 5}, // right
	{2, 3, 7, 6}, // back
	{3, 0, 4, 7}, // left
}

func (m *Mesh) addCube(center catalog.CartesianPoint, size float64) {
	h := size / 2
	base := len(m.Vertices)
	for _, dz := range []float64{-h, h} {
		m.Vertices = append(m.Vertices,
			catalog.CartesianPoint{X: center.X - h, Y: center.Y - h, Z: center.Z + dz},
			catalog.CartesianPoint{X: center.X + h, Y: center.Y - h, Z: center.Z + dz},
			catalog.CartesianPoint{X: center.X + h, Y: center.Y + h, Z: center.Z + dz},
			catalog.CartesianPoint{X: center.X - h, Y: center.Y + h, Z: center.Z + dz},
		)
	}
	for _, f := range cubeFaces {
		m.Faces = append(m.Faces, [4]int{base + f[0], base + f[1], base + f[2], base + f[3]})
	}
}

// addPrism connects a and b with a square tube of the given cross-section
// side. The cross-section axes come from an orthonormal frame built
// around the edge direction; degenerate (zero-length) edges are skipped.
func (m *Mesh) addPrism(a, b catalog.CartesianPoint, side float64) {
	d := b.Sub(a)
	l := d.Norm()
	if l == 0 {
		return
	}
	ux, uy, uz := d.X/l, d.Y/l, d.Z/l

	// Pick the world axis least aligned with the edge to seed the frame.
	ax, ay, az := 1.0, 0.0, 0.0
	if math.Abs(ux) > math.Abs(uy) {
		ax, ay = 0, 1
	}
	// v = u x axis, normalized; w = u x v.
	vx := uy*az - uz*ay
	vy := uz*ax - ux*az
	vz := ux*ay - uy*ax
	vn := math.Sqrt(vx*vx + vy*vy + vz*vz)
	vx, vy, vz = vx/vn, vy/vn, vz/vn
	wx := uy*vz - uz*vy
	wy := uz*vx - ux*vz
	wz := ux*vy - uy*vx

	h := side / 2
	base := len(m.Vertices)
	for _, end := range []catalog.CartesianPoint{a, b} {
		for _, c := range [4][2]float64{{-h, -h}, {h, -h}, {h, h}, {-h, h}} {
			m.Vertices = append(m.Vertices, catalog.CartesianPoint{
				X: end.X + c[0]*vx + c[1]*wx,
				Y: end.Y + c[0]*vy + c[1]*wy,
				Z: end.Z + c[0]*vz + c[1]*wz,
			})
		}
	}
	for i := range 4 {
		j := (i + 1) % 4
		m.Faces = append(m.Faces, [4]int{base + i, base + j, base + 4 + j, base + 4 + i})
	}
}

// WriteOBJ writes the mesh in Wavefront OBJ: "v x y z" lines followed by
// one-based "f a b c d" quad lines.
func WriteOBJ(w io.Writer, m *Mesh) error {
	for _, v := range m.Vertices {
		if _, err := fmt.Fprintf(w, "v %.8g %.8g %.8g\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	for _, f := range m.Faces {
		if _, err := fmt.Fprintf(w, "f %d %d %d %d\n", f[0]+1, f[1]+1, f[2]+1, f[3]+1); err != nil {
			return err
		}
	}
	return nil
}
