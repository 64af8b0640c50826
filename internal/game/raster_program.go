package game

import (
	"fmt"
	"image/color"
	"strings"
)

// Terrain colors. The fill is the solid interior; the outline is the
// standable surface the footing scan looks for.
var (
	TerrainFill    = color.RGBA{G: 255, A: 255}
	TerrainOutline = color.RGBA{R: 255, A: 255}
)

// Layer names one of the two surfaces a RasterProgram draws on.
type Layer int

const (
	LayerScratch Layer = iota
	LayerTerrain
)

func (l Layer) String() string {
	if l == LayerScratch {
		return "scratch"
	}
	return "terrain"
}

// RasterOp is the kind of a RasterStep.
type RasterOp int

const (
	OpClear RasterOp = iota
	OpFill
	OpStroke
	OpComposite // draws the scratch layer onto Target
)

func (o RasterOp) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpFill:
		return "fill"
	case OpStroke:
		return "stroke"
	case OpComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// RasterStep is one drawing instruction.
type RasterStep struct {
	Target Layer
	Op     RasterOp
	Path   Path
	Mode   CompositeMode
	Color  color.RGBA
	Width  float64
}

// RasterProgram is an ordered list of steps. Terrain construction and crater
// carving are both expressed as programs so the step order, which decides the
// final pixels, is a value that can be inspected and tested.
type RasterProgram []RasterStep

// BuildProgram returns the program that renders polygons onto an empty
// terrain: each polygon is filled on the scratch layer with its outline
// punched out, merged onto the terrain, and finally every outline is drawn.
func BuildProgram(polygons []Path, lineWidth float64) RasterProgram {
	prog := make(RasterProgram, 0, len(polygons)*5)
	for _, poly := range polygons {
		closed := Path{Points: poly.Points, Closed: true}
		prog = append(prog,
			RasterStep{Target: LayerScratch, Op: OpClear},
			RasterStep{Target: LayerScratch, Op: OpFill, Path: closed, Mode: SourceOver, Color: TerrainFill},
			RasterStep{Target: LayerScratch, Op: OpStroke, Path: closed, Mode: DestinationOut, Color: TerrainFill, Width: lineWidth},
			RasterStep{Target: LayerTerrain, Op: OpComposite, Mode: SourceOver},
		)
	}
	for _, poly := range polygons {
		prog = append(prog, RasterStep{
			Target: LayerTerrain, Op: OpStroke,
			Path:  Path{Points: poly.Points, Closed: true},
			Mode:  SourceOver, Color: TerrainOutline, Width: lineWidth,
		})
	}
	return prog
}

// CraterProgram returns the program that carves a disc out of the terrain and
// re-draws its rim as standable surface, only where terrain remains.
func CraterProgram(center Point, radius float64, segments int, lineWidth float64) RasterProgram {
	disc := circlePath(center, radius, segments)
	return RasterProgram{
		{Target: LayerScratch, Op: OpClear},
		{Target: LayerScratch, Op: OpFill, Path: disc, Mode: SourceOver, Color: TerrainFill},
		{Target: LayerScratch, Op: OpStroke, Path: disc, Mode: DestinationOut, Color: TerrainFill, Width: lineWidth},
		{Target: LayerTerrain, Op: OpComposite, Mode: DestinationOut},
		{Target: LayerTerrain, Op: OpStroke, Path: disc, Mode: SourceAtop, Color: TerrainOutline, Width: lineWidth},
	}
}

// Run executes the program against the two layers in order.
func (p RasterProgram) Run(scratch, terrain *LogicalSurface) {
	for _, st := range p {
		dst := terrain
		if st.Target == LayerScratch {
			dst = scratch
		}
		switch st.Op {
		case OpClear:
			dst.Clear()
		case OpFill:
			dst.Fill(st.Path, st.Color, st.Mode)
		case OpStroke:
			dst.Stroke(st.Path, st.Width, st.Color, st.Mode)
		case OpComposite:
			dst.Composite(scratch, st.Mode)
		}
	}
}

// String lists the steps one per line, for debug reports.
func (p RasterProgram) String() string {
	var sb strings.Builder
	for i, st := range p {
		fmt.Fprintf(&sb, "%02d %-7s %-9s %s", i, st.Target, st.Op, st.Mode)
		if len(st.Path.Points) > 0 {
			fmt.Fprintf(&sb, " pts=%d", len(st.Path.Points))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
