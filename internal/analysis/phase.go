package analysis

import (
	"strings"

	"github.com/san-kum/motioncore/internal/trace"
)

type Point struct{ X, Y float64 }

// ErrorPhase pairs each tracking error with its rate of change per second,
// by backward difference. The first sample has no rate and is skipped, as
// are samples that share a timestamp with their predecessor.
func ErrorPhase(samples []trace.Sample) []Point {
	if len(samples) < 2 {
		return nil
	}
	points := make([]Point, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		dt := (samples[i].Time - samples[i-1].Time).Seconds()
		if dt <= 0 {
			continue
		}
		e := samples[i].Error()
		points = append(points, Point{X: e, Y: (e - samples[i-1].Error()) / dt})
	}
	return points
}

// PhaseToASCII draws points on a width by height character grid with the
// axes through the origin when it is in view.
func PhaseToASCII(points []Point, width, height int) string {
	if len(points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	// pad by a tenth of the range on each side
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
