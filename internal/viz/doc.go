// Package viz renders controller traces in the terminal and to image
// files.
//
//   - [PlotRun]: asciigraph plot of one subsystem's target, measurement
//     and output
//   - [SavePlot]: gonum/plot image of a run (png, svg or pdf by extension)
//   - [Dashboard]: bubbletea view streaming live samples into ntcharts
//
// # Dashboard keys
//
//	Space - Freeze/unfreeze the charts
//	T     - Cycle color themes
//	Q     - Quit
package viz
