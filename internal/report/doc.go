// Package report renders a global-position analysis as figures.
//
// Figures are built as gonum plots: one trajectory per auto run, plus the
// relative coordinates and navigation state over the whole log. WritePDF
// lays them out one per page; WriteHTML renders the same data as an
// interactive go-echarts page.
package report
