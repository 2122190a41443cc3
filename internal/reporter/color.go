package reporter

import (
	"io"
	"os"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// ANSI escape codes for confidence-band colors.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
)

var labelColor = map[sqlmodel.Label]string{
	sqlmodel.LabelHigh:    colorGreen,
	sqlmodel.LabelMedium:  colorYellow,
	sqlmodel.LabelPartial: colorCyan,
	sqlmodel.LabelLow:     colorGray,
}

// isTTY returns true if the writer is a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
