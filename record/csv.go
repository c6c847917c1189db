package record

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bg "github.com/SSSOCPaulCote/blunderguard"
	e "github.com/pkg/errors"
	"github.com/splotd/splotd/utils"
)

const (
	ErrNothingToExport = bg.Error("no recorded data to export")

	exportTimeLayout = "20060102_150405"
)

// ExportCSV writes the whole session history to a CSV file in dir. The
// header is "timestamp,raw_line" followed by every label seen this session in
// sorted order; entries missing a label leave that cell blank. The file name
// carries the session start time and is deduplicated if it already exists.
// Returns the absolute file path and the number of data rows written
func ExportCSV(log *SessionLog, dir string) (string, int, error) {
	entries := log.Entries()
	if len(entries) == 0 {
		return "", 0, ErrNothingToExport
	}
	labels := log.Labels()
	fileName := "serial_data_" + log.Start().Format(exportTimeLayout) + ".csv"
	path := utils.UniqueFileName(filepath.Join(dir, fileName))
	file, err := os.Create(path)
	if err != nil {
		return "", 0, e.Wrap(err, "could not create export file")
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	header := append([]string{"timestamp", "raw_line"}, labels...)
	if err := writer.Write(header); err != nil {
		return "", 0, e.Wrap(err, "could not write export header")
	}
	row := make([]string, len(header))
	for _, entry := range entries {
		row[0] = entry.Timestamp.Format(time.RFC3339Nano)
		row[1] = entry.Raw
		for i, label := range labels {
			if v, ok := entry.Values[label]; ok {
				row[i+2] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				row[i+2] = ""
			}
		}
		if err := writer.Write(row); err != nil {
			return "", 0, e.Wrap(err, "could not write export row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", 0, e.Wrap(err, "could not flush export file")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	return absPath, len(entries), nil
}
