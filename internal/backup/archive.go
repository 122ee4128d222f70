package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"stockroom/m/internal/tabular"
)

// Exporter produces the table for one archive entry.
type Exporter interface {
	Export(ctx context.Context) (tabular.Table, error)
}

type ArchiveEntry struct {
	Name   string // file name without extension
	Source Exporter
}

// WriteArchive writes a zip holding one spreadsheet per entry.
func WriteArchive(ctx context.Context, w io.Writer, entries []ArchiveEntry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		table, err := e.Source.Export(ctx)
		if err != nil {
			return fmt.Errorf("export %s: %w", e.Name, err)
		}
		fw, err := zw.Create(e.Name + tabular.XLSX.Extension())
		if err != nil {
			return err
		}
		if err := tabular.Write(fw, tabular.XLSX, table); err != nil {
			return fmt.Errorf("write %s: %w", e.Name, err)
		}
	}
	return zw.Close()
}
