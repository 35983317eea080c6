// Package testutil holds fixtures shared by the import tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/amengaji/Keel/internal/config"
)

// Workbook renders rows into the first sheet of an XLSX file. The first row
// is the header.
func Workbook(t testing.TB, rows ...[]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// Config returns a configuration suitable for in-process tests: memory store,
// no archive, no rate limiting.
func Config() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			RequestTimeout: 30 * time.Second,
		},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			CommitTimeout: 10 * time.Second,
			Workers:       2,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Archive: config.ArchiveConfig{Driver: config.ArchiveNone},
	}
}
