package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gcquality/internal/chromatography"
)

const sampleCSV = `Index,Name,Time,Quantity,Height,Area,Area %
1,,0.975,1.2,350.1,100.5,1.1
2,,7.10,50.0,1200,9000,95.0
Index,Name,Time,Quantity,Height,Area,Area %
3,,8.02,,n/a,,
`

func TestReadCSV(t *testing.T) {
	peaks, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, peaks, 4)

	assert.Equal(t, "0.975", peaks[0].RetentionTime)
	assert.Equal(t, "100.5", peaks[0].Area)
	assert.Equal(t, "350.1", peaks[0].Height)
	assert.Equal(t, 2, peaks[0].Row)
	assert.Equal(t, 5, peaks[3].Row)

	res := chromatography.Clean(peaks)
	assert.Len(t, res.Peaks, 2)
	require.Len(t, res.Dropped, 2)
	assert.Equal(t, 4, res.Dropped[0].Row)
}

func TestDetectColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		want    columnMap
		wantErr bool
	}{
		{"instrument export", []string{"Index", "Time", "Height", "Area", "Area %"}, columnMap{time: 1, area: 3, height: 2}, false},
		{"units and case", []string{"\ufeffRetention Time (min)", "AREA [uV*min]"}, columnMap{time: 0, area: 1, height: -1}, false},
		{"spanish captions", []string{"Tiempo", "Área", "Altura"}, columnMap{time: 0, area: 1, height: 2}, false},
		{"area percent only", []string{"Time", "Area %"}, columnMap{}, true},
		{"no time", []string{"Area"}, columnMap{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectColumns(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingColumns)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSampleNames(t *testing.T) {
	assert.Equal(t, "muestra_2_1_raw.csv", SampleFileName("2.1"))
	assert.Equal(t, "muestra_RXN5_raw.csv", SampleFileName("muestra_RXN5"))
	assert.Equal(t, "12_2", SampleKey("Experimento3/muestra_12_2_raw.csv"))
	assert.Equal(t, "FINAL", SampleKey("muestra_FINAL_raw.csv"))
}

// buildWorkbook writes a workbook with two sample sheets, a standard and a
// sheet without a peak table
func buildWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	write := func(sheet string, rows [][]any) {
		for i, row := range rows {
			cellName, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
		}
	}

	f.SetSheetName(f.GetSheetName(0), "2.1")
	write("2.1", [][]any{
		{"Sample 2.1 injection report"},
		{"Operator", "JM"},
		{"Index", "Time", "Height", "Area"},
		{1, 0.97, 300, 100},
		{2, 7.0, 1500, 9000},
	})

	_, err := f.NewSheet("3.1")
	require.NoError(t, err)
	write("3.1", [][]any{
		{"Time", "Area"},
		{0.98, 120},
		{9.5, 4000},
	})

	_, err = f.NewSheet("STD INT_07_11_2025")
	require.NoError(t, err)
	write("STD INT_07_11_2025", [][]any{
		{"Time", "Area"},
		{0.97, 500},
	})

	_, err = f.NewSheet("Notes")
	require.NoError(t, err)
	write("Notes", [][]any{{"operator", "calibrated"}})

	path := filepath.Join(t.TempDir(), "cromatograma.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadWorkbook(t *testing.T) {
	path := buildWorkbook(t)

	t.Run("all sheets", func(t *testing.T) {
		wb, err := ReadWorkbook(path, WorkbookOptions{})
		require.NoError(t, err)

		require.Len(t, wb.Samples, 2)
		assert.Equal(t, "2.1", wb.Samples[0].Name)
		assert.Equal(t, 3, wb.Samples[0].HeaderRow)
		require.Len(t, wb.Samples[0].Peaks, 2)
		assert.Equal(t, 4, wb.Samples[0].Peaks[0].Row)
		assert.Equal(t, []string{"Notes"}, wb.Skipped)

		require.NotNil(t, wb.Standard)
		assert.Len(t, wb.Standard.Peaks, 1)

		samples := wb.ToSamples()
		require.Len(t, samples, 2)
		assert.Equal(t, 2, samples[1].Order)

		proc, err := chromatography.NewProcessor(chromatography.DefaultConfig())
		require.NoError(t, err)
		rec := proc.Process(samples[0])
		assert.Equal(t, 100.0, rec.ConversionPct)
	})

	t.Run("mapped sheets", func(t *testing.T) {
		wb, err := ReadWorkbook(path, WorkbookOptions{Sheets: map[string]string{"3.1": "RXN3"}})
		require.NoError(t, err)
		require.Len(t, wb.Samples, 1)
		assert.Equal(t, "RXN3", wb.Samples[0].Name)
		assert.Equal(t, "3.1", wb.Samples[0].Sheet)
	})

	t.Run("from reader", func(t *testing.T) {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()

		wb, err := ReadWorkbookFrom(f, "upload.xlsx", WorkbookOptions{})
		require.NoError(t, err)
		assert.Equal(t, "upload.xlsx", wb.Source)
		assert.Len(t, wb.Samples, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadWorkbook(filepath.Join(t.TempDir(), "none.xlsx"), WorkbookOptions{})
		assert.Error(t, err)
	})
}

func TestReadWorkbook_FormattedCellsKeepStoredValue(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Time", "Area"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{7.254, 1234.567}))
	twoDecimals, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A2", "B2", twoDecimals))

	shown, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	require.Equal(t, "7.25", shown)

	path := filepath.Join(t.TempDir(), "formatted.xlsx")
	require.NoError(t, f.SaveAs(path))

	wb, err := ReadWorkbook(path, WorkbookOptions{})
	require.NoError(t, err)
	require.Len(t, wb.Samples, 1)
	require.Len(t, wb.Samples[0].Peaks, 1)

	peak := wb.Samples[0].Peaks[0]
	rt, err := chromatography.ParseNumber(peak.RetentionTime)
	require.NoError(t, err)
	area, err := chromatography.ParseNumber(peak.Area)
	require.NoError(t, err)
	assert.Equal(t, 7.254, rt)
	assert.Equal(t, 1234.567, area)

	// 7.25 would fall inside the triglyceride window
	tri, err := chromatography.DefaultWindowTable().WindowOf(chromatography.Triglycerides)
	require.NoError(t, err)
	assert.False(t, tri.Contains(rt))
}

func TestExtractAndLoadExperimentDir(t *testing.T) {
	wb, err := ReadWorkbook(buildWorkbook(t), WorkbookOptions{})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "Experimento1")
	meta, err := Extract(wb, dir, Metadata{
		Experiment: "Experimento 1",
		Date:       "2025-10-03",
		Conditions: map[string]any{"catalizador": "CaO 1%"},
	})
	require.NoError(t, err)
	require.Len(t, meta.Samples, 2)
	assert.Equal(t, "muestra_2_1_raw.csv", meta.Samples[0].CSVFile)

	assert.FileExists(t, filepath.Join(dir, "muestra_2_1_raw.csv"))
	assert.FileExists(t, filepath.Join(dir, StandardFileName))

	// add a mass to the first sample and an unreadable file
	mass := 50.0
	meta.Samples[0].MassMg = &mass
	meta.Samples[0].Nomenclature = "R1-T30"
	require.NoError(t, WriteMetadata(filepath.Join(dir, MetadataFile), meta))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "muestra_bad_raw.csv"), []byte("a,b\n1,2\n"), 0644))

	data, err := LoadExperimentDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "Experimento1", data.Key)
	assert.Equal(t, "Experimento 1", data.Experiment.Name)
	assert.Equal(t, "2025-10-03", data.Experiment.Date)

	require.Len(t, data.Experiment.Samples, 2)
	first := data.Experiment.Samples[0]
	assert.Equal(t, "R1-T30", first.Label)
	assert.Equal(t, "2_1", first.OriginalName)
	assert.Equal(t, 1, first.Order)
	require.NotNil(t, first.SampleMassMg)
	assert.Equal(t, 50.0, *first.SampleMassMg)

	require.Len(t, data.Skipped, 1)
	assert.Equal(t, "muestra_bad_raw.csv", data.Skipped[0].File)

	dirs, err := FindExperimentDirs(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, dirs)
}

func TestLoadExperimentDir_MissingMetadata(t *testing.T) {
	_, err := LoadExperimentDir(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
