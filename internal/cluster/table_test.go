package cluster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	input := "location_cluster,start_lat,start_lng\n" +
		"0,37.77,-122.41\n" +
		"1.0,37.80,-122.27\n" +
		"\n" +
		"2,37.33,-121.89\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 3, table.ClusterCount())
	assert.Equal(t, 1, table.Row(1).ClusterID)
	assert.InDelta(t, -121.89, table.Row(2).Longitude, 1e-9)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		msg     string
	}{
		{
			name:    "header only",
			input:   "start_lat,start_lng,location_cluster\n",
			wantErr: ErrEmptyTable,
		},
		{
			name:    "missing cluster column",
			input:   "start_lat,start_lng\n1,2\n",
			wantErr: ErrMissingColumn,
		},
		{
			name:  "bad latitude",
			input: "start_lat,start_lng,location_cluster\nabc,2,0\n",
			msg:   "line 2 start_lat",
		},
		{
			name:  "fractional cluster id",
			input: "start_lat,start_lng,location_cluster\n1,2,0.5\n",
			msg:   "not an integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestLoadTable_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster_centroids.csv")
	require.NoError(t, os.WriteFile(path, []byte("start_lat,start_lng,location_cluster\n10,20,4\n"), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 4, table.Row(0).ClusterID)
}

func TestLoadTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster_centroids.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"start_lat", "start_lng", "location_cluster"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{12.97, 77.59, 3}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{13.08, 80.27, 5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := LoadTable(path)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 5, table.Row(1).ClusterID)
	assert.InDelta(t, 12.97, table.Row(0).Latitude, 1e-9)
}

func TestLoadTable_UnsupportedExtension(t *testing.T) {
	_, err := LoadTable("centroids.parquet")
	assert.ErrorIs(t, err, ErrUnsupportedExt)
}
