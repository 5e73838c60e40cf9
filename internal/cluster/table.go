package cluster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/OldStager01/demand-predictor/pkg/models"
)

var (
	ErrEmptyTable     = errors.New("centroid table is empty")
	ErrMissingColumn  = errors.New("centroid table is missing a required column")
	ErrUnsupportedExt = errors.New("unsupported centroid table format")
	ErrInvalidQuery   = errors.New("query coordinates must be finite numbers")
)

const (
	ColumnLatitude  = "start_lat"
	ColumnLongitude = "start_lng"
	ColumnCluster   = "location_cluster"
)

// Table is the immutable centroid reference table in file order.
type Table struct {
	rows []models.Centroid
}

func NewTable(rows []models.Centroid) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	copied := make([]models.Centroid, len(rows))
	copy(copied, rows)
	return &Table{rows: copied}, nil
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the i-th centroid.
func (t *Table) Row(i int) models.Centroid {
	return t.rows[i]
}

// Rows returns a copy of all centroids.
func (t *Table) Rows() []models.Centroid {
	out := make([]models.Centroid, len(t.rows))
	copy(out, t.rows)
	return out
}

// ClusterCount returns the number of distinct cluster ids.
func (t *Table) ClusterCount() int {
	seen := make(map[int]struct{}, len(t.rows))
	for _, r := range t.rows {
		seen[r.ClusterID] = struct{}{}
	}
	return len(seen)
}

// LoadTable reads a .csv or .xlsx centroid table. The first row must be a
// header containing start_lat, start_lng and location_cluster in any order.
func LoadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open centroid table: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, path)
	}
}

// ReadCSV parses a centroid table from CSV.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read centroid csv: %w", err)
	}
	return parseRows(records)
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open centroid workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) (*Table, error) {
	if len(rows) < 2 {
		return nil, ErrEmptyTable
	}

	latCol, lngCol, clusterCol := -1, -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case ColumnLatitude:
			latCol = i
		case ColumnLongitude:
			lngCol = i
		case ColumnCluster:
			clusterCol = i
		}
	}
	if latCol < 0 || lngCol < 0 || clusterCol < 0 {
		return nil, fmt.Errorf("%w: need %s, %s, %s", ErrMissingColumn, ColumnLatitude, ColumnLongitude, ColumnCluster)
	}

	centroids := make([]models.Centroid, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}

		lat, err := parseFloatCell(row, latCol)
		if err != nil {
			return nil, fmt.Errorf("line %d %s: %w", line, ColumnLatitude, err)
		}
		lng, err := parseFloatCell(row, lngCol)
		if err != nil {
			return nil, fmt.Errorf("line %d %s: %w", line, ColumnLongitude, err)
		}
		id, err := parseFloatCell(row, clusterCol)
		if err != nil {
			return nil, fmt.Errorf("line %d %s: %w", line, ColumnCluster, err)
		}
		if id != math.Trunc(id) {
			return nil, fmt.Errorf("line %d %s: %v is not an integer", line, ColumnCluster, id)
		}

		centroids = append(centroids, models.Centroid{
			Latitude:  lat,
			Longitude: lng,
			ClusterID: int(id),
		})
	}

	return NewTable(centroids)
}

func parseFloatCell(row []string, col int) (float64, error) {
	if col >= len(row) {
		return 0, errors.New("missing value")
	}
	v := strings.TrimSpace(row[col])
	if v == "" {
		return 0, errors.New("missing value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %q", v)
	}
	return f, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
