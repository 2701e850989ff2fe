package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/pkg/utils"
)

// TimeColumn is the row key every table must carry, in minutes.
const TimeColumn = "time"

// Cells matching these tokens, or not parsing as a number, are missing values.
var missingTokens = []string{"", "NA", "NaN", "nan", "N/A", "<nil>"}

// ActivityTable is one loaded sheet: a time column plus one column per subject.
// It is never modified after loading.
type ActivityTable struct {
	Source  string
	columns []string
	rows    int
	frame   dataframe.DataFrame
}

// NewActivityTable builds a table from raw CSV records, header first.
// A header without data rows yields an empty table.
func NewActivityTable(source string, records [][]string) (*ActivityTable, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: no header row", ErrMalformedTable, source)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		name := utils.CleanHeader(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		header[i] = name
	}
	header = dedupeHeader(header)
	if err := validateHeader(header); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	t := &ActivityTable{Source: source, columns: header, rows: len(records) - 1}
	if t.rows == 0 {
		return t, nil
	}

	timeIdx := slices.Index(header, TimeColumn)
	body := make([][]string, 0, len(records))
	body = append(body, header)
	rawTimes := make([]string, 0, t.rows)
	for i, rec := range records[1:] {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%w: %s: line %d has %d fields, header has %d", ErrMalformedTable, source, i+2, len(rec), len(header))
		}
		// short rows are padded with missing cells
		cells := make([]string, len(header))
		copy(cells, utils.TrimCells(slices.Clone(rec)))
		body = append(body, cells)
		rawTimes = append(rawTimes, cells[timeIdx])
	}

	frame := dataframe.LoadRecords(body,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
		dataframe.NaNValues(missingTokens),
	)
	if frame.Err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTable, source, frame.Err)
	}
	t.frame = frame

	times, _ := t.Column(TimeColumn)
	if err := validateTimes(times, rawTimes, 2); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return t, nil
}

// Len returns the number of data rows
func (t *ActivityTable) Len() int {
	return t.rows
}

// Columns returns the header in file order
func (t *ActivityTable) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether the header contains name
func (t *ActivityTable) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// Subjects returns every column except time, in file order
func (t *ActivityTable) Subjects() []string {
	subjects := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if c != TimeColumn {
			subjects = append(subjects, c)
		}
	}
	return subjects
}

// Column returns a copy of a column as floats; missing cells are NaN.
// Infinite subject values count as missing too. The time column is
// returned as parsed so invalid keys can be reported.
func (t *ActivityTable) Column(name string) ([]float64, bool) {
	if !t.HasColumn(name) {
		return nil, false
	}
	if t.rows == 0 {
		return []float64{}, true
	}
	values := t.frame.Col(name).Float()
	if name != TimeColumn {
		for i, v := range values {
			if math.IsInf(v, 0) {
				values[i] = math.NaN()
			}
		}
	}
	return values, true
}

// dedupeHeader renames repeated column names to name.1, name.2, ...
// skipping suffixes already taken by another column.
func dedupeHeader(header []string) []string {
	taken := make(map[string]bool, len(header))
	for _, name := range header {
		taken[name] = true
	}
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		n, dup := seen[name]
		seen[name] = n + 1
		if !dup {
			out[i] = name
			continue
		}
		renamed := name + "." + strconv.Itoa(n)
		for taken[renamed] {
			n++
			renamed = name + "." + strconv.Itoa(n)
		}
		seen[name] = n + 1
		taken[renamed] = true
		out[i] = renamed
	}
	return out
}

// ------------------- Loader -------------------

// Loader reads activity tables from local paths or http(s) URLs
type Loader struct {
	client *http.Client
	cache  *TableCache
	retry  model.RetryConfig
	logger *zap.Logger
}

// LoaderOption customizes a Loader
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for remote tables
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = c
	}
}

// WithCache shares parsed tables between loads
func WithCache(c *TableCache) LoaderOption {
	return func(l *Loader) {
		l.cache = c
	}
}

// WithRetryConfig sets the backoff used for remote tables
func WithRetryConfig(cfg model.RetryConfig) LoaderOption {
	return func(l *Loader) {
		l.retry = cfg
	}
}

// NewLoader creates a loader; a nil logger discards output
func NewLoader(logger *zap.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		client: &http.Client{Timeout: 30 * time.Second},
		retry:  model.DefaultRetryConfig,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadTable reads a table with default loader settings
func LoadTable(ctx context.Context, pathOrURL string) (*ActivityTable, error) {
	return NewLoader(nil).Load(ctx, pathOrURL)
}

// Load reads and parses one table
func (l *Loader) Load(ctx context.Context, pathOrURL string) (*ActivityTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isRemote(pathOrURL) {
		return l.loadRemote(ctx, pathOrURL)
	}
	return l.loadLocal(pathOrURL)
}

func isRemote(pathOrURL string) bool {
	return strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://")
}

func (l *Loader) loadLocal(path string) (*ActivityTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceUnavailable, path)
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if t, ok := l.cache.Get(key); ok {
		l.logger.Debug("table cache hit", zap.String("source", path))
		return t, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer file.Close()

	t, err := l.parse(path, file)
	if err != nil {
		return nil, err
	}
	l.cache.Put(key, t)
	return t, nil
}

func (l *Loader) loadRemote(ctx context.Context, url string) (*ActivityTable, error) {
	if t, ok := l.cache.Get(url); ok {
		l.logger.Debug("table cache hit", zap.String("source", url))
		return t, nil
	}

	body, err := l.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	t, err := l.parse(url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	l.cache.Put(url, t)
	return t, nil
}

func (l *Loader) parse(source string, r io.Reader) (*ActivityTable, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTable, source, err)
	}

	t, err := NewActivityTable(source, records)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("table loaded",
		zap.String("source", source),
		zap.Int("rows", t.Len()),
		zap.Int("subjects", len(t.Subjects())),
	)
	return t, nil
}
