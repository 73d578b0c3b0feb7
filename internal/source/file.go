package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"timelane/internal/config"
	"timelane/internal/model"
	"timelane/internal/utcday"
)

// rowNamespace seeds the name-based IDs of CSV rows without an id column.
var rowNamespace = uuid.MustParse("6f1d3c1e-7d8b-4f7a-9a3e-2c5b8e0d4a11")

// dateLayouts are tried in order for CSV date cells.
var dateLayouts = []string{
	utcday.Layout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
}

// LoadItemsFile reads a YAML or JSON file holding either a list of items or
// a mapping with an "items" list. Items without a source are tagged with
// the file name.
func LoadItemsFile(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items file: %w", err)
	}

	// JSON is valid YAML, so one decoder covers both.
	var items []model.Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Items []model.Item `yaml:"items"`
		}
		if werr := yaml.Unmarshal(data, &wrapped); werr != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrInvalidItem, path, err)
		}
		items = wrapped.Items
	}

	tag := "file:" + filepath.Base(path)
	events := make([]model.Event, 0, len(items))
	var errs []error
	for i, it := range items {
		if it.Source == "" {
			it.Source = tag
		}
		ev, err := it.Event()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s item %d: %w", path, i, err))
			continue
		}
		events = append(events, ev)
	}
	return events, errors.Join(errs...)
}

// LoadCSV reads items from a CSV file with a header row. Column names are
// matched case-insensitively; the id column is optional.
func LoadCSV(src config.CSVConfig) ([]model.Event, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.ToLower(strings.TrimSpace(col))] = i
	}

	col := func(name string) int {
		if i, ok := columns[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}
	idCol, nameCol, startCol, endCol := col(src.IDColumn), col(src.NameColumn), col(src.StartColumn), col(src.EndColumn)
	if startCol < 0 || endCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("%w: %s: columns %q, %q and %q are required, have %v",
			model.ErrInvalidItem, src.Path, src.NameColumn, src.StartColumn, src.EndColumn, header)
	}

	tag := "csv:" + filepath.Base(src.Path)
	var (
		events []model.Event
		errs   []error
	)
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return events, fmt.Errorf("read CSV: %w", err)
		}

		cell := func(i int) string {
			if i < 0 || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		start, err := parseDate(cell(startCol))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s row %d start: %v", model.ErrInvalidItem, src.Path, row, err))
			continue
		}
		end, err := parseDate(cell(endCol))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s row %d end: %v", model.ErrInvalidItem, src.Path, row, err))
			continue
		}

		id := cell(idCol)
		if id == "" {
			id = uuid.NewSHA1(rowNamespace, []byte(strings.Join(record, "\x1f"))).String()
		}
		ev := model.Event{
			ID:       id,
			Name:     cell(nameCol),
			Start:    start.Time(),
			End:      end.Time(),
			SourceID: tag,
		}
		if err := ev.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s row %d: %w", src.Path, row, err))
			continue
		}
		events = append(events, ev)
	}
	return events, errors.Join(errs...)
}

func parseDate(s string) (utcday.Day, error) {
	if s == "" {
		return 0, errors.New("empty date")
	}
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return utcday.FromTime(t), nil
		}
	}
	return 0, fmt.Errorf("unable to parse date %q: %w", s, err)
}
