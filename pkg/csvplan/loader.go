package csvplan

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Canonical column names of a lineup file.
const (
	ColumnTitle    = "title"
	ColumnMedia    = "media"
	ColumnLink     = "link"
	ColumnChannel  = "channel"
	ColumnDate     = "date"
	ColumnStart    = "start_time"
	ColumnDuration = "duration"
)

var defaultAliases = map[string][]string{
	ColumnMedia:    {"media_id", "asset"},
	ColumnLink:     {"url", "source_url"},
	ColumnStart:    {"start", "starts_at"},
	ColumnDuration: {"length"},
}

const day = 24 * time.Hour

// Row is one validated lineup entry. Start and Duration are zero when the
// corresponding column is blank: the row is then auto-placed or its duration
// resolved downstream.
type Row struct {
	Index       int
	Line        int
	Title       string
	Media       string
	Link        string
	Channel     string
	Date        string
	StartRaw    string
	Start       time.Duration
	HasStart    bool
	DurationRaw string
	Duration    time.Duration
}

// Options tunes header matching.
type Options struct {
	// HeaderAliases maps a canonical column to extra header spellings.
	HeaderAliases map[string][]string
}

// Load reads a CSV, TSV, or YAML lineup file.
func Load(path string) ([]Row, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions reads a lineup file, choosing YAML by extension and
// otherwise sniffing the delimiter. When validation issues are found, the
// returned error is of type ValidationErrors and the successfully parsed rows
// are still returned so callers can continue working with the data.
func LoadWithOptions(path string, opts Options) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("lineup file is empty")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data, opts)
	}
	return Parse(bytes.NewReader(data), opts)
}

// Parse reads a delimited lineup from r.
func Parse(r io.Reader, opts Options) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lineup: %w", err)
	}
	comma, err := detectDelimiter(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	var (
		rows      []Row
		errs      ValidationErrors
		headerMap map[string]int
		line      = 0
	)

	aliases := buildAliasIndex(opts.HeaderAliases)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse file: %w", err)
		}
		line++

		if line == 1 {
			headerMap, err = buildHeaderMap(record, aliases)
			if err != nil {
				return nil, err
			}
			continue
		}

		if isEmptyRecord(record) {
			continue
		}

		fields := make(map[string]string, len(headerMap))
		for name, pos := range headerMap {
			if pos < len(record) {
				fields[name] = cleanValue(record[pos])
			}
		}
		row, rowErrs := parseFields(fields, len(rows)+1, line)
		errs = append(errs, rowErrs...)
		rows = append(rows, row)
	}

	if headerMap == nil {
		return nil, errors.New("missing header row")
	}
	if len(rows) == 0 {
		return nil, errors.New("no data rows found")
	}
	if len(errs) > 0 {
		return rows, errs
	}
	return rows, nil
}

func detectDelimiter(data []byte) (rune, error) {
	dataStr := strings.TrimPrefix(string(data), "\ufeff")

	headerLine := dataStr
	if newline := strings.IndexAny(dataStr, "\r\n"); newline != -1 {
		headerLine = dataStr[:newline]
	}

	if strings.Contains(headerLine, "\t") {
		return '\t', nil
	}
	if strings.Contains(headerLine, ",") {
		return ',', nil
	}
	// A single-column file can only be a title list.
	if normalizeHeader(headerLine) == ColumnTitle {
		return ',', nil
	}
	return 0, errors.New("unable to detect delimiter (expected comma or tab)")
}

// buildAliasIndex maps every accepted header spelling to its canonical column.
func buildAliasIndex(extra map[string][]string) map[string]string {
	index := map[string]string{}
	for _, canonical := range []string{ColumnTitle, ColumnMedia, ColumnLink, ColumnChannel, ColumnDate, ColumnStart, ColumnDuration} {
		index[canonical] = canonical
	}
	add := func(src map[string][]string) {
		for canonical, names := range src {
			canonical = normalizeHeader(canonical)
			for _, name := range names {
				index[normalizeHeader(name)] = canonical
			}
		}
	}
	add(defaultAliases)
	add(extra)
	return index
}

func buildHeaderMap(header []string, aliases map[string]string) (map[string]int, error) {
	if len(header) == 0 {
		return nil, errors.New("header row is empty")
	}

	headerMap := make(map[string]int, len(header))
	for idx, raw := range header {
		name := normalizeHeader(raw)
		if name == "" {
			continue
		}
		canonical, ok := aliases[name]
		if !ok {
			continue
		}
		if _, exists := headerMap[canonical]; exists {
			return nil, fmt.Errorf("duplicate header: %s", canonical)
		}
		headerMap[canonical] = idx
	}

	return headerMap, checkHeaders(headerMap)
}

func checkHeaders(present map[string]int) error {
	_, hasTitle := present[ColumnTitle]
	_, hasMedia := present[ColumnMedia]
	_, hasLink := present[ColumnLink]
	if !hasTitle && !hasMedia {
		if hasLink {
			return fmt.Errorf("missing required header: %s (a %s column alone cannot name an item)", ColumnTitle, ColumnLink)
		}
		return fmt.Errorf("missing required header: %s or %s", ColumnTitle, ColumnMedia)
	}
	return nil
}

// normalizeHeader lowercases and maps spaces and dashes to underscores so
// "Start Time" matches start_time.
func normalizeHeader(value string) string {
	value = strings.TrimSpace(strings.TrimPrefix(value, "\ufeff"))
	value = strings.ToLower(value)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(value)
}

func cleanValue(value string) string {
	return strings.TrimSpace(strings.TrimPrefix(value, "\ufeff"))
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// parseFields validates one row keyed by canonical column names.
func parseFields(fields map[string]string, index, line int) (Row, []ValidationError) {
	var errs []ValidationError
	row := Row{
		Index:   index,
		Line:    line,
		Title:   fields[ColumnTitle],
		Media:   fields[ColumnMedia],
		Link:    fields[ColumnLink],
		Channel: fields[ColumnChannel],
		Date:    fields[ColumnDate],
	}

	if row.Media == "" && row.Title == "" {
		errs = append(errs, ValidationError{Line: line, Field: ColumnTitle, Message: "title is required when media is blank"})
	}

	if row.Date != "" {
		if _, err := time.Parse("2006-01-02", row.Date); err != nil {
			errs = append(errs, ValidationError{Line: line, Field: ColumnDate, Message: fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", row.Date)})
		}
	}

	if raw := fields[ColumnStart]; raw != "" {
		row.StartRaw = raw
		d, err := parseStartTime(raw)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Line: line, Field: ColumnStart, Message: err.Error()})
		case d >= day:
			errs = append(errs, ValidationError{Line: line, Field: ColumnStart, Message: "start_time must be before 24:00:00"})
		default:
			row.Start = d
			row.HasStart = true
		}
	}

	if raw := fields[ColumnDuration]; raw != "" {
		row.DurationRaw = raw
		d, err := parseDuration(raw)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Line: line, Field: ColumnDuration, Message: err.Error()})
		case d <= 0:
			errs = append(errs, ValidationError{Line: line, Field: ColumnDuration, Message: "duration must be greater than 0"})
		default:
			row.Duration = d
		}
	}

	return row, errs
}

// parseDuration accepts HH:MM:SS, MM:SS, or a bare number of seconds.
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ":") {
		return parseClock(value)
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.New("duration must be HH:MM:SS or seconds")
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// parseStartTime reads a wall-clock start: HH:MM or HH:MM:SS.
func parseStartTime(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if strings.Count(value, ":") == 1 {
		value += ":00"
	}
	return parseClock(value)
}

// parseClock reads a length as HH:MM:SS or MM:SS. Seconds may carry a
// fraction; hours are unbounded.
func parseClock(value string) (time.Duration, error) {
	parts := strings.Split(value, ":")
	switch len(parts) {
	case 2:
		parts = append([]string{"0"}, parts...)
	case 3:
	default:
		return 0, fmt.Errorf("invalid time %q (want HH:MM:SS)", value)
	}

	whole, frac, hasFrac := strings.Cut(parts[2], ".")
	fields := [3]int{}
	for i, raw := range []string{parts[0], parts[1], whole} {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s %q is not a non-negative integer", clockNames[i], raw)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("%s must be <= 59", clockNames[i])
		}
		fields[i] = n
	}

	d := time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute + time.Duration(fields[2])*time.Second
	if hasFrac {
		if frac == "" || strings.Trim(frac, "0123456789") != "" {
			return 0, fmt.Errorf("invalid fractional seconds %q", frac)
		}
		if len(frac) > 9 {
			frac = frac[:9]
		}
		nanos, _ := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
		d += time.Duration(nanos)
	}
	return d, nil
}

var clockNames = [3]string{"hours", "minutes", "seconds"}
