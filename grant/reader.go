package grant

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported input encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1251 = "windows-1251"
	EncodingWindows1252 = "windows-1252"
)

// Options configures how a grant file is read.
type Options struct {
	Path     string
	Encoding string
}

// Row is one non-blank data row of a grant file.
type Row struct {
	// SourceLine is the CSV line the record started on.
	SourceLine int
	Cells      []string
}

// File is a grant file whose header has already been validated.
type File struct {
	Header []string
	Rows   []Row
	// Blank counts the data rows skipped because every cell was empty.
	Blank int
}

// Reader loads grant files from disk.
type Reader struct {
	path     string
	encoding string
	logger   *slog.Logger
}

func NewReader(opts Options, logger *slog.Logger) (*Reader, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("grant file path is empty")
	}
	encoding := strings.ToLower(strings.TrimSpace(opts.Encoding))
	if encoding == "" {
		encoding = EncodingUTF8
	}
	if _, err := decoder(encoding); err != nil {
		return nil, err
	}
	return &Reader{path: path, encoding: encoding, logger: logger}, nil
}

// ReadFile opens the configured path and parses it.
func (r *Reader) ReadFile() (File, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return File{}, fmt.Errorf("open grant file: %w", err)
	}
	defer file.Close()

	dec, _ := decoder(r.encoding)
	parsed, err := Parse(transform.NewReader(file, dec))
	if err != nil {
		return File{}, err
	}
	if r.logger != nil {
		r.logger.Debug("grant file parsed", "path", r.path, "encoding", r.encoding, "rows", len(parsed.Rows), "blank", parsed.Blank)
	}
	return parsed, nil
}

// Parse reads a comma-delimited grant file. The header is validated before any
// data row is looked at; rows made only of blank cells are dropped. Every grant
// must sit on its own line: a stray quote or a quoted line break is a SchemaError.
func Parse(src io.Reader) (File, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return File{}, &SchemaError{Line: 1, Err: errors.New("grant file is empty")}
	}
	if err != nil {
		return File{}, parseError("read header", err)
	}
	if err := ValidateHeader(header); err != nil {
		return File{}, err
	}

	parsed := File{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return File{}, parseError("read grant row", err)
		}
		line, _ := reader.FieldPos(0)
		for i := range record {
			record[i] = stripCR(record[i])
			if strings.Contains(record[i], "\n") {
				return File{}, &SchemaError{
					Line:   line,
					Column: i + 1,
					Err:    errors.New("cell spans several lines; check for an unbalanced quote"),
				}
			}
		}
		if IsBlank(record) {
			parsed.Blank++
			continue
		}
		parsed.Rows = append(parsed.Rows, Row{SourceLine: line, Cells: record})
	}
	return parsed, nil
}

// parseError turns csv syntax errors into a SchemaError on the offending line.
func parseError(op string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &SchemaError{Line: pe.Line, Err: fmt.Errorf("%s: %w", op, err)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func decoder(name string) (transform.Transformer, error) {
	switch name {
	case EncodingUTF8:
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case EncodingWindows1251:
		return charmap.Windows1251.NewDecoder(), nil
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
