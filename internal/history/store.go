package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tinytelemetry/logluts/internal/model"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// Header is the fixed first line of every history file.
var Header = []string{"commit", "flops", "luts", "freq"}

// legacyHeader is the layout written by the first iteration of the tool.
var legacyHeader = []string{"date", "commit", "message", "flops", "luts", "freq"}

// Store is an append-only CSV history of records.
type Store struct {
	path string
}

var (
	_ model.HistoryReader = (*Store)(nil)
	_ model.HistoryWriter = (*Store)(nil)
)

// New returns a store backed by the CSV file at path. The file is created on
// the first Append.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes rec as one row. A missing or empty file gets the header
// first; existing content is never rewritten.
func (s *Store) Append(rec model.Record) error {
	if strings.TrimSpace(s.path) == "" {
		return errors.New("history: path is empty")
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return fmt.Errorf("history: mkdir: %w", err)
		}
	}

	needsHeader, needsNewline, err := s.inspectTail()
	if err != nil {
		return err
	}
	if needsHeader {
		log.Printf("history: writing header to %s", s.path)
	} else {
		log.Printf("history: found existing csv file %s", s.path)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return fmt.Errorf("history: open: %w", err)
	}
	defer f.Close()

	if needsNewline {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("history: write: %w", err)
		}
	}

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("history: write header: %w", err)
		}
	}
	if err := w.Write(formatRecord(rec)); err != nil {
		return fmt.Errorf("history: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("history: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("history: sync: %w", err)
	}
	return f.Close()
}

// LoadAll reads every record in append order. A single malformed row fails
// the whole load.
func (s *Store) LoadAll() ([]model.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a history stream: a header line followed by rows.
func Parse(r io.Reader) ([]model.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	var records []model.Record
	headerSeen := false
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, fmt.Errorf("history: read: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if !headerSeen {
			if err := checkHeader(line, fields); err != nil {
				return nil, err
			}
			headerSeen = true
			continue
		}
		rec, err := parseRecord(line, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// SnapshotTo copies the history file to dstPath atomically.
func (s *Store) SnapshotTo(dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), defaultDirMode); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := copyFile(s.path, dstPath); err != nil {
		return fmt.Errorf("copy history file: %w", err)
	}
	return nil
}

// inspectTail reports whether the file needs a header (missing or empty) and
// whether its last byte is not a newline.
func (s *Store) inspectTail() (needsHeader, needsNewline bool, err error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, false, nil
		}
		return false, false, fmt.Errorf("history: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, false, fmt.Errorf("history: stat: %w", err)
	}
	if info.Size() == 0 {
		return true, false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, false, fmt.Errorf("history: read tail: %w", err)
	}
	return false, last[0] != '\n', nil
}

func checkHeader(line int, fields []string) error {
	if equalFields(fields, legacyHeader) {
		return &ParseError{Line: line, Err: fmt.Errorf("legacy six-column header %q; expected %q",
			strings.Join(fields, ","), strings.Join(Header, ","))}
	}
	if !equalFields(fields, Header) {
		return &ParseError{Line: line, Err: fmt.Errorf("header %q, want %q",
			strings.Join(fields, ","), strings.Join(Header, ","))}
	}
	return nil
}

func parseRecord(line int, fields []string) (model.Record, error) {
	if len(fields) != len(Header) {
		return model.Record{}, &ParseError{Line: line, Err: fmt.Errorf("%d fields, want %d", len(fields), len(Header))}
	}

	flops, err := parseCount(fields[1])
	if err != nil {
		return model.Record{}, &ParseError{Line: line, Field: Header[1], Err: err}
	}
	luts, err := parseCount(fields[2])
	if err != nil {
		return model.Record{}, &ParseError{Line: line, Field: Header[2], Err: err}
	}
	freq, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return model.Record{}, &ParseError{Line: line, Field: Header[3], Err: err}
	}
	if freq < 0 {
		return model.Record{}, &ParseError{Line: line, Field: Header[3], Err: fmt.Errorf("negative value %v", freq)}
	}

	return model.Record{
		Commit:  fields[0],
		Flops:   flops,
		LUTs:    luts,
		FreqMHz: freq,
	}, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func formatRecord(rec model.Record) []string {
	return []string{
		rec.Commit,
		strconv.Itoa(rec.Flops),
		strconv.Itoa(rec.LUTs),
		strconv.FormatFloat(rec.FreqMHz, 'f', -1, 64),
	}
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != b[i] {
			return false
		}
	}
	return true
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dstPath)
}
