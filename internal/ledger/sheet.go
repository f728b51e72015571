package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JaimeStill/concord/internal/corpus"
)

const (
	ledgerSheet  = "ledger"
	sourcesSheet = "sources"
)

// WriteWorkbook renders a snapshot as an xlsx grid: one row per sentence with
// the fixed id, date, and sentence columns followed by one column per source.
// Source kinds and registration times go to a second sheet.
func WriteWorkbook(w io.Writer, snap *Snapshot) error {
	f, err := buildWorkbook(snap)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// ReadWorkbook parses a grid produced by WriteWorkbook, or a hand-maintained
// sheet with the same leading columns. Without a sources sheet every extra
// column is registered as a human source.
func ReadWorkbook(r io.Reader) (*Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSheet, err)
	}
	defer f.Close()
	return parseWorkbook(f)
}

func buildWorkbook(snap *Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), ledgerSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := make([]any, 0, len(FixedColumns)+len(snap.Sources))
	for _, c := range FixedColumns {
		header = append(header, c)
	}
	for _, src := range snap.Sources {
		header = append(header, src.Name)
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}

	for i, rec := range snap.Records {
		row := []any{rec.ID, rec.DateString(), rec.Text}
		for _, src := range snap.Sources {
			cell := ""
			if v, ok := snap.Labels[src.Name][rec.ID]; ok {
				cell = v.String()
			}
			row = append(row, cell)
		}

		axis, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ledgerSheet, axis, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.NewSheet(sourcesSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(sourcesSheet, "A1", &[]any{"name", "kind", "created_at"}); err != nil {
		f.Close()
		return nil, err
	}
	for i, src := range snap.Sources {
		axis, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{src.Name, string(src.Kind), src.CreatedAt.UTC().Format(time.RFC3339Nano)}
		if err := f.SetSheetRow(sourcesSheet, axis, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func parseWorkbook(f *excelize.File) (*Snapshot, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrInvalidSheet)
	}

	data := sheets[0]
	if slices.Contains(sheets, ledgerSheet) {
		data = ledgerSheet
	}

	rows, err := f.GetRows(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSheet, err)
	}

	snap := &Snapshot{Labels: make(map[string]map[int]Value)}
	if len(rows) == 0 {
		return snap, nil
	}

	header := rows[0]
	if len(header) < len(FixedColumns) {
		return nil, fmt.Errorf("%w: header must start with %s", ErrInvalidSheet, strings.Join(FixedColumns, ","))
	}
	for i, want := range FixedColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrInvalidSheet, i+1, header[i], want)
		}
	}

	kinds := make(map[string]Source)
	if slices.Contains(sheets, sourcesSheet) {
		kinds, err = parseSources(f)
		if err != nil {
			return nil, err
		}
	}

	columns := header[len(FixedColumns):]
	for _, name := range columns {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty source column", ErrInvalidSheet)
		}
		src, ok := kinds[name]
		if !ok {
			src = Source{Name: name, Kind: Human}
		}
		snap.Sources = append(snap.Sources, src)
		snap.Labels[name] = make(map[int]Value)
	}

	for n, row := range rows[1:] {
		line := n + 2
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid id %q", ErrInvalidSheet, line, row[0])
		}

		rec := corpus.Record{ID: id}
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			d, err := corpus.ParseDate(strings.TrimSpace(row[1]))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid date %q", ErrInvalidSheet, line, row[1])
			}
			rec.Date = &d
		}
		if len(row) > 2 {
			rec.Text = row[2]
		}
		snap.Records = append(snap.Records, rec)

		for c, src := range snap.Sources {
			i := len(FixedColumns) + c
			if i >= len(row) {
				break
			}
			v, ok, err := ParseValue(row[i])
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, column %q: %w", ErrInvalidSheet, line, src.Name, err)
			}
			if ok {
				snap.Labels[src.Name][id] = v
			}
		}
	}

	slices.SortFunc(snap.Records, func(a, b corpus.Record) int { return a.ID - b.ID })
	return snap, nil
}

func parseSources(f *excelize.File) (map[string]Source, error) {
	rows, err := f.GetRows(sourcesSheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSheet, err)
	}

	out := make(map[string]Source)
	for _, row := range rows[min(1, len(rows)):] {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		src := Source{Name: row[0], Kind: Human}
		if len(row) > 1 {
			kind, err := ParseKind(row[1])
			if err != nil {
				return nil, fmt.Errorf("%w: source %q: %w", ErrInvalidSheet, row[0], err)
			}
			src.Kind = kind
		}
		if len(row) > 2 {
			if t, err := time.Parse(time.RFC3339Nano, row[2]); err == nil {
				src.CreatedAt = t
			}
		}
		out[src.Name] = src
	}
	return out, nil
}

// sheetStore keeps the grid in memory and rewrites the workbook after every
// mutation. dirty is set while the file lags behind memory, so the next
// mutating call saves even when it changes nothing itself.
type sheetStore struct {
	*memoryStore
	path  string
	mu    sync.Mutex
	dirty bool
}

// OpenSheetStore opens the workbook at path, creating it on first save when
// it does not exist.
func OpenSheetStore(path string, match MatchMode) (Store, error) {
	s := &sheetStore{memoryStore: newMemoryStore(match), path: path}

	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger sheet: %w", err)
	}
	defer f.Close()

	snap, err := parseWorkbook(f)
	if err != nil {
		return nil, err
	}
	if err := s.restore(snap); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sheetStore) Load(ctx context.Context, records []corpus.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.memoryStore.Load(ctx, records)
	if err != nil {
		return added, err
	}
	if added == 0 && !s.dirty {
		return 0, nil
	}
	return added, s.save(ctx)
}

func (s *sheetStore) RegisterSource(ctx context.Context, name string, kind Kind) (Source, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, created, err := s.memoryStore.RegisterSource(ctx, name, kind)
	if err != nil {
		return src, created, err
	}
	if !created && !s.dirty {
		return src, false, nil
	}
	return src, created, s.save(ctx)
}

func (s *sheetStore) Put(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.memoryStore.Put(ctx, e); err != nil {
		return err
	}
	return s.save(ctx)
}

func (s *sheetStore) save(ctx context.Context) error {
	s.dirty = true

	snap, err := s.memoryStore.Snapshot(ctx)
	if err != nil {
		return err
	}

	f, err := buildWorkbook(snap)
	if err != nil {
		return fmt.Errorf("render ledger sheet: %w", err)
	}
	defer f.Close()

	tmp := filepath.Join(filepath.Dir(s.path), "~"+filepath.Base(s.path))
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("save ledger sheet: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("save ledger sheet: %w", err)
	}

	s.dirty = false
	return nil
}
