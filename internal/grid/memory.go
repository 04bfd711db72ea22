package grid

import (
	"context"
	"fmt"

	"rehearsalcal/internal/model"
)

// MemorySource serves sheets held in memory, keyed by workbook path.
type MemorySource struct {
	books map[string][]*Sheet
}

func NewMemorySource() *MemorySource {
	return &MemorySource{books: make(map[string][]*Sheet)}
}

// Add appends a sheet to the workbook at path and returns its index.
func (m *MemorySource) Add(path, name string, rows [][]Cell) int {
	idx := len(m.books[path])
	m.books[path] = append(m.books[path], NewSheet(path, idx, name, rows))
	return idx
}

func (m *MemorySource) ReadSheet(_ context.Context, path string, index int) (*Sheet, error) {
	sheets, ok := m.books[path]
	if !ok {
		return nil, &model.IOError{Op: "open workbook", Path: path, Err: fmt.Errorf("no such workbook")}
	}
	if index < 0 || index >= len(sheets) {
		return nil, &model.IOError{Op: "read sheet", Path: path, Err: fmt.Errorf("cannot find sheet number %d", index)}
	}
	return sheets[index], nil
}
