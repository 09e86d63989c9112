// Package tickers manages the ordered list of symbols fed to discovery.
package tickers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"PairSentinel/internal/tabular"
)

// ErrIndex is returned for positions outside the list.
var ErrIndex = errors.New("ticker index out of range")

// List is an ordered, duplicate-free set of symbols. The zero value is empty
// and ready to use.
type List struct {
	symbols []string
}

// New builds a list from symbols, normalizing and dropping duplicates.
func New(symbols ...string) *List {
	l := &List{}
	for _, s := range symbols {
		l.Add(s)
	}
	return l
}

// Load reads a CSV with a Ticker column. Other columns are ignored.
func Load(r io.Reader) (*List, error) {
	var rows []*tabular.TickerRow
	if err := tabular.Read(r, &rows); err != nil {
		return nil, fmt.Errorf("load tickers: %w", err)
	}
	l := &List{}
	for _, row := range rows {
		l.Add(row.Ticker)
	}
	return l, nil
}

// LoadFile reads a ticker CSV from path.
func LoadFile(path string) (*List, error) {
	var rows []*tabular.TickerRow
	if err := tabular.ReadFile(path, &rows); err != nil {
		return nil, fmt.Errorf("load tickers: %w", err)
	}
	l := &List{}
	for _, row := range rows {
		l.Add(row.Ticker)
	}
	return l, nil
}

// Save writes the list as a Ticker CSV.
func (l *List) Save(w io.Writer) error {
	return tabular.Write(w, l.rows())
}

// SaveFile writes the list to path.
func (l *List) SaveFile(path string) error {
	return tabular.WriteFile(path, l.rows())
}

func (l *List) rows() []*tabular.TickerRow {
	rows := make([]*tabular.TickerRow, len(l.symbols))
	for i, s := range l.symbols {
		rows[i] = &tabular.TickerRow{Ticker: s}
	}
	return rows
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Add appends symbol unless it is blank or already present. It reports
// whether the list changed.
func (l *List) Add(symbol string) bool {
	s := normalize(symbol)
	if s == "" || l.Contains(s) {
		return false
	}
	l.symbols = append(l.symbols, s)
	return true
}

// Contains reports whether symbol is in the list.
func (l *List) Contains(symbol string) bool {
	s := normalize(symbol)
	for _, v := range l.symbols {
		if v == s {
			return true
		}
	}
	return false
}

// Rename replaces the symbol at idx. Renaming onto an existing symbol fails.
func (l *List) Rename(idx int, symbol string) error {
	if idx < 0 || idx >= len(l.symbols) {
		return fmt.Errorf("rename %d: %w", idx, ErrIndex)
	}
	s := normalize(symbol)
	if s == "" {
		return fmt.Errorf("rename %d: empty symbol", idx)
	}
	if s != l.symbols[idx] && l.Contains(s) {
		return fmt.Errorf("rename %d: %s already listed", idx, s)
	}
	l.symbols[idx] = s
	return nil
}

// Remove deletes the symbol at idx.
func (l *List) Remove(idx int) error {
	if idx < 0 || idx >= len(l.symbols) {
		return fmt.Errorf("remove %d: %w", idx, ErrIndex)
	}
	l.symbols = append(l.symbols[:idx], l.symbols[idx+1:]...)
	return nil
}

// Clear empties the list.
func (l *List) Clear() { l.symbols = nil }

// Len returns the number of symbols.
func (l *List) Len() int { return len(l.symbols) }

// Symbols returns a copy of the symbols in insertion order.
func (l *List) Symbols() []string {
	out := make([]string, len(l.symbols))
	copy(out, l.symbols)
	return out
}
