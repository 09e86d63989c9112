package tickers

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoad_TickerColumn(t *testing.T) {
	in := "Name,Ticker\nCoca-Cola,ko\nPepsiCo,PEP\nDup,KO\nBlank,\n"
	l, err := Load(strings.NewReader(in))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, want := l.Symbols(), []string{"KO", "PEP"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("symbols = %v, want %v", got, want)
	}
}

func TestLoad_Empty(t *testing.T) {
	l, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("len = %d, want 0", l.Len())
	}
}

func TestList_Edits(t *testing.T) {
	l := New("AAPL", "MSFT")
	if l.Add(" msft ") {
		t.Error("duplicate add changed the list")
	}
	if !l.Add("goog") {
		t.Error("add of a new symbol was rejected")
	}
	if err := l.Rename(0, "aapl"); err != nil {
		t.Errorf("rename to itself: %v", err)
	}
	if err := l.Rename(0, "GOOG"); err == nil {
		t.Error("expected rename onto an existing symbol to fail")
	}
	if err := l.Rename(1, "IBM"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := l.Remove(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := l.Remove(5); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
	if got, want := l.Symbols(), []string{"IBM", "GOOG"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("symbols = %v, want %v", got, want)
	}
	l.Clear()
	if l.Len() != 0 {
		t.Fatal("clear left symbols behind")
	}
}

func TestList_SaveLoad(t *testing.T) {
	l := New("XOM", "CVX")
	var buf bytes.Buffer
	if err := l.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(back.Symbols(), l.Symbols()) {
		t.Fatalf("round trip = %v, want %v", back.Symbols(), l.Symbols())
	}

	path := filepath.Join(t.TempDir(), "tickers.csv")
	if err := l.SaveFile(path); err != nil {
		t.Fatalf("save file: %v", err)
	}
	fromFile, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if fromFile.Len() != 2 {
		t.Fatalf("len = %d, want 2", fromFile.Len())
	}
}
