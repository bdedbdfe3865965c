package models

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestNewSelection(t *testing.T) {
	data := append([]byte(nil), pngHeader...)
	sel := NewSelection("/uploads/scan.png", data)

	if sel.Name != "scan.png" {
		t.Errorf("Expected base name, got %q", sel.Name)
	}
	if sel.Size != int64(len(pngHeader)) {
		t.Errorf("Expected size %d, got %d", len(pngHeader), sel.Size)
	}
	if sel.ContentType != "image/png" {
		t.Errorf("Expected image/png, got %q", sel.ContentType)
	}

	// The selection owns a copy of the bytes
	data[0] = 0
	rc, err := sel.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if got[0] != 0x89 {
		t.Error("Expected selection to be unaffected by caller mutation")
	}
}

func TestOpenSelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marksheet.pdf")
	content := []byte("%PDF-1.4\n%%EOF\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	sel, err := OpenSelection(path)
	if err != nil {
		t.Fatalf("OpenSelection failed: %v", err)
	}
	if sel.Name != "marksheet.pdf" || sel.Size != int64(len(content)) {
		t.Errorf("Unexpected selection: %+v", sel)
	}
	if sel.ContentType != "application/pdf" {
		t.Errorf("Expected application/pdf, got %q", sel.ContentType)
	}

	// Each upload re-reads the file
	for i := 0; i < 2; i++ {
		rc, err := sel.Open()
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != string(content) {
			t.Errorf("Open #%d returned %q", i, got)
		}
	}

	if _, err := OpenSelection(dir); err == nil {
		t.Error("Expected directories to be rejected")
	}
	if _, err := OpenSelection(filepath.Join(dir, "missing.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestSelection_OpenWithoutContent(t *testing.T) {
	var nilSel *Selection
	if _, err := nilSel.Open(); err == nil {
		t.Error("Expected error opening a nil selection")
	}
	if _, err := (&Selection{Name: "x"}).Open(); err == nil {
		t.Error("Expected error opening a selection without content")
	}
}

func TestSelection_CheckSize(t *testing.T) {
	sel := NewSelection("a.txt", []byte("hello world"))

	if err := sel.CheckSize(0); err != nil {
		t.Errorf("Expected no limit for 0, got %v", err)
	}
	if err := sel.CheckSize(11); err != nil {
		t.Errorf("Expected exact size to pass, got %v", err)
	}
	if err := sel.CheckSize(10); !errors.Is(err, ErrSelectionTooLarge) {
		t.Errorf("Expected ErrSelectionTooLarge, got %v", err)
	}
}
