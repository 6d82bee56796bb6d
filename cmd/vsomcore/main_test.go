package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadCorpusParsesJSONLAndSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.jsonl")
	content := `{"id":"r1","content":"alpha","embedding":[1,0]}

{"id":"r2","content":"beta","embedding":[0,1],"domains":["user:alice"],"importance":0.5}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	entries, err := readCorpus(path)
	if err != nil {
		t.Fatalf("readCorpus: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "r1" || entries[1].ID != "r2" {
		t.Fatalf("unexpected entry order: %+v", entries)
	}
	if len(entries[1].Domains) != 1 || entries[1].Domains[0] != "user:alice" {
		t.Fatalf("expected domain user:alice, got %+v", entries[1].Domains)
	}
}

func TestReadCorpusMissingFileReturnsError(t *testing.T) {
	if _, err := readCorpus(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Fatal("expected an error for a missing corpus file")
	}
}

func TestReadCorpusRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	if _, err := readCorpus(path); err == nil {
		t.Fatal("expected a parse error for malformed JSON")
	}
}
