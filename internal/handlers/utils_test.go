package handlers

import "testing"

func TestCorpusFilePath(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantOK   bool
	}{
		{"plain filename", "notes.pdf", true},
		{"empty", "", false},
		{"parent traversal", "../secrets.txt", false},
		{"nested path", "sub/notes.pdf", false},
		{"absolute path", "/etc/passwd", false},
		{"hidden file", ".compass_index.json", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := corpusFilePath(tc.filename)
			if ok != tc.wantOK {
				t.Errorf("corpusFilePath(%q) ok = %v, want %v", tc.filename, ok, tc.wantOK)
			}
		})
	}
}
