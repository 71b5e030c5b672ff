package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/CompassAPI/internal/adapter/utils"
	"github.com/akolanti/CompassAPI/internal/config"
)

// Entry is the durable ingestion record for one file. Hash is a content hash,
// the change-detection key; DocumentID is a path hash and survives content
// changes.
type Entry struct {
	DocumentID     string    `json:"document_id"`
	Hash           string    `json:"hash"`
	SizeBytes      int64     `json:"size_bytes"`
	TotalChunks    int       `json:"total_chunks"`
	LastIngestedAt time.Time `json:"last_ingested_at"`
}

// Manifest maps filename -> Entry. It lives as a JSON file inside the corpus
// directory, next to the documents it describes.
type Manifest map[string]Entry

// PlannedFile is one sync decision: this file, with this content hash, gets
// (re)ingested.
type PlannedFile struct {
	Path string
	Hash string
}

// Load reads the manifest from the corpus directory. A missing file is an
// empty manifest, not an error.
func Load(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, config.ManifestFilename))
	if os.IsNotExist(err) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := Manifest{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Save persists the manifest atomically - write to a temp file in the same
// directory, then rename over the old one.
func Save(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	target := filepath.Join(dir, config.ManifestFilename)
	tmp, err := os.CreateTemp(dir, config.ManifestFilename+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Update records a successful ingestion of filename.
func (m Manifest) Update(filename, documentID, hash string, sizeBytes int64, totalChunks int) {
	m[filename] = Entry{
		DocumentID:     documentID,
		Hash:           hash,
		SizeBytes:      sizeBytes,
		TotalChunks:    totalChunks,
		LastIngestedAt: time.Now().UTC(),
	}
}

// PlanSync enumerates regular files directly under dir (non-recursive) with
// an allowed extension and decides which need (re)ingestion: force, no entry
// yet, or a content hash that differs from the stored one. Read-only - the
// manifest is not touched here.
func PlanSync(dir string, m Manifest, force bool) ([]PlannedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	allowed := config.AllowedExtensionSet()

	var plan []PlannedFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowed[ext]; !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		hash, err := utils.HashFile(path)
		if err != nil {
			return nil, err
		}
		if !force {
			if existing, ok := m[entry.Name()]; ok && existing.Hash == hash {
				continue
			}
		}
		plan = append(plan, PlannedFile{Path: path, Hash: hash})
	}
	return plan, nil
}
