package n8n

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
)

// Fixed file names the n8n workflows read back.
const (
	ChaptersFile        = "chapters.json"
	TranscriptFile      = "transcript_generated.json"
	KVDataFile          = "kv_data.json"
	KVDataRevisedFile   = "kv_data_revised.json"
	DataWithPromptFile  = "data_w_prompt.json"
	defaultSubdirectory = "n8n"
)

// Store writes JSON documents into output/n8n.
type Store struct {
	box *dependency.PathManager
	mu  sync.Mutex
}

// NewStore creates a Store under paths' root.
func NewStore(paths *dependency.PathManager) *Store {
	return &Store{box: dependency.NewPathManager(filepath.Join(paths.Root(), defaultSubdirectory))}
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.box.Root()
}

// WriteRaw re-indents a JSON document with four spaces and writes it as
// name. Non-ASCII text is kept as is.
func (s *Store) WriteRaw(name string, raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return "", fmt.Errorf("invalid json payload: %w", err)
	}
	buf.WriteByte('\n')
	return s.write(name, buf.Bytes())
}

// WriteJSON encodes v with four-space indentation and writes it as name.
func (s *Store) WriteJSON(name string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return s.write(name, buf.Bytes())
}

func (s *Store) write(name string, data []byte) (string, error) {
	path, err := s.box.Resolve(filepath.Join(s.box.Root(), name))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create n8n dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// SaveChapters writes chapters to chapters.json.
func (s *Store) SaveChapters(chapters []Chapter) (string, error) {
	if chapters == nil {
		chapters = []Chapter{}
	}
	return s.WriteJSON(ChaptersFile, chapters)
}
