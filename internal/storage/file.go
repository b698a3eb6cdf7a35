// Package storage persists finished game sessions as JSON snapshots, one
// file per game, and reads them back for reporting.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"fourmind/internal/session"
)

// FileStore writes one chat_<id>.json file per archived session under dir.
// It is safe for concurrent use; each archive is an independent file write.
type FileStore struct {
	dir string
	log zerolog.Logger
}

func NewFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure store dir: %w", err)
	}
	return &FileStore{
		dir: dir,
		log: log.With().Str("component", "storage").Logger(),
	}, nil
}

// Archive writes the final snapshot of a session.
func (s *FileStore) Archive(snap session.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("chat_%s.json", idSuffix(snap.ID)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.log.Debug().Str("path", path).Msg("session persisted")
	return nil
}

// LoadSnapshots reads every persisted session. Unreadable files are logged
// and skipped.
func (s *FileStore) LoadSnapshots() ([]session.Snapshot, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "chat_*.json"))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var snaps []session.Snapshot
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable snapshot")
			continue
		}
		var snap session.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skipping malformed snapshot")
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// idSuffix keeps at most the last 8 digits of a game id for the filename.
func idSuffix(id int64) string {
	str := strconv.FormatInt(id, 10)
	if len(str) > 8 {
		str = str[len(str)-8:]
	}
	return str
}
