package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/pkg/types"
)

// JSONFileStore keeps every record in one indented JSON array. A missing or
// unparseable file reads as empty. Writes replace the file atomically and are
// serialized within the process only; run a single writer per file.
type JSONFileStore struct {
	mu   sync.Mutex
	path string
}

func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

func (s *JSONFileStore) Path() string {
	return s.path
}

func (s *JSONFileStore) Append(ctx context.Context, app types.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(ctx)
	if err != nil {
		return err
	}
	records = append(records, app)
	return s.write(records)
}

func (s *JSONFileStore) LoadAll(ctx context.Context) ([]types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

func (s *JSONFileStore) FindByApplicant(ctx context.Context, applicantID string) (types.Application, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(ctx)
	if err != nil {
		return types.Application{}, false, err
	}
	for _, rec := range records {
		if rec.ApplicantID == applicantID {
			return rec, true, nil
		}
	}
	return types.Application{}, false, nil
}

func (s *JSONFileStore) UpdateFinalDecision(ctx context.Context, applicantID, decision, comments string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(ctx)
	if err != nil {
		return false, err
	}
	for i := range records {
		if records[i].ApplicantID != applicantID {
			continue
		}
		records[i].FinalDecision = decision
		records[i].AuditorComments = comments
		if err := s.write(records); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *JSONFileStore) read(ctx context.Context) ([]types.Application, error) {
	// #nosec G304 -- path is operator-configured store path.
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []types.Application{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}

	var records []types.Application
	if err := json.Unmarshal(raw, &records); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "decision file is not a JSON array, treating as empty", "path", s.path, "error", err)
		return []types.Application{}, nil
	}
	if records == nil {
		records = []types.Application{}
	}
	return records, nil
}

func (s *JSONFileStore) write(records []types.Application) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode decisions")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrapf(err, "replace %s", s.path)
	}
	return nil
}
