package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "findemybot/pkg/logx"
)

// recentCap bounds how many delivery rows are kept in memory for
// RecentDeliveries; the jsonl file itself keeps the full log.
const recentCap = 300

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.session.json      (atomically replaced snapshot)
//   - <prefix>.deliveries.jsonl  (append-only JSON Lines)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	sessionPath string
	session     *Session

	deliveryFile *os.File
	recent       []DeliveryEntry
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	sessionPath := prefix + ".session.json"
	deliveryPath := prefix + ".deliveries.jsonl"

	session := loadSessionSnapshot(sessionPath)
	recent := replayDeliveries(deliveryPath)

	df, err := os.OpenFile(deliveryPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		sessionPath:  sessionPath,
		session:      session,
		deliveryFile: df,
		recent:       recent,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveryFile != nil {
		err := s.deliveryFile.Close()
		s.deliveryFile = nil
		return err
	}
	return nil
}

func (s *fileStore) SaveSession(ctx context.Context, sess Session) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeSessionSnapshot(s.sessionPath, sess); err != nil {
		return err
	}
	cp := sess
	s.session = &cp
	return nil
}

func (s *fileStore) LoadSession(ctx context.Context) (Session, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.Token == "" {
		return Session{}, false, nil
	}
	return *s.session, true, nil
}

func (s *fileStore) ClearSession(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	if err := os.Remove(s.sessionPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fileStore) AppendDelivery(ctx context.Context, e DeliveryEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveryFile == nil {
		return errors.New("delivery log closed")
	}
	if err := json.NewEncoder(s.deliveryFile).Encode(e); err != nil {
		return err
	}
	s.recent = append(s.recent, e)
	if len(s.recent) > recentCap {
		s.recent = s.recent[len(s.recent)-recentCap:]
	}
	return nil
}

func (s *fileStore) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryEntry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]DeliveryEntry, limit)
	copy(out, s.recent[len(s.recent)-limit:])
	return out, nil
}

func loadSessionSnapshot(path string) *Session {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var sess Session
	if err := json.NewDecoder(f).Decode(&sess); err != nil {
		return nil
	}
	if sess.Token == "" {
		return nil
	}
	return &sess
}

func writeSessionSnapshot(path string, sess Session) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(sess); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func replayDeliveries(path string) []DeliveryEntry {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []DeliveryEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e DeliveryEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
		if len(out) > recentCap {
			out = out[len(out)-recentCap:]
		}
	}
	return out
}
