package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
)

// DefaultFileName is the route document name used when no path is configured.
const DefaultFileName = "user_topics.json"

// FileStore keeps the table as an indented JSON object mapping the decimal
// user id to the topic id:
//
//	{
//	    "111111": 501
//	}
//
// Keys are written in table order and read back in document order.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore creates a store for path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{fs: fs, path: path}
}

// Path returns the document path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty table.
func (s *FileStore) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	entries, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return entries, nil
}

// Save writes the document to a temporary file and renames it over the old one.
func (s *FileStore) Save(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeDocument(entries)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Ping checks that the document's directory is reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := s.fs.Stat(filepath.Dir(s.path))
	return err
}

// EncodeDocument renders entries as the route document.
func EncodeDocument(entries []Entry) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('"')
		compact.WriteString(strconv.FormatInt(e.UserID, 10))
		compact.WriteString(`":`)
		compact.WriteString(strconv.Itoa(e.TopicID))
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, fmt.Errorf("encode routes: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// DecodeDocument parses a route document, keeping key order.
// Any deviation from {"<int>": <int>, ...} is ErrCorrupt, including user
// ids spelled other than as FormatInt would write them ("007", "+7").
func DecodeDocument(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected object, got %v", ErrCorrupt, tok)
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		key, _ := tok.(string)
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: user id %q is not an integer", ErrCorrupt, key)
		}
		if strconv.FormatInt(userID, 10) != key {
			return nil, fmt.Errorf("%w: user id %q is not in canonical form", ErrCorrupt, key)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		topicID, err := strconv.Atoi(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: topic id %s for user %d is not an integer", ErrCorrupt, raw, userID)
		}

		entries = append(entries, Entry{UserID: userID, TopicID: topicID})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrCorrupt)
	}

	return entries, nil
}
