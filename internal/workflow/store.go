package workflow

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// indentSpaces is the indentation of serialized workflows.
const indentSpaces = 2

// Store reads and writes workflow files on a billy filesystem.
type Store struct {
	fs billy.Filesystem
}

// NewStore returns a Store over fs.
func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewOSStore returns a Store over the host filesystem. Relative paths are
// resolved against the working directory.
func NewOSStore() *Store {
	return NewStore(osfs.New("/"))
}

// FS exposes the underlying filesystem.
func (s *Store) FS() billy.Filesystem { return s.fs }

// Resolve makes path absolute so every filesystem sees the same name.
func (s *Store) Resolve(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// FileInfo is the part of a file's metadata used to detect changes.
type FileInfo struct {
	Size    int64
	ModTime time.Time
	Mode    os.FileMode
}

// Stat returns size, modification time and mode of path.
func (s *Store) Stat(path string) (FileInfo, error) {
	fi, err := s.fs.Stat(s.Resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileInfo{}, Errorf(ErrNotFound, "workflow file not found: %s", path)
		}
		return FileInfo{}, Errorf(ErrIO, "stat %s: %w", path, err)
	}
	return FileInfo{Size: fi.Size(), ModTime: fi.ModTime(), Mode: fi.Mode()}, nil
}

// ReadFile returns the raw bytes of path.
func (s *Store) ReadFile(path string) ([]byte, error) {
	f, err := s.fs.Open(s.Resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Errorf(ErrNotFound, "file not found: %s", path)
		}
		return nil, Errorf(ErrIO, "open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, Errorf(ErrIO, "read %s: %w", path, err)
	}
	return data, nil
}

// ReadWorkflow is ReadFile with the workflow-specific not-found message.
func (s *Store) ReadWorkflow(path string) ([]byte, error) {
	data, err := s.ReadFile(path)
	if errors.Is(err, ErrNotFound) {
		return nil, Errorf(ErrNotFound, "workflow file not found: %s", path)
	}
	return data, err
}

// Parse reads path into a Document.
func (s *Store) Parse(path string) (*Document, error) {
	data, err := s.ReadWorkflow(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, path)
}

// ParseBytes parses workflow XML. name is only used in error messages.
func ParseBytes(data []byte, name string) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, Errorf(ErrFormat, "%s is not well-formed XML: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, Errorf(ErrFormat, "%s has no root element", name)
	}
	return &Document{xml: doc}, nil
}

// Marshal serializes doc with two-space indentation and an XML declaration.
func Marshal(doc *Document) ([]byte, error) {
	ensureDeclaration(doc.xml)
	settings := etree.NewIndentSettings()
	settings.Spaces = indentSpaces
	settings.PreserveLeafWhitespace = true
	doc.xml.IndentWithSettings(settings)

	var buf bytes.Buffer
	if _, err := doc.xml.WriteTo(&buf); err != nil {
		return nil, Errorf(ErrIO, "serialize workflow: %w", err)
	}
	return buf.Bytes(), nil
}

func ensureDeclaration(doc *etree.Document) {
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			return
		}
	}
	doc.InsertChildAt(0, etree.NewProcInst("xml", `version="1.0" encoding="utf-8"`))
}

// Write serializes doc to path. The content goes to a temp file in the same
// directory which is then renamed over path, so a failed write never leaves
// a truncated workflow behind. An existing file keeps its mode.
func (s *Store) Write(doc *Document, path string) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	target := s.Resolve(path)

	tmp, err := s.fs.TempFile(filepath.Dir(target), ".yxflow-*")
	if err != nil {
		return Errorf(ErrIO, "create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return Errorf(ErrIO, "write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return Errorf(ErrIO, "close temp for %s: %w", path, err)
	}

	if info, err := s.fs.Stat(target); err == nil {
		if ch, ok := s.fs.(billy.Change); ok {
			_ = ch.Chmod(tmpName, info.Mode())
		}
	}

	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName)
		return Errorf(ErrIO, "rename temp to %s: %w", path, err)
	}
	return nil
}
