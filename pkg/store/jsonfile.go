package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/voidshard/tillcounter/pkg/domain"
)

// document is the on disk layout shared by the file stores.
type document struct {
	Status       *domain.RegisterStatus `json:"status,omitempty"`
	Transactions []*domain.Transaction  `json:"transactions"`
}

// codec turns a document into bytes on disk and back.
type codec interface {
	encode([]byte) ([]byte, error)
	decode([]byte) ([]byte, error)
}

type plain struct{}

func (plain) encode(b []byte) ([]byte, error) { return b, nil }
func (plain) decode(b []byte) ([]byte, error) { return b, nil }

// JSONFile keeps the whole ledger in one JSON file, rewritten on every
// change.
type JSONFile struct {
	mu       sync.Mutex
	filename string
	codec    codec
}

var _ Store = &JSONFile{}
var _ Exporter = &JSONFile{}

func NewJSONFile(filename string) *JSONFile {
	return &JSONFile{filename: filename, codec: plain{}}
}

func (f *JSONFile) List(_ context.Context) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return doc.Transactions, nil
}

func (f *JSONFile) Append(_ context.Context, t *domain.Transaction, st *domain.RegisterStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.Transactions = append([]*domain.Transaction{t}, doc.Transactions...)
	doc.Status = st
	return f.write(doc)
}

func (f *JSONFile) LoadStatus(_ context.Context) (*domain.RegisterStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return doc.Status, nil
}

func (f *JSONFile) SaveStatus(_ context.Context, st *domain.RegisterStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.Status = st
	return f.write(doc)
}

// Write dumps txns to the file, dropping any saved status.
func (f *JSONFile) Write(txns []*domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(&document{Transactions: txns})
}

func (f *JSONFile) read() (*document, error) {
	data, err := os.ReadFile(f.filename)
	if os.IsNotExist(err) {
		return &document{Transactions: []*domain.Transaction{}}, nil
	} else if err != nil {
		return nil, err
	}

	data, err = f.codec.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.filename, err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.filename, err)
	}
	if doc.Transactions == nil {
		doc.Transactions = []*domain.Transaction{}
	}
	return doc, nil
}

// write replaces the file via a temp file + rename so readers never see a
// half written document.
func (f *JSONFile) write(doc *document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	data, err = f.codec.encode(data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.filename), filepath.Base(f.filename)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.filename)
}
