package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/jacentio/flexdb/document"
)

var _ Store = (*BoltStore)(nil)

// BoltStore keeps documents in an embedded bbolt database, one bucket per
// collection. Documents are stored as JSON without their id field; the id is
// the bucket key.
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger

	// NewID generates record ids. Defaults to NewID.
	NewID func() string
}

// OpenBolt opens (creating if needed) the database file.
func OpenBolt(config BoltConfig, logger *slog.Logger) (*BoltStore, error) {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o777); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(config.Path), err)
	}
	db, err := bolt.Open(config.Path, 0o666, &bolt.Options{Timeout: config.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Path, err)
	}

	logger.Info("opened bolt store", "path", config.Path)
	return &BoltStore{
		db:     db,
		path:   config.Path,
		logger: logger,
		NewID:  NewID,
	}, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Create stores content under a new id.
func (s *BoltStore) Create(ctx context.Context, collection string, content document.Object) (document.Object, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}
	fields := userFields(content)
	rid := document.RecordID{Collection: collection, ID: s.NewID()}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", collection, err)
		}
		if b.Get([]byte(rid.ID)) != nil {
			return ErrAlreadyExists
		}
		return putDocument(b, rid.ID, fields)
	})
	if err != nil {
		return nil, err
	}
	return withRecord(fields, rid), nil
}

// Select returns the collection's documents in id order.
func (s *BoltStore) Select(ctx context.Context, collection string) ([]document.Object, error) {
	docs := []document.Object{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			fields, err := decodeDocument(v)
			if err != nil {
				return fmt.Errorf("decode %s:%s: %w", collection, k, err)
			}
			docs = append(docs, withRecord(fields, document.RecordID{Collection: collection, ID: string(k)}))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Get returns the document or ErrNotFound.
func (s *BoltStore) Get(ctx context.Context, rid document.RecordID) (document.Object, error) {
	var doc document.Object
	err := s.db.View(func(tx *bolt.Tx) error {
		fields, err := loadDocument(tx, rid)
		if err != nil {
			return err
		}
		doc = withRecord(fields, rid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Merge overwrites the fields present in content.
func (s *BoltStore) Merge(ctx context.Context, rid document.RecordID, content document.Object) (document.Object, error) {
	return s.modify(rid, func(fields document.Object) error {
		for k, v := range userFields(content) {
			fields[k] = v
		}
		return nil
	})
}

// Append adds v to the array in field.
func (s *BoltStore) Append(ctx context.Context, rid document.RecordID, field string, v document.Value) (document.Object, error) {
	if isReserved(field) {
		return nil, fmt.Errorf("%w: %s", ErrReservedField, field)
	}
	return s.modify(rid, func(fields document.Object) error {
		switch cur := fields[field].(type) {
		case nil:
			fields[field] = document.Array{v}
		case document.Array:
			fields[field] = append(cur, v)
		default:
			return fmt.Errorf("%w: %s holds %s", ErrNotArray, field, document.TypeName(cur))
		}
		return nil
	})
}

// modify loads a document, lets fn change it and writes it back in one
// read-write transaction.
func (s *BoltStore) modify(rid document.RecordID, fn func(document.Object) error) (document.Object, error) {
	var doc document.Object
	err := s.db.Update(func(tx *bolt.Tx) error {
		fields, err := loadDocument(tx, rid)
		if err != nil {
			return err
		}
		if err := fn(fields); err != nil {
			return err
		}
		if err := putDocument(tx.Bucket([]byte(rid.Collection)), rid.ID, fields); err != nil {
			return err
		}
		doc = withRecord(fields, rid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Exec applies every update inside one bolt read-write transaction. Any
// failing statement rolls the whole batch back.
func (s *BoltStore) Exec(ctx context.Context, b *Batch) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, stmt := range b.Updates() {
			if err := applyStatement(tx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return b.Len(), nil
}

func applyStatement(tx *bolt.Tx, stmt Statement) error {
	fields, err := loadDocument(tx, stmt.Record)
	if err != nil {
		return fmt.Errorf("%s: %w", stmt, err)
	}

	var current document.Number
	switch cur := fields[stmt.Field].(type) {
	case nil, document.Null:
	case document.Number:
		current = cur
	default:
		return fmt.Errorf("%w: %s: %s holds %s", ErrNotNumber, stmt, stmt.Field, document.TypeName(cur))
	}

	next, err := stmt.Apply(current)
	if err != nil {
		return fmt.Errorf("%s: %w", stmt, err)
	}
	fields[stmt.Field] = next
	return putDocument(tx.Bucket([]byte(stmt.Record.Collection)), stmt.Record.ID, fields)
}

// loadDocument reads the stored fields of rid.
func loadDocument(tx *bolt.Tx, rid document.RecordID) (document.Object, error) {
	b := tx.Bucket([]byte(rid.Collection))
	if b == nil {
		return nil, ErrNotFound
	}
	data := b.Get([]byte(rid.ID))
	if data == nil {
		return nil, ErrNotFound
	}
	return decodeDocument(data)
}

func putDocument(b *bolt.Bucket, id string, fields document.Object) error {
	data, err := document.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	return b.Put([]byte(id), data)
}

func decodeDocument(data []byte) (document.Object, error) {
	return document.ParseObject(data)
}
