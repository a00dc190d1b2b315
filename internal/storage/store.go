package storage

import (
	"errors"
	"fmt"
)

const (
	// CheckpointDir holds the intermediate network states of training runs.
	CheckpointDir = "checkpoints"
	// ModelDir holds the exported model versions.
	ModelDir = "models"
	// RecordDir holds the serialized record files.
	RecordDir = "records"
)

var (
	// DefaultDir is the root of the file storage.
	DefaultDir = "file-storage"
)

// Shard creates a new storage implementation for the given shard.
type Shard func(shard string) (Persistence, error)

var (
	NotFoundErr      = errors.New("not found")
	CouldNotLoadErr  = errors.New("could not load")
	UnrecoverableErr = errors.New("unrecoverable error")
)

// Key is the storage key for a general implementation.
// Name identifies the model or run, Label the artifact kind,
// Hash the epoch or version index.
type Key struct {
	Hash  int64  `json:"hash"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

func (k Key) Path() string {
	return fmt.Sprintf("%s_%v_%s", k.Name, k.Hash, k.Label)
}

type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}

// VoidStorage is a noop storage.
type VoidStorage struct {
}

func (d VoidStorage) Store(k Key, value interface{}) error {
	return nil
}

func (d VoidStorage) Load(k Key, value interface{}) error {
	return fmt.Errorf("not found '%v': %w", k, NotFoundErr)
}

// NewVoidStorage creates a new noop storage,
// for training runs that should not leave checkpoints behind.
func NewVoidStorage() *VoidStorage {
	return &VoidStorage{}
}

// VoidShard creates a new noop shard.
func VoidShard(table string) Shard {
	return func(shard string) (Persistence, error) {
		return NewVoidStorage(), nil
	}
}
