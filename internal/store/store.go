// Package store persists the desk state. Each collection (theme, base, player,
// active instrument and instruments) is stored as an independent JSON document so
// a corrupt or missing one never affects the others.
package store

import (
	"encoding/json"
	"strings"

	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/internal/version"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

type Collection string

const (
	CollectionTheme       Collection = "theme"
	CollectionBase        Collection = "base"
	CollectionPlayer      Collection = "player"
	CollectionActive      Collection = "active"
	CollectionInstruments Collection = "instruments"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{
	CollectionTheme,
	CollectionBase,
	CollectionPlayer,
	CollectionActive,
	CollectionInstruments,
}

// Backend reads and writes raw collection documents.
type Backend interface {
	// Get returns the stored document, or found=false when the collection was never written.
	Get(collection Collection) (data []byte, found bool, err error)
	Put(collection Collection, data []byte) error
	Close() error
}

type Driver string

const (
	DriverFile   Driver = "file"
	DriverDuckDB Driver = "duckdb"
	DriverMemory Driver = "memory"
)

// instrumentsEnvelope is the persisted shape of the instruments collection.
type instrumentsEnvelope struct {
	Version     string              `json:"version"`
	Instruments []*types.Instrument `json:"instruments"`
}

// Store is the typed view over a Backend.
type Store struct {
	backend Backend
}

// New wraps a backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Open creates the backend for driver rooted at path and wraps it.
func Open(driver Driver, path string) (*Store, error) {
	switch driver {
	case DriverFile:
		backend, err := NewFileBackend(path)
		if err != nil {
			return nil, err
		}

		return New(backend), nil
	case DriverDuckDB:
		backend, err := NewDuckDBBackend(path)
		if err != nil {
			return nil, err
		}

		return New(backend), nil
	case DriverMemory:
		return New(NewMemoryBackend()), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown store driver %q", driver)
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func load[T any](s *Store, c Collection) (T, bool, error) {
	var out T

	data, found, err := s.backend.Get(c)
	if err != nil {
		return out, false, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to read %s", c)
	}

	if !found {
		return out, false, nil
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to decode %s", c)
	}

	return out, true, nil
}

func save(s *Store, c Collection, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to encode %s", c)
	}

	if err := s.backend.Put(c, data); err != nil {
		return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to write %s", c)
	}

	return nil
}

// LoadTheme returns the stored theme.
func (s *Store) LoadTheme() (types.Theme, bool, error) {
	theme, found, err := load[types.Theme](s, CollectionTheme)
	if err != nil || !found {
		return "", false, err
	}

	if !theme.Valid() {
		return "", false, errors.Newf(errors.ErrCodeLoadFailed, "unknown theme %q", theme)
	}

	return theme, true, nil
}

func (s *Store) SaveTheme(theme types.Theme) error {
	return save(s, CollectionTheme, theme)
}

// LoadBase returns the stored base currency code.
func (s *Store) LoadBase() (string, bool, error) {
	base, found, err := load[string](s, CollectionBase)
	if err != nil || !found {
		return "", false, err
	}

	base = strings.ToUpper(strings.TrimSpace(base))
	if len(base) != 3 {
		return "", false, errors.Newf(errors.ErrCodeLoadFailed, "malformed base currency %q", base)
	}

	return base, true, nil
}

func (s *Store) SaveBase(base string) error {
	return save(s, CollectionBase, base)
}

func (s *Store) LoadPlayer() (string, bool, error) {
	return load[string](s, CollectionPlayer)
}

func (s *Store) SavePlayer(player string) error {
	return save(s, CollectionPlayer, player)
}

// LoadActive returns the key of the selected instrument.
func (s *Store) LoadActive() (string, bool, error) {
	return load[string](s, CollectionActive)
}

func (s *Store) SaveActive(key string) error {
	return save(s, CollectionActive, key)
}

// LoadInstruments returns the stored instruments. The envelope version must be
// compatible with the current schema version; a version error is returned as is.
func (s *Store) LoadInstruments() ([]*types.Instrument, bool, error) {
	env, found, err := load[instrumentsEnvelope](s, CollectionInstruments)
	if err != nil || !found {
		return nil, false, err
	}

	if err := version.CheckSchemaCompatibility(version.SchemaVersion, env.Version); err != nil {
		return nil, false, err
	}

	seen := make(map[string]struct{}, len(env.Instruments))
	out := make([]*types.Instrument, 0, len(env.Instruments))

	for idx, inst := range env.Instruments {
		if inst == nil {
			return nil, false, errors.Newf(errors.ErrCodeLoadFailed, "instrument #%d is null", idx)
		}

		if want := types.InstrumentKeyFor(inst.Identity); inst.Key != want {
			return nil, false, errors.Newf(errors.ErrCodeLoadFailed, "instrument key %q does not match its identity (%s)", inst.Key, want)
		}

		if _, dup := seen[inst.Key]; dup {
			return nil, false, errors.Newf(errors.ErrCodeLoadFailed, "duplicate instrument %q", inst.Key)
		}

		seen[inst.Key] = struct{}{}

		out = append(out, inst)
	}

	return out, true, nil
}

// SaveInstruments writes the whole instruments collection.
func (s *Store) SaveInstruments(instruments []*types.Instrument) error {
	list := instruments
	if list == nil {
		list = make([]*types.Instrument, 0)
	}

	for _, inst := range list {
		if inst == nil {
			return errors.New(errors.ErrCodePersistFailed, "cannot persist a nil instrument")
		}
	}

	return save(s, CollectionInstruments, instrumentsEnvelope{
		Version:     version.SchemaVersion,
		Instruments: list,
	})
}
