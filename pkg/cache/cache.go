// Package cache stores translated programs on disk so unchanged sources
// skip parsing, optimization and code generation.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
	"golang.org/x/crypto/blake2b"

	bferrors "github.com/aHeraud/bf/pkg/errors"
	"github.com/aHeraud/bf/pkg/jit"
	"github.com/aHeraud/bf/pkg/types"
)

// FormatVersion is mixed into every key. Bump it whenever the IR or the
// generated code changes shape so stale entries are never read.
const FormatVersion = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Key identifies a compiled program.
type Key [32]byte

// Entry is what the cache holds for one source text.
type Entry struct {
	Program types.Program `cbor:"1,keyasint"`
	Code    *jit.Code     `cbor:"2,keyasint,omitempty"`
}

// Cache is a pebble-backed store of entries.
type Cache struct {
	db *pebble.DB
}

// Open opens or creates a cache in dir.
func Open(dir string) (*Cache, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, bferrors.WrapCompileError(err, fmt.Sprintf("failed to open cache at %s", dir))
	}
	return &Cache{db: db}, nil
}

// MakeKey hashes everything that affects compilation output.
func MakeKey(source string, optimize bool) Key {
	data := make([]byte, 0, len(source)+2)
	data = append(data, FormatVersion)
	if optimize {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	data = append(data, source...)
	return blake2b.Sum256(data)
}

// Get looks up an entry. A missing or unreadable entry is a miss, not an
// error; only storage failures are returned.
func (c *Cache) Get(key Key) (*Entry, bool, error) {
	value, closer, err := c.db.Get(key[:])
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, bferrors.WrapCompileError(err, "cache read failed")
	}
	defer closer.Close()

	var entry Entry
	if err := cbor.Unmarshal(value, &entry); err != nil {
		commonlog.GetLogger("bf.cache").Warningf("dropping undecodable entry %x: %v", key[:8], err)
		return nil, false, nil
	}
	if err := entry.validate(); err != nil {
		commonlog.GetLogger("bf.cache").Warningf("dropping invalid entry %x: %v", key[:8], err)
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put stores an entry, replacing any previous one.
func (c *Cache) Put(key Key, entry *Entry) error {
	data, err := encMode.Marshal(entry)
	if err != nil {
		return bferrors.WrapCompileError(err, "cache encode failed")
	}
	if err := c.db.Set(key[:], data, pebble.Sync); err != nil {
		return bferrors.WrapCompileError(err, "cache write failed")
	}
	commonlog.GetLogger("bf.cache").Debugf("stored %x (%d bytes)", key[:8], len(data))
	return nil
}

// Delete removes an entry if present.
func (c *Cache) Delete(key Key) error {
	if err := c.db.Delete(key[:], pebble.Sync); err != nil {
		return bferrors.WrapCompileError(err, "cache delete failed")
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// validate rejects entries that would make the translator or the native
// routine misbehave. Stored code must be exactly what the stored program
// translates to.
func (e *Entry) validate() error {
	if err := e.Program.Validate(); err != nil {
		return err
	}
	if e.Code == nil {
		return nil
	}
	want := jit.Translate(e.Program)
	if e.Code.Instructions != want.Instructions {
		return bferrors.CompileErrorf("code covers %d instructions, program has %d", e.Code.Instructions, want.Instructions)
	}
	if !bytes.Equal(e.Code.Bytes, want.Bytes) {
		return bferrors.CompileErrorf("code does not match its program (%d bytes, want %d)", len(e.Code.Bytes), len(want.Bytes))
	}
	if !slices.Equal(e.Code.Relocs, want.Relocs) {
		return bferrors.CompileErrorf("relocations do not match the code")
	}
	return nil
}
