// Package irpack serializes IR modules. The on-disk form carries a
// schema version; decoding a payload written by a different schema
// fails instead of misreading it.
package irpack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"keel/internal/ir"
)

// SchemaVersion changes whenever the payload layout changes.
const SchemaVersion uint16 = 1

type payload struct {
	Schema uint16
	Module *ir.Module
}

// Encode writes m to w.
func Encode(w io.Writer, m *ir.Module) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&payload{Schema: SchemaVersion, Module: m}); err != nil {
		return fmt.Errorf("encode module %s: %w", m.Name, err)
	}
	return nil
}

// Decode reads a module from r, rejecting payloads of a different
// schema version.
func Decode(r io.Reader) (*ir.Module, error) {
	dec := msgpack.NewDecoder(r)
	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	if p.Schema != SchemaVersion {
		return nil, fmt.Errorf("decode module: schema %d, want %d", p.Schema, SchemaVersion)
	}
	if p.Module == nil {
		return nil, fmt.Errorf("decode module: empty payload")
	}
	return p.Module, nil
}

// WriteFile encodes m to path atomically: the payload lands in a temp
// file first and replaces path in one rename.
func WriteFile(path string, m *ir.Module) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := Encode(f, m); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadFile decodes the module stored at path.
func ReadFile(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
