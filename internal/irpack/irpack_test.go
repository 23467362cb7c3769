package irpack_test

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"keel/internal/ir"
	"keel/internal/irpack"
)

func sampleModule() *ir.Module {
	return &ir.Module{
		Name: "m",
		Funcs: []*ir.Func{{
			Name:   "f",
			Params: []ir.Param{{Value: 0, Type: ir.TypeI32, Name: "a"}},
			Result: ir.TypeI32,
			Blocks: []ir.Block{{
				ID: 0,
				Instrs: []ir.Instr{{
					Kind: ir.InstrBin, Result: 1, Type: ir.TypeI32,
					Bin: ir.BinInstr{Op: ir.BinAdd, Left: ir.Value(0, ir.TypeI32), Right: ir.ConstInt(ir.TypeI32, 1)},
				}},
				Term: ir.Terminator{Kind: ir.TermRet, Ret: ir.RetTerm{HasValue: true, Value: ir.Value(1, ir.TypeI32)}},
			}},
		}},
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	m := sampleModule()
	var buf bytes.Buffer
	if err := irpack.Encode(&buf, m); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := irpack.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("roundtrip changed the module:\n got %+v\nwant %+v", got, m)
	}
}

func TestDecodeRejectsWrongSchema(t *testing.T) {
	raw, err := msgpack.Marshal(&struct {
		Schema uint16
		Module *ir.Module
	}{Schema: irpack.SchemaVersion + 1, Module: sampleModule()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = irpack.Decode(bytes.NewReader(raw))
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	raw, err := msgpack.Marshal(&struct {
		Schema uint16
		Module *ir.Module
	}{Schema: irpack.SchemaVersion})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = irpack.Decode(bytes.NewReader(raw))
	if err == nil || !strings.Contains(err.Error(), "empty payload") {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := irpack.Decode(bytes.NewReader([]byte{0xc1, 0xff, 0x00}))
	if err == nil {
		t.Fatalf("Decode accepted garbage")
	}
}

func TestWriteReadFile(t *testing.T) {
	m := sampleModule()
	path := filepath.Join(t.TempDir(), "nested", "m.kir")
	if err := irpack.WriteFile(path, m); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := irpack.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Name != "m" || len(got.Funcs) != 1 || got.Funcs[0].Name != "f" {
		t.Fatalf("read back %+v", got)
	}

	// No temp litter next to the output.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "tmp-") {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
}

func TestFuncDigest(t *testing.T) {
	a := sampleModule().Funcs[0]
	b := sampleModule().Funcs[0]
	da, err := irpack.FuncDigest(a)
	if err != nil {
		t.Fatalf("FuncDigest: %v", err)
	}
	db, err := irpack.FuncDigest(b)
	if err != nil {
		t.Fatalf("FuncDigest: %v", err)
	}
	if da != db {
		t.Fatalf("equal functions digest differently")
	}
	b.Blocks[0].Instrs[0].Bin.Right = ir.ConstInt(ir.TypeI32, 2)
	db, err = irpack.FuncDigest(b)
	if err != nil {
		t.Fatalf("FuncDigest: %v", err)
	}
	if da == db {
		t.Fatalf("changed function digests equally")
	}
	if len(da.String()) != 64 {
		t.Fatalf("digest string %q", da)
	}
}

func TestModuleDigestCoversName(t *testing.T) {
	a := sampleModule()
	b := sampleModule()
	b.Name = "other"
	da, err := irpack.ModuleDigest(a)
	if err != nil {
		t.Fatalf("ModuleDigest: %v", err)
	}
	db, err := irpack.ModuleDigest(b)
	if err != nil {
		t.Fatalf("ModuleDigest: %v", err)
	}
	if da == db {
		t.Fatalf("renamed module digests equally")
	}
}
