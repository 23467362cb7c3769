package target

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LoweringOpts are the heuristic thresholds steering switch
// decomposition. They are policy, not contract: tests and embedders
// pass explicit values, the CLI loads them from keel.toml.
type LoweringOpts struct {
	// MinJumpTableEntries is the least number of case clusters worth a
	// jump table.
	MinJumpTableEntries int `toml:"min_jump_table_entries"`
	// JumpTableDensity is the minimum ratio of populated entries to
	// table span for a jump table to qualify.
	JumpTableDensity float64 `toml:"jump_table_density"`
	// MinBitTestCases is the least number of distinct destinations
	// worth a bit-test sequence.
	MinBitTestCases int `toml:"min_bit_test_cases"`
	// MaxBitTestSpan caps the value span of a bit-test cluster; zero
	// means the target word width.
	MaxBitTestSpan int `toml:"max_bit_test_span"`
	// ForceStackProtect inserts the stack guard in every function,
	// not only those requesting it.
	ForceStackProtect bool `toml:"force_stack_protect"`
}

// DefaultOpts returns the thresholds used when no config is given.
func DefaultOpts() LoweringOpts {
	return LoweringOpts{
		MinJumpTableEntries: 4,
		JumpTableDensity:    0.4,
		MinBitTestCases:     3,
	}
}

// Config is the on-disk shape of keel.toml.
type Config struct {
	Target   targetSection `toml:"target"`
	Lowering LoweringOpts  `toml:"lowering"`
}

type targetSection struct {
	Name     string `toml:"name"`
	WordBits int    `toml:"word_bits"`
}

// LoadConfig reads path and returns a target described by it. Unset
// fields keep their defaults.
func LoadConfig(path string) (*Desc, error) {
	d := Generic64()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Config{Lowering: d.Opts}
	meta, err := toml.Decode(string(raw), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undec[0].String(), path)
	}
	if cfg.Target.Name != "" {
		d.Name = cfg.Target.Name
	}
	if cfg.Target.WordBits != 0 {
		if cfg.Target.WordBits != 32 && cfg.Target.WordBits != 64 {
			return nil, fmt.Errorf("unsupported word width %d", cfg.Target.WordBits)
		}
		d.WordBits = cfg.Target.WordBits
	}
	d.Opts = cfg.Lowering
	if err := d.Opts.check(); err != nil {
		return nil, err
	}
	return d, nil
}

func (o *LoweringOpts) check() error {
	if o.MinJumpTableEntries < 2 {
		return fmt.Errorf("min_jump_table_entries must be at least 2, got %d", o.MinJumpTableEntries)
	}
	if o.JumpTableDensity <= 0 || o.JumpTableDensity > 1 {
		return fmt.Errorf("jump_table_density must be in (0, 1], got %g", o.JumpTableDensity)
	}
	if o.MinBitTestCases < 2 {
		return fmt.Errorf("min_bit_test_cases must be at least 2, got %d", o.MinBitTestCases)
	}
	if o.MaxBitTestSpan < 0 {
		return fmt.Errorf("max_bit_test_span must not be negative, got %d", o.MaxBitTestSpan)
	}
	return nil
}

// BitTestSpan returns the effective bit-test span cap for a target
// with the given word width.
func (o *LoweringOpts) BitTestSpan(wordBits int) int {
	if o.MaxBitTestSpan > 0 && o.MaxBitTestSpan < wordBits {
		return o.MaxBitTestSpan
	}
	return wordBits
}
