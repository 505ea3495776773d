// Package sources loads veto definers and flag segment data from
// disk or HTTP and assembles them into per-instrument registries.
package sources

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/dqstack/veto-engine/internal/dqflags"
	"github.com/dqstack/veto-engine/internal/utils"
)

//go:embed definer_schema.json
var definerSchemaJSON []byte

var (
	definerSchemaOnce sync.Once
	definerSchema     *jsonschema.Schema
	definerSchemaErr  error
)

func compiledDefinerSchema() (*jsonschema.Schema, error) {
	definerSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		definerSchema, definerSchemaErr = compiler.Compile(definerSchemaJSON)
	})
	return definerSchema, definerSchemaErr
}

// DefinerRow assigns one flag to a category, with optional veto pads
// and an optional instrument scope.
type DefinerRow struct {
	Flag        string   `yaml:"flag" json:"flag"`
	Category    int      `yaml:"category" json:"category"`
	PadStart    int64    `yaml:"pad_start" json:"pad_start,omitempty"`
	PadEnd      int64    `yaml:"pad_end" json:"pad_end,omitempty"`
	Instruments []string `yaml:"instruments" json:"instruments,omitempty"`
	Comment     string   `yaml:"comment" json:"comment,omitempty"`
}

// AppliesTo reports whether the row is in scope for an instrument.
// Rows without an explicit scope apply everywhere.
func (r DefinerRow) AppliesTo(instrument string) bool {
	if len(r.Instruments) == 0 {
		return true
	}
	for _, in := range r.Instruments {
		if strings.EqualFold(in, instrument) {
			return true
		}
	}
	return false
}

type definerFile struct {
	Version int          `yaml:"version" json:"version"`
	Rows    []DefinerRow `yaml:"rows" json:"rows"`
}

// Definer is a parsed veto definer plus the canonical digest of its
// rows. The digest travels into every run record so results can be
// traced back to the exact definer revision that produced them.
type Definer struct {
	path   string
	rows   []DefinerRow
	digest string
}

// LoadDefiner reads a veto definer from path, accepting YAML or JSON
// by extension. JSON documents validate against the embedded schema;
// YAML documents get the same structural checks after decoding.
func LoadDefiner(path string) (*Definer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewAppError("sources.LoadDefiner", "read definer", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseDefinerJSON(path, data)
	case ".yaml", ".yml":
		return parseDefinerYAML(path, data)
	default:
		return nil, utils.NewAppError("sources.LoadDefiner",
			fmt.Sprintf("unsupported definer format %q", filepath.Ext(path)), nil)
	}
}

func parseDefinerJSON(path string, data []byte) (*Definer, error) {
	schema, err := compiledDefinerSchema()
	if err != nil {
		return nil, utils.NewAppError("sources.LoadDefiner", "compile embedded schema", err)
	}
	if result := schema.ValidateJSON(data); !result.IsValid() {
		return nil, utils.NewAppError("sources.LoadDefiner",
			fmt.Sprintf("definer %s failed schema validation: %v", path, result.Errors), nil)
	}
	var file definerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, utils.NewAppError("sources.LoadDefiner", "decode definer", err)
	}
	return newDefiner(path, file.Rows)
}

func parseDefinerYAML(path string, data []byte) (*Definer, error) {
	var file definerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, utils.NewAppError("sources.LoadDefiner", "decode definer", err)
	}
	if err := validateRows(file.Rows); err != nil {
		return nil, utils.NewAppError("sources.LoadDefiner", fmt.Sprintf("definer %s", path), err)
	}
	return newDefiner(path, file.Rows)
}

func validateRows(rows []DefinerRow) error {
	for i, row := range rows {
		if strings.TrimSpace(row.Flag) == "" {
			return fmt.Errorf("row %d: empty flag name", i)
		}
		if row.Category < 1 {
			return fmt.Errorf("row %d (%s): category %d: %w", i, row.Flag, row.Category, dqflags.ErrBadCategory)
		}
	}
	return nil
}

func newDefiner(path string, rows []DefinerRow) (*Definer, error) {
	digest, err := utils.CanonicalDigest(rows)
	if err != nil {
		return nil, utils.NewAppError("sources.LoadDefiner", "digest definer", err)
	}
	return &Definer{path: path, rows: rows, digest: digest}, nil
}

// Path returns the location the definer was loaded from.
func (d *Definer) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// Rows returns the definer rows in file order.
func (d *Definer) Rows() []DefinerRow {
	if d == nil {
		return nil
	}
	return d.rows
}

// Digest returns the canonical content digest of the rows.
func (d *Definer) Digest() string {
	if d == nil {
		return ""
	}
	return d.digest
}

// Categories returns the distinct categories referenced by the rows,
// sorted ascending.
func (d *Definer) Categories() []int {
	if d == nil {
		return nil
	}
	seen := make(map[int]struct{})
	for _, row := range d.rows {
		seen[row.Category] = struct{}{}
	}
	cats := make([]int, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Ints(cats)
	return cats
}

// Apply walks the rows in file order and assigns categories on the
// registry. Rows scoped to other instruments are skipped, as are rows
// whose flag name carries a different instrument prefix. File order
// matters: for repeated flags the last applicable row wins.
func (d *Definer) Apply(reg *dqflags.Registry) error {
	if d == nil {
		return nil
	}
	for _, row := range d.rows {
		if !row.AppliesTo(reg.Instrument()) {
			continue
		}
		if prefix, ok := instrumentFromFlag(row.Flag); ok && !strings.EqualFold(prefix, reg.Instrument()) {
			continue
		}
		if err := reg.AssignCategory(row.Flag, row.Category, row.PadStart, row.PadEnd); err != nil {
			return fmt.Errorf("definer %s: %w", d.path, err)
		}
	}
	return nil
}
