package lootdb

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"project-hunter/server/internal/loot"
)

var (
	// ErrUnknownSource is returned for a source id the registry does not list.
	ErrUnknownSource = errors.New("lootdb: unknown source")
	// ErrDisabledSource is returned for a source whose enabled flag is off.
	ErrDisabledSource = errors.New("lootdb: source disabled")
	// ErrUnresolvableTable is returned when a source's table cannot be loaded.
	ErrUnresolvableTable = errors.New("lootdb: unresolvable table")
)

// SourceEntry describes one loot source.
type SourceEntry struct {
	ID          string `yaml:"-" json:"id" jsonschema:"-"`
	DisplayName string `yaml:"display_name" json:"displayName"`
	Category    string `yaml:"category" json:"category"`
	// Table references the table document; Row selects a table inside it.
	Table            string            `yaml:"table" json:"table"`
	Row              string            `yaml:"row,omitempty" json:"row,omitempty"`
	Defaults         loot.DropSettings `yaml:"defaults" json:"defaults"`
	BaseLevel        int               `yaml:"base_level" json:"baseLevel"`
	BaseRarity       loot.SourceRarity `yaml:"base_rarity" json:"baseRarity"`
	Currency         *loot.Range       `yaml:"currency,omitempty" json:"currency,omitempty"`
	Enabled          bool              `yaml:"enabled" json:"enabled"`
	Boss             bool              `yaml:"boss,omitempty" json:"boss,omitempty"`
	ScaleWithPlayers bool              `yaml:"scale_with_players,omitempty" json:"scaleWithPlayers,omitempty"`
}

// DefaultSourceEntry is the template every decoded source starts from.
func DefaultSourceEntry() SourceEntry {
	return SourceEntry{
		Defaults:   loot.DefaultDropSettings(),
		BaseLevel:  1,
		BaseRarity: loot.SourceNormal,
		Enabled:    true,
	}
}

// Validate reports every problem with the entry.
func (e SourceEntry) Validate() error {
	var errs []error
	if e.Enabled && e.Table == "" {
		errs = append(errs, errors.New("enabled source needs a table"))
	}
	if e.BaseLevel < 1 || e.BaseLevel > 100 {
		errs = append(errs, fmt.Errorf("base_level %d must be in [1,100]", e.BaseLevel))
	}
	if e.Currency != nil && (e.Currency.Min < 0 || e.Currency.Max < e.Currency.Min) {
		errs = append(errs, fmt.Errorf("currency [%d,%d] invalid", e.Currency.Min, e.Currency.Max))
	}
	if e.Defaults.MinDrops < 0 || e.Defaults.MaxDrops < e.Defaults.MinDrops {
		errs = append(errs, fmt.Errorf("defaults drops [%d,%d] invalid", e.Defaults.MinDrops, e.Defaults.MaxDrops))
	}
	if e.Defaults.DropChanceMultiplier < 0 || e.Defaults.QuantityMultiplier < 0 {
		errs = append(errs, errors.New("defaults multipliers must be >= 0"))
	}
	return errors.Join(errs...)
}

// RegistryDocument is the on-disk list of sources.
type RegistryDocument struct {
	Sources map[string]SourceEntry `yaml:"sources" json:"sources"`
}

// TableDocument holds every table row of one document.
type TableDocument struct {
	Identity string                 `yaml:"-" json:"-"`
	Tables   map[string]*loot.Table `yaml:"tables" json:"tables"`
}

// Rows lists table rows in order.
func (d *TableDocument) Rows() []string {
	rows := make([]string, 0, len(d.Tables))
	for row := range d.Tables {
		rows = append(rows, row)
	}
	sort.Strings(rows)
	return rows
}

// Table selects row. An empty row resolves when the document has exactly one
// table, or a table named "default".
func (d *TableDocument) Table(row string) (*loot.Table, bool) {
	if d == nil {
		return nil, false
	}
	if row != "" {
		t, ok := d.Tables[row]
		return t, ok
	}
	if t, ok := d.Tables["default"]; ok {
		return t, true
	}
	if len(d.Tables) == 1 {
		for _, t := range d.Tables {
			return t, true
		}
	}
	return nil, false
}

// Validate reports every problem in the document.
func (d *TableDocument) Validate() error {
	var errs []error
	if len(d.Tables) == 0 {
		errs = append(errs, errors.New("document has no tables"))
	}
	for _, row := range d.Rows() {
		if err := d.Tables[row].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tables.%s: %w", row, err))
		}
	}
	return errors.Join(errs...)
}

// DecodeRegistry parses a registry document. Each source starts from
// DefaultSourceEntry so omitted fields keep their defaults.
func DecodeRegistry(data []byte) (*RegistryDocument, error) {
	var raw struct {
		Sources map[string]yaml.Node `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	doc := &RegistryDocument{Sources: make(map[string]SourceEntry, len(raw.Sources))}
	for id, node := range raw.Sources {
		entry := DefaultSourceEntry()
		if err := node.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode source %q: %w", id, err)
		}
		entry.ID = id
		doc.Sources[id] = entry
	}
	return doc, nil
}

// DecodeTables parses a table document.
func DecodeTables(identity string, data []byte) (*TableDocument, error) {
	var raw struct {
		Tables map[string]*loot.Table `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tables %s: %w", identity, err)
	}
	doc := &TableDocument{Identity: identity, Tables: raw.Tables}
	if doc.Tables == nil {
		doc.Tables = map[string]*loot.Table{}
	}
	for row, table := range doc.Tables {
		if table == nil {
			delete(doc.Tables, row)
			continue
		}
		table.ID = identity + "#" + row
	}
	return doc, nil
}

// ValidateDocument checks a registry document, and every enabled source's
// table when tables is non-nil. All problems are reported together.
func ValidateDocument(doc *RegistryDocument, tables *Cache) error {
	if doc == nil {
		return errors.New("nil registry document")
	}
	ids := make([]string, 0, len(doc.Sources))
	for id := range doc.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		entry := doc.Sources[id]
		if err := entry.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sources.%s: %w", id, err))
			continue
		}
		if !entry.Enabled || tables == nil {
			continue
		}
		table, err := tables.Table(entry.Table, entry.Row)
		if err != nil {
			errs = append(errs, fmt.Errorf("sources.%s: %w", id, err))
			continue
		}
		if err := table.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sources.%s: table %s: %w", id, table.ID, err))
		}
	}
	return errors.Join(errs...)
}
