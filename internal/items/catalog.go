package items

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
)

// Ref names the item a loot entry produces: a catalog row, or a class from
// which the initializer picks a row using the item's seed.
type Ref struct {
	Row   ItemType `json:"row,omitempty" yaml:"row,omitempty"`
	Class Class    `json:"class,omitempty" yaml:"class,omitempty"`
}

// Empty reports whether neither the row nor the class is set.
func (r Ref) Empty() bool {
	return r.Row == "" && r.Class == ""
}

func (r Ref) String() string {
	if r.Row != "" {
		return string(r.Row)
	}
	return "class:" + string(r.Class)
}

// Initializer populates a freshly constructed item. Implementations must be
// deterministic for a given item seed.
type Initializer interface {
	Init(item *Item, ref Ref, level int, rarity Rarity, withAffixes bool) error
}

// InitializerFunc adapts a function to the Initializer interface.
type InitializerFunc func(item *Item, ref Ref, level int, rarity Rarity, withAffixes bool) error

func (f InitializerFunc) Init(item *Item, ref Ref, level int, rarity Rarity, withAffixes bool) error {
	if f == nil {
		return nil
	}
	return f(item, ref, level, rarity, withAffixes)
}

// AffixTemplate describes a modifier that may be rolled onto an item.
type AffixTemplate struct {
	Type string
	// Base is the magnitude at level 1 before variance.
	Base float64
}

// Definition describes an item row in the catalog.
type Definition struct {
	ID        ItemType
	Name      string
	Class     Class
	Subtype   Subtype
	TwoHanded bool
	Stackable bool
	MaxStack  int
	Visual    string
	Affixes   []AffixTemplate
}

// DefinitionParams describes the configurable fields used when constructing a Definition.
type DefinitionParams struct {
	ID        ItemType
	Name      string
	Class     Class
	Subtype   Subtype
	TwoHanded bool
	Stackable bool
	MaxStack  int
	Visual    string
	Affixes   []AffixTemplate
}

// NewDefinition validates and constructs a canonical Definition.
func NewDefinition(params DefinitionParams) (Definition, error) {
	if params.ID == "" {
		return Definition{}, fmt.Errorf("item id must be provided")
	}
	if !ValidClass(params.Class) {
		return Definition{}, fmt.Errorf("invalid item class %q", params.Class)
	}
	if params.TwoHanded && params.Class != ClassWeapon {
		return Definition{}, fmt.Errorf("item %s: only weapons can be two-handed", params.ID)
	}
	if params.MaxStack < 0 {
		return Definition{}, fmt.Errorf("item %s: negative max stack", params.ID)
	}
	affixes := make([]AffixTemplate, len(params.Affixes))
	copy(affixes, params.Affixes)
	sort.Slice(affixes, func(i, j int) bool { return affixes[i].Type < affixes[j].Type })
	return Definition{
		ID:        params.ID,
		Name:      params.Name,
		Class:     params.Class,
		Subtype:   params.Subtype,
		TwoHanded: params.TwoHanded,
		Stackable: params.Stackable,
		MaxStack:  params.MaxStack,
		Visual:    params.Visual,
		Affixes:   affixes,
	}, nil
}

func mustDefine(params DefinitionParams) Definition {
	def, err := NewDefinition(params)
	if err != nil {
		panic(err)
	}
	return def
}

// affixCount is the number of affixes rolled per rarity tier.
var affixCount = map[Rarity]int{
	RarityCommon:    0,
	RarityUncommon:  1,
	RarityRare:      2,
	RarityEpic:      3,
	RarityLegendary: 4,
}

// affixStream selects the PCG stream used for per-item rolls.
const affixStream = 0x5851f42d4c957f2d

// itemNamespace scopes the deterministic instance IDs derived from item seeds.
var itemNamespace = uuid.MustParse("6f1c2b7e-2d4a-4f0e-9a55-3c1d8e7b9a10")

// Catalog is the default Initializer backed by a fixed set of item definitions.
type Catalog struct {
	defs    map[ItemType]Definition
	byClass map[Class][]ItemType
}

// NewCatalog indexes the provided definitions. Duplicate IDs are rejected.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:    make(map[ItemType]Definition, len(defs)),
		byClass: make(map[Class][]ItemType),
	}
	for _, def := range defs {
		if _, exists := c.defs[def.ID]; exists {
			return nil, fmt.Errorf("duplicate item definition %q", def.ID)
		}
		c.defs[def.ID] = def
		c.byClass[def.Class] = append(c.byClass[def.Class], def.ID)
	}
	for class := range c.byClass {
		ids := c.byClass[class]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return c, nil
}

// Definition returns the definition for id.
func (c *Catalog) Definition(id ItemType) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	def, ok := c.defs[id]
	return def, ok
}

// Has reports whether ref resolves against the catalog.
func (c *Catalog) Has(ref Ref) bool {
	if c == nil {
		return false
	}
	if ref.Row != "" {
		_, ok := c.defs[ref.Row]
		return ok
	}
	return len(c.byClass[ref.Class]) > 0
}

// Len reports the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// Init resolves ref and fills item from the definition. Affixes, the class
// pick and the instance ID all derive from item.Seed.
func (c *Catalog) Init(item *Item, ref Ref, level int, rarity Rarity, withAffixes bool) error {
	if c == nil {
		return fmt.Errorf("catalog unavailable")
	}
	if item == nil {
		return fmt.Errorf("nil item")
	}
	rng := rand.New(rand.NewPCG(item.Seed, affixStream))

	var def Definition
	switch {
	case ref.Row != "":
		found, ok := c.defs[ref.Row]
		if !ok {
			return fmt.Errorf("unknown item row %q", ref.Row)
		}
		def = found
	case ref.Class != "":
		candidates := c.byClass[ref.Class]
		if len(candidates) == 0 {
			return fmt.Errorf("no items of class %q", ref.Class)
		}
		def = c.defs[candidates[rng.IntN(len(candidates))]]
	default:
		return fmt.Errorf("empty item reference")
	}

	item.ID = instanceID(item.Seed, def.ID)
	item.Type = def.ID
	item.Name = def.Name
	item.Class = def.Class
	item.Subtype = def.Subtype
	item.TwoHanded = def.TwoHanded
	item.Visual = def.Visual
	item.Stackable = def.Stackable
	item.MaxStack = def.MaxStack
	item.Level = level
	item.Rarity = rarity
	item.Stack = 1
	item.Affixes = nil
	if withAffixes {
		item.Affixes = rollAffixes(rng, def.Affixes, affixCount[rarity], level)
	}
	return nil
}

func rollAffixes(rng *rand.Rand, pool []AffixTemplate, count, level int) []Affix {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	if count > len(pool) {
		count = len(pool)
	}
	order := rng.Perm(len(pool))[:count]
	sort.Ints(order)
	affixes := make([]Affix, 0, count)
	scale := 1 + float64(max(level, 1)-1)/10
	for _, idx := range order {
		template := pool[idx]
		variance := 0.8 + 0.4*rng.Float64()
		affixes = append(affixes, Affix{
			Type:      template.Type,
			Magnitude: math.Round(template.Base*scale*variance*100) / 100,
		})
	}
	return affixes
}

func instanceID(seed uint64, row ItemType) string {
	buf := make([]byte, 8, 8+len(row))
	binary.BigEndian.PutUint64(buf, seed)
	buf = append(buf, row...)
	return uuid.NewSHA1(itemNamespace, buf).String()
}
