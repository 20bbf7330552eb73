package lootsys

import (
	"math"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/loot"
	"project-hunter/server/internal/vec"
)

// placementSalt separates the placement stream from the generation stream.
const placementSalt uint64 = 0xD1B54A32D192ED03

// SpawnSettings controls where a batch lands.
type SpawnSettings struct {
	Origin         vec.Vec3 `json:"origin"`
	ScatterRadius  float64  `json:"scatterRadius"`
	VerticalOffset float64  `json:"verticalOffset"`
	// RandomScatter picks a random direction and distance per item; otherwise
	// items are spaced evenly on a circle of ScatterRadius.
	RandomScatter bool `json:"randomScatter"`
}

// DefaultSpawnSettings returns the standard scatter.
func DefaultSpawnSettings() SpawnSettings {
	return SpawnSettings{ScatterRadius: 100, VerticalOffset: 10, RandomScatter: true}
}

// Spawned is one placed item.
type Spawned struct {
	GroundID ground.ID   `json:"groundId"`
	Item     *items.Item `json:"item"`
	Location vec.Vec3    `json:"location"`
}

// SpawnFunc observes each placed item.
type SpawnFunc func(item *items.Item, location vec.Vec3, id ground.ID)

// Inserter is the ground registry's insert operation.
type Inserter interface {
	Insert(item *items.Item, location vec.Vec3) ground.ID
}

// Placement scatters batches into the ground registry.
type Placement struct {
	ground   Inserter
	onSpawn  SpawnFunc
	currency func(amount int, seed uint64) *items.Item
}

// NewPlacement binds placement to a ground registry. currency may be nil, in
// which case rolled currency is not placed.
func NewPlacement(g Inserter, currency func(amount int, seed uint64) *items.Item, onSpawn SpawnFunc) *Placement {
	return &Placement{ground: g, currency: currency, onSpawn: onSpawn}
}

// Place inserts every result of batch and, when configured, a currency pile.
// Positions derive from the batch seed.
func (p *Placement) Place(batch loot.Batch, settings SpawnSettings) []Spawned {
	if p == nil || p.ground == nil {
		return nil
	}
	placed := make([]*items.Item, 0, len(batch.Results)+1)
	for _, result := range batch.Results {
		if result.Item != nil {
			placed = append(placed, result.Item)
		}
	}
	if batch.Currency > 0 && p.currency != nil {
		if coin := p.currency(batch.Currency, batch.Seed); coin != nil {
			placed = append(placed, coin)
		}
	}
	if len(placed) == 0 {
		return nil
	}

	stream := loot.NewStream(batch.Seed ^ placementSalt)
	radius := math.Max(settings.ScatterRadius, 0)
	out := make([]Spawned, 0, len(placed))
	for i, item := range placed {
		var angle, distance float64
		if settings.RandomScatter {
			angle = stream.Float64() * 2 * math.Pi
			distance = stream.Float64() * radius
		} else {
			angle = 2 * math.Pi * float64(i) / float64(len(placed))
			distance = radius
		}
		point := scatterPoint(settings.Origin, angle, distance, settings.VerticalOffset)
		id := p.ground.Insert(item, point)
		if id == ground.Invalid {
			continue
		}
		out = append(out, Spawned{GroundID: id, Item: item, Location: point})
		if p.onSpawn != nil {
			p.onSpawn(item, point, id)
		}
	}
	return out
}

func scatterPoint(origin vec.Vec3, angle, distance, lift float64) vec.Vec3 {
	return vec.Vec3{
		X: origin.X + math.Cos(angle)*distance,
		Y: origin.Y + math.Sin(angle)*distance,
		Z: origin.Z + lift,
	}
}
