package seedevents

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/loadboard/pkg/logger"
)

// Label variants per stage; the first entry is canonical.
var (
	waitingLabels  = []string{"Waiting", "waiting", " WAIT ", "Wait"}                            //nolint:gochecknoglobals // read-only
	startLabels    = []string{"Start Loading", "start", "Loading Start", " start loading"}       //nolint:gochecknoglobals // read-only
	completeLabels = []string{"Complete Loading", "Complete", "completed", "COMPLETE LOADING "} //nolint:gochecknoglobals // read-only
	altLayouts     = []string{layoutISO, layoutSlash}                                           //nolint:gochecknoglobals // read-only
	badTimestamps  = []string{"not-a-time", "2024-13-45 25:61", "yesterday", "12:30"}           //nolint:gochecknoglobals // read-only
)

// generator builds truck days with a seeded source so runs are repeatable.
type generator struct {
	cfg *Config
	rnd *rand.Rand
	bad int
}

func newGenerator(cfg *Config) *generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &generator{cfg: cfg, rnd: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// Generate creates the configured truck days and their noisy event stream.
func Generate(ctx context.Context, cfg *Config, stats *Stats) ([]Truck, []Event) {
	g := newGenerator(cfg)
	trucks := make([]Truck, 0, cfg.Trucks)
	events := make([]Event, 0, cfg.Trucks*3)

	day := time.Date(cfg.Date.Year(), cfg.Date.Month(), cfg.Date.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < cfg.Trucks; i++ {
		t := g.truck(day, i)
		trucks = append(trucks, t)
		events = append(events, g.events(t)...)
	}
	if cfg.Shuffle {
		g.rnd.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
	}

	stats.TrucksGenerated = len(trucks)
	stats.EventsMalformed = g.bad
	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated truck days",
		logger.Int("trucks", len(trucks)),
		logger.Int("events", len(events)),
		logger.Int("malformed", stats.EventsMalformed))
	return trucks, events
}

func (g *generator) truck(day time.Time, i int) Truck {
	arrive := day.Add(time.Duration(dayStartMinute+g.rnd.IntN(dayWindowMinute)) * time.Minute).
		Add(time.Duration(g.rnd.IntN(60)) * time.Second)
	wait := time.Duration(minWaitMinute+g.rnd.IntN(maxWaitMinute-minWaitMinute+1)) * time.Minute
	load := time.Duration(minLoadMinute+g.rnd.IntN(maxLoadMinute-minLoadMinute+1)) * time.Minute
	return Truck{
		Product:  g.cfg.Products[i%len(g.cfg.Products)],
		Plate:    fmt.Sprintf("%s-%04d", g.cfg.PlatePrefix, i),
		Waiting:  arrive,
		Start:    arrive.Add(wait),
		Complete: arrive.Add(wait + load),
	}
}

func (g *generator) events(t Truck) []Event {
	out := []Event{
		g.event(t, t.Waiting, waitingLabels),
		g.event(t, t.Start, startLabels),
		g.event(t, t.Complete, completeLabels),
	}
	// Resends keep their event id so the service can drop them.
	for _, ev := range out[:3] {
		if g.hit(g.cfg.DuplicateRate) {
			out = append(out, ev)
		}
	}
	if g.hit(g.cfg.MalformedRate) {
		bad := g.event(t, t.Waiting, waitingLabels)
		bad.Timestamp = badTimestamps[g.rnd.IntN(len(badTimestamps))]
		out = append(out, bad)
		g.bad++
	}
	return out
}

func (g *generator) event(t Truck, at time.Time, labels []string) Event {
	label, layout, plate := labels[0], layoutCanonical, t.Plate
	if g.hit(g.cfg.VariantRate) {
		label = labels[g.rnd.IntN(len(labels))]
		layout = altLayouts[g.rnd.IntN(len(altLayouts))]
		plate = " " + plate + " "
	}
	return Event{
		EventID:   uuid.NewString(),
		Timestamp: at.Format(layout),
		Product:   t.Product,
		Plate:     plate,
		Status:    label,
	}
}

func (g *generator) hit(rate float64) bool {
	return rate > 0 && g.rnd.Float64() < rate
}
