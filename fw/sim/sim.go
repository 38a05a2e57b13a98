// Package sim runs the DDoS strategy on a simulated line topology:
// consumers and attackers behind an edge router, a core router, and a
// gateway router in front of the producer. Everything runs on one manual
// clock, so a run is deterministic for a given seed.
package sim

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/fw"
	"github.com/named-data/ndnd-ddos/fw/journal"
	"github.com/named-data/ndnd-ddos/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
)

// ErrInvalidScenario is returned by New for unusable scenario parameters.
var ErrInvalidScenario = errors.New("invalid simulation scenario")

const (
	consumerTag = "c"
	attackerTag = "x"
)

var ddosStrategy = defn.STRATEGY_PREFIX.
	Append(enc.NewStringComponent(enc.TypeGenericNameComponent, "ddos")).
	Append(enc.NewVersionComponent(1))

// Options configure a simulation.
type Options struct {
	Scenario core.SimConfig
	// Seed of nonces and load balancing. Zero picks a random seed.
	Seed uint64
	// Journal receives the attack record snapshots of every router
	Journal journal.Journal
}

type router struct {
	name   string
	thread *fw.Thread
}

func (r *router) receive(packet *defn.Pkt) {
	r.thread.HandlePacket(packet)
}

// Simulation is a simulated network. It is not safe for concurrent use.
type Simulation struct {
	scenario core.SimConfig
	prefix   enc.Name
	timer    *core.ManualTimer

	routers   []*router
	consumers []*consumer
	attackers []*consumer
	producer  *producer

	consumerStats AppStats
	attackerStats AppStats
	samples       []Sample
}

// New builds the topology of a scenario.
func New(opts Options) (*Simulation, error) {
	sc := opts.Scenario
	prefix, err := enc.NameFromStr(sc.Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: prefix %q: %w", ErrInvalidScenario, sc.Prefix, err)
	}
	switch {
	case len(prefix) == 0:
		return nil, fmt.Errorf("%w: empty prefix", ErrInvalidScenario)
	case sc.Tick <= 0 || sc.Duration <= 0:
		return nil, fmt.Errorf("%w: tick and duration must be positive", ErrInvalidScenario)
	case sc.Consumers < 0 || sc.Attackers < 0 || sc.ConsumerRate < 0 || sc.AttackerRate < 0:
		return nil, fmt.Errorf("%w: negative population or rate", ErrInvalidScenario)
	case sc.DetectThreshold <= 0:
		return nil, fmt.Errorf("%w: detect_threshold must be positive", ErrInvalidScenario)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	s := &Simulation{
		scenario: sc,
		prefix:   prefix,
		timer:    core.NewManualTimer(),
	}

	edge := s.addRouter("edge", defn.EdgeRouter, opts, rng.Uint64())
	coreRouter := s.addRouter("core", defn.NormalRouter, opts, rng.Uint64())
	gateway := s.addRouter("gateway", defn.ProducerGatewayRouter, opts, rng.Uint64())

	edgeUp, _ := connect(s.timer, edge, coreRouter)
	coreUp, _ := connect(s.timer, coreRouter, gateway)
	edge.thread.Fib().InsertNextHop(prefix, edgeUp, 1)
	coreRouter.thread.Fib().InsertNextHop(prefix, coreUp, 1)

	s.producer = &producer{
		prefix:    prefix,
		validTag:  consumerTag,
		threshold: sc.DetectThreshold,
		tolerance: sc.Tolerance,
	}
	producerFace, producerOut := attach(s.timer, gateway, s.producer, "producer")
	s.producer.out = producerOut
	gateway.thread.Fib().InsertNextHop(prefix, producerFace, 1)

	for i := range sc.Consumers {
		c := s.addConsumer(edge, fmt.Sprintf("consumer-%d", i), fmt.Sprintf("%s%d", consumerTag, i),
			sc.ConsumerRate, &s.consumerStats, rng)
		s.consumers = append(s.consumers, c)
	}
	for i := range sc.Attackers {
		c := s.addConsumer(edge, fmt.Sprintf("attacker-%d", i), fmt.Sprintf("%s%d", attackerTag, i),
			sc.AttackerRate, &s.attackerStats, rng)
		s.attackers = append(s.attackers, c)
	}

	for _, r := range s.routers {
		r.thread.Fib().SetStrategy(prefix, ddosStrategy)
	}
	return s, nil
}

func (s *Simulation) String() string {
	return "sim"
}

func (s *Simulation) addRouter(name string, routerType defn.RouterType, opts Options, seed uint64) *router {
	r := &router{name: name}
	r.thread = fw.NewThread(fw.ThreadConfig{
		Name:       name,
		Timer:      s.timer,
		RouterType: optional.Some(routerType),
		Journal:    opts.Journal,
		Seed:       seed,
	})
	s.routers = append(s.routers, r)
	return r
}

func (s *Simulation) addConsumer(edge *router, name string, tag string, rate int, stats *AppStats, rng *rand.Rand) *consumer {
	c := &consumer{
		name:     name,
		prefix:   s.prefix,
		tag:      tag,
		rate:     rate,
		lifetime: table.DefaultInterestLifetime,
		rng:      rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
		stats:    stats,
	}
	_, c.out = attach(s.timer, edge, c, name)
	return c
}

// Router returns the forwarding thread of a router: edge, core or gateway.
func (s *Simulation) Router(name string) *fw.Thread {
	for _, r := range s.routers {
		if r.name == name {
			return r.thread
		}
	}
	return nil
}

// Run plays the scenario to the end and reports the outcome.
func (s *Simulation) Run() *Report {
	tick := time.Duration(s.scenario.Tick) * time.Millisecond
	duration := time.Duration(s.scenario.Duration) * time.Millisecond
	sampleEvery := fw.CfgCheckWindow()
	nextSample := sampleEvery

	core.Log.Info(s, "Starting simulation", "prefix", s.prefix,
		"consumers", len(s.consumers), "attackers", len(s.attackers), "duration", duration)

	for elapsed := time.Duration(0); elapsed < duration; elapsed += tick {
		for _, c := range s.consumers {
			c.tick()
		}
		for _, c := range s.attackers {
			c.tick()
		}
		s.timer.MoveForward(tick)
		for _, r := range s.routers {
			r.thread.UpdatePit()
		}

		if elapsed+tick >= nextSample {
			s.sample(elapsed + tick)
			nextSample += sampleEvery
		}
	}

	for _, r := range s.routers {
		if ddos, ok := r.thread.Strategy(ddosStrategy).(*fw.DDoS); ok {
			ddos.Stop()
		}
	}
	core.Log.Info(s, "Simulation finished", "consumerData", s.consumerStats.Data, "attackerData", s.attackerStats.Data)
	return s.report()
}
