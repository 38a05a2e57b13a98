package sim

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/types/optional"
)

// AppStats counts the traffic of a group of consumer applications.
type AppStats struct {
	Sent  uint64 `json:"sent"`
	Data  uint64 `json:"data"`
	Nacks uint64 `json:"nacks"`
}

// consumer requests content under the prefix at a fixed rate.
// Attackers are consumers whose names the producer does not serve.
type consumer struct {
	name     string
	prefix   enc.Name
	tag      string
	rate     int
	lifetime time.Duration
	rng      *rand.Rand
	out      *port
	stats    *AppStats
	seq      uint64
}

func (c *consumer) String() string {
	return c.name
}

// tick sends the Interests of one tick.
func (c *consumer) tick() {
	for range c.rate {
		c.seq++
		component := fmt.Sprintf("%s-%d", c.tag, c.seq)
		interest := &defn.FwInterest{
			NameV:             append(c.prefix.Clone(), enc.NewStringComponent(enc.TypeGenericNameComponent, component)),
			NonceV:            optional.Some(c.rng.Uint32()),
			InterestLifetimeV: optional.Some(c.lifetime),
		}
		c.stats.Sent++
		c.out.send(defn.MakeInterestPkt(interest))
	}
}

func (c *consumer) receive(packet *defn.Pkt) {
	switch {
	case packet.L3.Data != nil:
		c.stats.Data++
	case packet.L3.Nack != nil:
		c.stats.Nacks++
		core.Log.Trace(c, "Received Nack", "name", packet.Name, "header", packet.L3.Nack.Header)
	}
}

// ProducerStats counts what the producer answered.
type ProducerStats struct {
	Data          uint64 `json:"data"`
	FakeInterests uint64 `json:"fake_interests"`
	FakeNacks     uint64 `json:"fake_nacks"`
	FakeNames     uint64 `json:"fake_names"`
}

// producer serves the names of legitimate consumers and reports the others
// with a fake Interest Nack once enough of them arrived.
type producer struct {
	prefix    enc.Name
	validTag  string
	threshold int
	tolerance uint64
	out       *port
	stats     ProducerStats
	collected []enc.Name
}

func (p *producer) String() string {
	return "producer"
}

func (p *producer) isValid(name enc.Name) bool {
	if len(name) != len(p.prefix)+1 {
		return false
	}
	return strings.HasPrefix(name[len(name)-1].String(), p.validTag)
}

func (p *producer) receive(packet *defn.Pkt) {
	interest := packet.L3.Interest
	if interest == nil {
		return
	}

	if p.isValid(interest.Name()) {
		p.stats.Data++
		p.out.send(defn.MakeDataPkt(&defn.FwData{
			NameV:   interest.Name(),
			Content: []byte(interest.Name().String()),
		}))
		return
	}

	p.stats.FakeInterests++
	p.collected = append(p.collected, interest.Name())
	if len(p.collected) < p.threshold {
		return
	}

	core.Log.Info(p, "Reporting fake Interests", "prefix", p.prefix, "count", len(p.collected))
	p.stats.FakeNacks++
	p.stats.FakeNames += uint64(len(p.collected))
	p.out.send(defn.MakeNackPkt(interest, defn.NackHeader{
		Reason:            defn.NackReasonFakeInterest,
		PrefixLen:         len(p.prefix),
		FakeTolerance:     p.tolerance,
		FakeInterestNames: p.collected,
	}))
	p.collected = nil
}
