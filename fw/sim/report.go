package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/fw"
)

// Sample is the cumulative traffic at one point of the run.
type Sample struct {
	Time         time.Duration  `json:"time"`
	ConsumerData uint64         `json:"consumer_data"`
	AttackerData uint64         `json:"attacker_data"`
	FakeAtProd   uint64         `json:"fake_at_producer"`
	EdgeQuota    map[string]int `json:"edge_quota,omitempty"`
}

// FaceReport is the mitigation state of one downstream face.
type FaceReport struct {
	Face    uint64  `json:"face"`
	Weight  float64 `json:"weight"`
	Marked  uint64  `json:"marked"`
	Allowed int     `json:"allowed"`
}

// RecordReport is one attack record of a router.
type RecordReport struct {
	Prefix           string       `json:"prefix"`
	FakeNackCounter  uint64       `json:"fake_nack_counter"`
	ValidNackCounter uint64       `json:"valid_nack_counter"`
	Tolerance        uint64       `json:"tolerance"`
	Faces            []FaceReport `json:"faces"`
}

// RouterReport is the final state of a router.
type RouterReport struct {
	Name     string                `json:"name"`
	Type     string                `json:"type"`
	State    string                `json:"state"`
	Counters defn.FWThreadCounters `json:"counters"`
	Records  []RecordReport        `json:"records"`
}

// Report is the outcome of a run.
type Report struct {
	Consumers AppStats       `json:"consumers"`
	Attackers AppStats       `json:"attackers"`
	Producer  ProducerStats  `json:"producer"`
	Routers   []RouterReport `json:"routers"`
	Samples   []Sample       `json:"samples"`
}

// Write prints the report as YAML.
func (r *Report) Write(w io.Writer) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("unable to encode report: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func (s *Simulation) sample(at time.Duration) {
	sample := Sample{
		Time:         at,
		ConsumerData: s.consumerStats.Data,
		AttackerData: s.attackerStats.Data,
		FakeAtProd:   s.producer.stats.FakeInterests,
	}
	if ddos := s.strategyOf(s.routers[0]); ddos != nil {
		if record := ddos.Records().Get(s.prefix); record != nil {
			sample.EdgeQuota = make(map[string]int)
			for face, allowed := range record.LastAllowedInterestCount {
				sample.EdgeQuota[fmt.Sprint(face)] = allowed
			}
		}
	}
	s.samples = append(s.samples, sample)
}

func (s *Simulation) strategyOf(r *router) *fw.DDoS {
	ddos, _ := r.thread.Strategy(ddosStrategy).(*fw.DDoS)
	return ddos
}

func (s *Simulation) report() *Report {
	report := &Report{
		Consumers: s.consumerStats,
		Attackers: s.attackerStats,
		Producer:  s.producer.stats,
		Samples:   s.samples,
	}
	for _, r := range s.routers {
		rr := RouterReport{
			Name:     r.name,
			Type:     r.thread.RouterType().String(),
			Counters: r.thread.Counters(),
		}
		if ddos := s.strategyOf(r); ddos != nil {
			rr.State = ddos.State().String()
			for _, record := range ddos.Records().All() {
				rec := RecordReport{
					Prefix:           record.Prefix.String(),
					FakeNackCounter:  record.FakeNackCounter,
					ValidNackCounter: record.ValidNackCounter,
					Tolerance:        record.FakeInterestTolerance,
				}
				for _, face := range r.thread.Faces().GetAll() {
					id := face.FaceID()
					if record.Weight(id) == 0 && record.MarkedInterestPerFace[id] == 0 {
						continue
					}
					rec.Faces = append(rec.Faces, FaceReport{
						Face:    id,
						Weight:  record.Weight(id),
						Marked:  record.MarkedInterestPerFace[id],
						Allowed: record.Allowed(id),
					})
				}
				rr.Records = append(rr.Records, rec)
			}
		}
		report.Routers = append(report.Routers, rr)
	}
	return report
}
