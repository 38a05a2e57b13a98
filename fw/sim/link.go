package sim

import (
	"time"

	"github.com/named-data/ndnd-ddos/fw/defn"
	"github.com/named-data/ndnd-ddos/fw/face"
	"github.com/named-data/ndnd/std/ndn"
)

// linkDelay is the one-way latency of every simulated link.
const linkDelay = time.Millisecond

// node is anything a link can deliver packets to.
type node interface {
	receive(packet *defn.Pkt)
}

// port is one end of a link: packets handed to it arrive at the peer
// after linkDelay, tagged with the peer's face ID.
type port struct {
	timer  ndn.Timer
	peer   node
	faceID uint64 // face of the packet at the peer
}

func (p *port) send(packet *defn.Pkt) {
	copied := copyPkt(packet)
	copied.IncomingFaceID = p.faceID
	p.timer.Schedule(linkDelay, func() {
		p.peer.receive(copied)
	})
}

// copyPkt detaches a packet from the sender, which may keep mutating
// its Interests (hop limit, PIT records).
func copyPkt(packet *defn.Pkt) *defn.Pkt {
	l3 := &defn.FwPacket{Data: packet.L3.Data}
	if packet.L3.Interest != nil {
		l3.Interest = packet.L3.Interest.Clone()
	}
	if packet.L3.Nack != nil {
		l3.Nack = &defn.FwNack{
			Interest: packet.L3.Nack.Interest.Clone(),
			Header:   packet.L3.Nack.Header,
		}
	}
	return &defn.Pkt{
		Name: packet.Name,
		L3:   l3,
	}
}

// connect links two routers with a point-to-point face on each side.
func connect(timer ndn.Timer, a *router, b *router) (aFace uint64, bFace uint64) {
	aPort := &port{timer: timer, peer: b}
	bPort := &port{timer: timer, peer: a}
	aFace = a.addFace(b.name, aPort.send)
	bFace = b.addFace(a.name, bPort.send)
	aPort.faceID = bFace
	bPort.faceID = aFace
	return aFace, bFace
}

// attach links an application to a router. It returns the router's face
// and the port the application sends on.
func attach(timer ndn.Timer, r *router, app node, name string) (uint64, *port) {
	toApp := &port{timer: timer, peer: app}
	faceID := r.addFace(name, toApp.send)
	return faceID, &port{timer: timer, peer: r, faceID: faceID}
}

func (r *router) addFace(peer string, send func(*defn.Pkt)) uint64 {
	f := face.MakeCallbackFace(peer, defn.NonLocal, defn.PointToPoint, func(out face.OutPkt) {
		send(out.Pkt)
	})
	return r.thread.Faces().Add(f)
}
