package face

import (
	"fmt"

	defn "github.com/named-data/ndnd-ddos/fw/defn"
)

// CallbackFace hands every outgoing packet to a function. It is the building
// block of in-process links and of application faces.
type CallbackFace struct {
	faceBase
	name   string
	onSend func(out OutPkt)
}

// MakeCallbackFace makes a CallbackFace.
func MakeCallbackFace(name string, scope defn.Scope, linkType defn.LinkType, onSend func(OutPkt)) *CallbackFace {
	f := &CallbackFace{name: name, onSend: onSend}
	f.scope = scope
	f.linkType = linkType
	return f
}

func (f *CallbackFace) String() string {
	return fmt.Sprintf("callback-face (faceid=%d name=%s)", f.faceID, f.name)
}

func (f *CallbackFace) SendPacket(out OutPkt) {
	f.nOutPackets.Add(1)
	f.onSend(out)
}

// SetOnSend replaces the send function. Used to close a link after both ends exist.
func (f *CallbackFace) SetOnSend(onSend func(OutPkt)) {
	f.onSend = onSend
}
