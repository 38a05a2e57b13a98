package defn

import "fmt"

// RouterType is the position of a router relative to the attacked producer.
type RouterType int

const (
	// NormalRouter is an intermediate router
	NormalRouter RouterType = iota
	// ProducerGatewayRouter connects the producer to the network
	ProducerGatewayRouter
	// EdgeRouter faces consumers (and attackers)
	EdgeRouter
)

func (t RouterType) String() string {
	switch t {
	case NormalRouter:
		return "normal"
	case ProducerGatewayRouter:
		return "producer-gateway"
	case EdgeRouter:
		return "edge"
	default:
		return "unknown"
	}
}

// ParseRouterType parses the configuration form of a router type.
func ParseRouterType(s string) (RouterType, error) {
	switch s {
	case "normal":
		return NormalRouter, nil
	case "producer-gateway":
		return ProducerGatewayRouter, nil
	case "edge":
		return EdgeRouter, nil
	}
	return NormalRouter, fmt.Errorf("unknown router type %q", s)
}
