package defn

// Scope indicates the scope of a face
type Scope int

const (
	// Unknown is used when the scope of a face cannot be determined
	Unknown Scope = -1
	// NonLocal is used for faces to other hosts
	NonLocal Scope = 0
	// Local is used for faces to applications on the same host
	Local Scope = 1
)

func (s Scope) String() string {
	switch s {
	case NonLocal:
		return "non-local"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// LinkType indicates what type of link a face is
type LinkType int

const (
	// PointToPoint is a face to a single peer
	PointToPoint LinkType = 0
	// MultiAccess is a face to a multicast group
	MultiAccess LinkType = 1
	// AdHoc is a face on a wireless ad hoc network
	AdHoc LinkType = 2
)

func (l LinkType) String() string {
	switch l {
	case PointToPoint:
		return "point-to-point"
	case MultiAccess:
		return "multi-access"
	case AdHoc:
		return "ad-hoc"
	default:
		return "unknown"
	}
}
