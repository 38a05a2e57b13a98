package defn

// FWThreadCounters is a snapshot of the counters of a forwarding thread.
type FWThreadCounters struct {
	NPitEntries           int
	NAttackRecords        int
	NInInterests          uint64
	NInData               uint64
	NInNacks              uint64
	NOutInterests         uint64
	NOutData              uint64
	NOutNacks             uint64
	NSatisfiedInterests   uint64
	NUnsatisfiedInterests uint64
}
