/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"time"

	"github.com/named-data/ndnd-ddos/fw/core"
	"github.com/named-data/ndnd-ddos/fw/defn"
)

// CfgFwQueueSize is the maxmimum number of packets that can be buffered to be processed by a forwarding thread.
func CfgFwQueueSize() int {
	return core.C.Fw.QueueSize
}

// CfgCheckWindow is the interval between two rate limiting cycles.
func CfgCheckWindow() time.Duration {
	return core.C.CheckWindow()
}

// CfgAdditiveIncrease is added to a face quota when no new Nack arrived during a cycle.
func CfgAdditiveIncrease() int {
	return core.C.Ddos.AdditiveIncrease
}

// CfgMultiplicativeDecrease divides a face quota when a new Nack arrived during a cycle.
func CfgMultiplicativeDecrease() float64 {
	return core.C.Ddos.MultiplicativeDecrease
}

// CfgRouterType is the role of threads created without an explicit one.
func CfgRouterType() defn.RouterType {
	routerType, err := defn.ParseRouterType(core.C.Ddos.RouterType)
	if err != nil {
		core.Log.Warn(nil, "Unknown router type, using normal", "type", core.C.Ddos.RouterType)
		return defn.NormalRouter
	}
	return routerType
}
