/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"time"

	"github.com/named-data/ndnd-ddos/fw/core"
)

// Configure applies the table section of the configuration.
func Configure(c *core.Config) {
	if c.Tables.Pit.DefaultLifetime > 0 {
		DefaultInterestLifetime = time.Duration(c.Tables.Pit.DefaultLifetime) * time.Millisecond
	}
}

// CfgPitUpdateInterval returns the interval between two PIT expiration sweeps.
func CfgPitUpdateInterval(c *core.Config) time.Duration {
	if c.Tables.Pit.UpdateInterval <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.Tables.Pit.UpdateInterval) * time.Millisecond
}
