/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import "time"

// Version is set at link time.
var Version = "unknown"

// StartTimestamp is the time the command was started.
var StartTimestamp time.Time
