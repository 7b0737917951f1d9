// Copyright (C) 2025 the libotr-ng contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DakesInitiated tracks DAKE runs started, by deferred operation
	DakesInitiated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dake",
			Name:      "initiated_total",
			Help:      "Total number of DAKE runs initiated",
		},
		[]string{"operation"}, // storage_status, publication
	)

	// DakesCompleted tracks DAKE runs that ended: success after a validated
	// server reply, failure when the run was aborted
	DakesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dake",
			Name:      "completed_total",
			Help:      "Total number of DAKE runs completed",
		},
		[]string{"status"}, // success, failure
	)

	// DakeFailures tracks DAKE failures by error type: aborted runs and
	// server replies discarded for an invalid MAC
	DakeFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dake",
			Name:      "failed_total",
			Help:      "Total number of DAKE failures, by error type",
		},
		[]string{"error_type"}, // ring_sig_invalid, ring_sign, inner_message, invalid_mac
	)

	// PrekeysPublished tracks prekey messages sent in publications
	PrekeysPublished = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publication",
			Name:      "prekeys_total",
			Help:      "Total number of prekey messages published",
		},
	)

	// StoredPrekeys tracks the live stored-prekey count
	StoredPrekeys = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publication",
			Name:      "stored_prekeys",
			Help:      "Number of prekey private halves currently stored",
		},
	)
)
