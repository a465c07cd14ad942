// Copyright 2025 The kvstored Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kvstored/kvstored/common"
)

var (
	connsAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "connections_accepted_total",
			Help:      "accepted client connections total",
		},
	)

	connsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "connections_active",
			Help:      "currently active client connections",
		},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "requests_total",
			Help:      "handled requests total",
		},
		[]string{"op"},
	)

	malformedClosesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "malformed_closes_total",
			Help:      "connections closed on malformed input total",
		},
	)

	overflowClosesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "overflow_closes_total",
			Help:      "connections closed on accumulation buffer overflow total",
		},
	)

	storeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "store_errors_total",
			Help:      "backend failures while handling requests total",
		},
	)

	receivedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "received_bytes_total",
			Help:      "bytes received from clients total",
		},
	)

	sentBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "sent_bytes_total",
			Help:      "bytes sent to clients total",
		},
	)
)
