/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package routecontext

import (
	"github.com/prometheus/client_golang/prometheus"
)

// collector exposes a Context's counters and quarantine state as
// Prometheus metrics, all labeled by route name.
type collector struct {
	ctx *Context

	active     *prometheus.Desc
	handled    *prometheus.Desc
	quarantine *prometheus.Desc
}

func newCollector(ctx *Context) *collector {
	return &collector{
		ctx: ctx,
		active: prometheus.NewDesc(
			"dbrouter_route_active_connections",
			"Number of currently open connections on this route.",
			[]string{"route"}, nil,
		),
		handled: prometheus.NewDesc(
			"dbrouter_route_handled_connections_total",
			"Total connections accepted by this route since start.",
			[]string{"route"}, nil,
		),
		quarantine: prometheus.NewDesc(
			"dbrouter_route_quarantined_clients",
			"Number of client hosts currently quarantined on this route.",
			[]string{"route"}, nil,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.handled
	ch <- c.quarantine
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	name := c.ctx.opt.RouteName

	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(c.ctx.Counters.Active()), name)
	ch <- prometheus.MustNewConstMetric(c.handled, prometheus.CounterValue, float64(c.ctx.Counters.Handled()), name)
	ch <- prometheus.MustNewConstMetric(c.quarantine, prometheus.GaugeValue, float64(c.ctx.Quarantine.Len()), name)
}

// Collector returns a prometheus.Collector registering this Context's
// live counters and quarantine size.
func (c *Context) Collector() prometheus.Collector {
	return newCollector(c)
}
