package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneta-bot/moneta/internal/moneta/commands"
)

// StatsCollector accumulates in-memory execution counters. It doubles
// as an event sink so the executor feeds it directly.
type StatsCollector struct {
	mu           sync.Mutex
	started      time.Time
	executed     int64
	failed       int64
	unknown      int64
	byType       map[commands.Type]int64
	payments     int64
	paymentTotal decimal.Decimal
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		started: time.Now(),
		byType:  make(map[commands.Type]int64),
	}
}

// Emit implements commands.EventSink.
func (s *StatsCollector) Emit(_ context.Context, ev commands.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case commands.EventCommandExecuted:
		s.executed++
		s.byType[ev.CommandType]++
	case commands.EventCommandFailed:
		s.failed++
		s.byType[ev.CommandType]++
	case commands.EventCommandUnknown:
		s.unknown++
	}
}

// RecordPayment counts a completed money movement.
func (s *StatsCollector) RecordPayment(amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments++
	s.paymentTotal = s.paymentTotal.Add(amount)
}

// Snapshot returns a copy of the counters.
func (s *StatsCollector) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	byType := make(map[commands.Type]int64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}
	return StatsSnapshot{
		Uptime:       time.Since(s.started),
		Executed:     s.executed,
		Failed:       s.failed,
		Unknown:      s.unknown,
		ByType:       byType,
		Payments:     s.payments,
		PaymentTotal: s.paymentTotal,
	}
}

type StatsSnapshot struct {
	Uptime       time.Duration
	Executed     int64
	Failed       int64
	Unknown      int64
	ByType       map[commands.Type]int64
	Payments     int64
	PaymentTotal decimal.Decimal
}

// Stats reports engine counters to administrators.
type Stats struct {
	commands.BaseHandler
	deps *Deps
}

func NewStats(deps *Deps) *Stats {
	return &Stats{
		BaseHandler: commands.BaseHandler{
			HandlerName:        "stats",
			HandlerDescription: "show engine statistics",
			HandlerCategory:    CategoryAdmin,
			HandlerType:        commands.TypeStats,
			NeedsAdmin:         true,
		},
		deps: deps,
	}
}

func (h *Stats) Execute(_ context.Context, _ *commands.Context) *commands.Result {
	snap := h.deps.Stats.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "Uptime: %s\n", snap.Uptime.Round(time.Second))
	fmt.Fprintf(&b, "Commands executed: %d (failed: %d, unknown: %d)\n",
		snap.Executed, snap.Failed, snap.Unknown)
	fmt.Fprintf(&b, "Payments: %d totalling %s\n",
		snap.Payments, formatMoney(snap.PaymentTotal, "USD"))
	for t, n := range snap.ByType {
		fmt.Fprintf(&b, "- %s: %d\n", t, n)
	}

	res := commands.OK(b.String())
	res.Data = map[string]any{"stats": snap}
	return res
}
