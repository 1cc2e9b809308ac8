package inventory

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// transferMetrics counts committed ledger movements. Instruments come from
// the global meter provider, a no-op until the process installs one.
type transferMetrics struct {
	created metric.Int64Counter
	units   metric.Int64Counter
	voided  metric.Int64Counter
}

func newTransferMetrics(m metric.Meter) transferMetrics {
	fallback := noop.NewMeterProvider().Meter("")
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}
	return transferMetrics{
		created: counter("repairpos_inventory_transfers_total", "Committed inventory transfers", "{transfers}"),
		units:   counter("repairpos_inventory_units_moved_total", "Units moved or adjusted by committed transfers", "{units}"),
		voided:  counter("repairpos_inventory_adjustments_voided_total", "Adjustments removed or replaced", "{transfers}"),
	}
}

func defaultTransferMetrics() transferMetrics {
	return newTransferMetrics(otel.Meter("repairpos/inventory"))
}

func (m transferMetrics) record(ctx context.Context, t *Transfer, units int64) {
	attrs := metric.WithAttributes(attribute.String("type", string(t.Type)))
	if t.IsDeleted() {
		m.voided.Add(ctx, 1, attrs)
		return
	}
	m.created.Add(ctx, 1, attrs)
	m.units.Add(ctx, units, attrs)
}
