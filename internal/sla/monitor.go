// Package sla derives per-vendor response-SLA compliance from match history.
package sla

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/expanders360/vendor-match/internal/model"
)

// Store is the persistence surface the monitor needs.
type Store interface {
	ListLatestMatchPerVendor(ctx context.Context) ([]model.VendorLatestMatch, error)
}

// Expired describes one vendor that blew its response window.
type Expired struct {
	Vendor       model.Vendor `json:"vendor"`
	Match        model.Match  `json:"match"`
	Deadline     time.Time    `json:"deadline"`
	HoursOverdue int          `json:"hours_overdue"`
}

// Monitor evaluates vendors against their SLA windows.
type Monitor struct {
	store Store
}

// NewMonitor creates an SLA monitor.
func NewMonitor(store Store) *Monitor {
	return &Monitor{store: store}
}

// FindExpired returns every vendor whose most recent match is older than
// its SLA window as of asOf. A vendor is judged only by its latest match;
// the deadline is match.CreatedAt + slaHours and a vendor is overdue only
// when asOf is strictly past it. An empty result means full compliance.
func (m *Monitor) FindExpired(ctx context.Context, asOf time.Time) ([]Expired, error) {
	latest, err := m.store.ListLatestMatchPerVendor(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sla: list latest matches")
	}

	var expired []Expired
	for _, vm := range latest {
		deadline := vm.Match.CreatedAt.Add(time.Duration(vm.Vendor.ResponseSLAHours) * time.Hour)
		if !asOf.After(deadline) {
			continue
		}
		expired = append(expired, Expired{
			Vendor:       vm.Vendor,
			Match:        vm.Match,
			Deadline:     deadline,
			HoursOverdue: int(asOf.Sub(deadline).Hours()),
		})
	}
	return expired, nil
}
