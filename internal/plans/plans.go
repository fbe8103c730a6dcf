// Package plans holds the subscription plan table. The table is built from
// configuration and passed to the services that need it.
package plans

import (
	"github.com/shopspring/decimal"

	"simplyinvoicing/api/internal/config"
)

// Unlimited marks a ceiling that is never reached.
const Unlimited = -1

// Plan keys.
const (
	KeyBasic        = "basic"
	KeyProfessional = "professional"
	KeyEnterprise   = "enterprise"
)

// Plan describes a subscription tier.
type Plan struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	PriceID         string          `json:"priceId,omitempty"` // payment provider price, empty for free plans
	MonthlyPrice    decimal.Decimal `json:"monthlyPrice"`
	MonthlyInvoices int             `json:"monthlyInvoices"` // Unlimited for no ceiling
	MaxClients      int             `json:"maxClients"`      // Unlimited for no ceiling
	Features        []string        `json:"features"`
}

// Paid reports whether the plan is sold through checkout.
func (p Plan) Paid() bool {
	return p.PriceID != ""
}

// Table is an ordered list of plans with a default.
type Table struct {
	Plans      []Plan
	DefaultKey string
}

// NewTable returns the standard plan table with price ids from cfg.
func NewTable(cfg *config.Config) *Table {
	defaultKey := cfg.DefaultPlan
	if defaultKey == "" {
		defaultKey = KeyBasic
	}
	return &Table{
		DefaultKey: defaultKey,
		Plans: []Plan{
			{
				Key:             KeyBasic,
				Name:            "Basic",
				MonthlyPrice:    decimal.Zero,
				MonthlyInvoices: 10,
				MaxClients:      25,
				Features:        []string{"invoices", "clients", "email"},
			},
			{
				Key:             KeyProfessional,
				Name:            "Professional",
				PriceID:         cfg.StripePriceProfessional,
				MonthlyPrice:    decimal.NewFromInt(19),
				MonthlyInvoices: 100,
				MaxClients:      500,
				Features:        []string{"invoices", "clients", "email", "archive", "priority-support"},
			},
			{
				Key:             KeyEnterprise,
				Name:            "Enterprise",
				PriceID:         cfg.StripePriceEnterprise,
				MonthlyPrice:    decimal.NewFromInt(49),
				MonthlyInvoices: Unlimited,
				MaxClients:      Unlimited,
				Features:        []string{"invoices", "clients", "email", "archive", "priority-support", "multi-user"},
			},
		},
	}
}

// Default returns the plan used when none is stored or the stored key is unknown.
func (t *Table) Default() Plan {
	for _, p := range t.Plans {
		if p.Key == t.DefaultKey {
			return p
		}
	}
	return t.Plans[0]
}

// ByKey returns the plan with the given key, or the default plan.
func (t *Table) ByKey(key string) Plan {
	for _, p := range t.Plans {
		if p.Key == key {
			return p
		}
	}
	return t.Default()
}

// ByPriceID finds the plan sold under a payment provider price id.
func (t *Table) ByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range t.Plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}
