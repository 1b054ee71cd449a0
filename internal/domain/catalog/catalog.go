// Package catalog provides the area / tariff-plan master data and a
// per-run lookup service. The lookup is built once at the start of an
// import run and passed to the components that need it, so repeated runs
// in the same process never see stale master data.
package catalog

// Area is a supply area code.
type Area struct {
	ID   int32
	Name string
}

// TariffPlan is a pricing plan code.
type TariffPlan struct {
	ID   int32
	Name string
}

// Lookup resolves area and tariff-plan codes loaded from the master tables.
type Lookup struct {
	areas map[string]Area
	plans map[string]TariffPlan
}

// NewLookup builds a lookup from master rows.
func NewLookup(areas []Area, plans []TariffPlan) *Lookup {
	l := &Lookup{
		areas: make(map[string]Area, len(areas)),
		plans: make(map[string]TariffPlan, len(plans)),
	}
	for _, a := range areas {
		l.areas[a.Name] = a
	}
	for _, p := range plans {
		l.plans[p.Name] = p
	}
	return l
}

// Area resolves an area code.
func (l *Lookup) Area(name string) (Area, bool) {
	a, ok := l.areas[name]
	return a, ok
}

// TariffPlan resolves a tariff-plan code.
func (l *Lookup) TariffPlan(name string) (TariffPlan, bool) {
	p, ok := l.plans[name]
	return p, ok
}

// AreaName resolves an area id back to its code; empty when unknown.
func (l *Lookup) AreaName(id int32) string {
	for _, a := range l.areas {
		if a.ID == id {
			return a.Name
		}
	}
	return ""
}

// TariffPlanName resolves a plan id back to its code; empty when unknown.
func (l *Lookup) TariffPlanName(id int32) string {
	for _, p := range l.plans {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}
