package importer

import (
	"fmt"
	"sort"

	"github.com/mekanics/beanport/bean"
)

// Instrument is one entry of the lookup table: the resolved symbol (used as
// the beancount commodity) and the account the position is booked on. Account
// may stay empty for importers that derive the position account from the
// export context instead of configuration.
type Instrument struct {
	Symbol  string
	ISIN    string
	Account bean.Account
}

// InstrumentMap maps instrument identifiers (ISIN, symbol, or an
// institution's display name) to instruments. It is built once from static
// configuration and read-only during import. Construction validates every
// account path, so a typo in the configuration fails at load time instead of
// mid-import.
type InstrumentMap struct {
	byID map[string]Instrument
}

// NewInstrumentMap validates the entries and builds the lookup table.
func NewInstrumentMap(entries map[string]Instrument) (*InstrumentMap, error) {
	byID := make(map[string]Instrument, len(entries))
	for id, inst := range entries {
		if id == "" {
			return nil, fmt.Errorf("instrument map contains an empty identifier")
		}
		if inst.Symbol == "" {
			return nil, fmt.Errorf("instrument %q has no symbol", id)
		}
		if inst.Account != "" {
			if _, err := bean.NewAccount(string(inst.Account)); err != nil {
				return nil, fmt.Errorf("instrument %q: %w", id, err)
			}
		}
		byID[id] = inst
	}
	return &InstrumentMap{byID: byID}, nil
}

// Lookup resolves an identifier. Missing identifiers fail with
// *UnmappedInstrumentError and must surface to the operator.
func (m *InstrumentMap) Lookup(id string) (Instrument, error) {
	inst, ok := m.byID[id]
	if !ok {
		return Instrument{}, &UnmappedInstrumentError{Instrument: id, Known: m.ids()}
	}
	return inst, nil
}

func (m *InstrumentMap) ids() []string {
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
