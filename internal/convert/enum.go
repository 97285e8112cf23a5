package convert

import (
	"fmt"

	"github.com/jptrs93/protogen/internal/descriptor"
	"github.com/jptrs93/protogen/internal/ir"
)

// ProtoEmpty is the zero value injected into every enum, since proto3
// requires the first enum value to be 0.
const ProtoEmpty = "PROTO_EMPTY"

func (r *run) enumFields(t *descriptor.Type) ([]ir.FieldDef, error) {
	var values []ir.FieldDef
	seen := map[string]bool{}
	for i, c := range t.Constants {
		if c.Name == ProtoEmpty {
			return nil, fmt.Errorf("%s :: %s is reserved for the default value", t.Name, ProtoEmpty)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%s :: duplicate constant %s", t.Name, c.Name)
		}
		seen[c.Name] = true

		index, err := r.assign.index(t.Name, c.Name, i+1, c.Index, values)
		if err != nil {
			return nil, err
		}
		values = append(values, ir.EnumValue(c.Name, index, c.Skip))
	}

	values = append(values, ir.EnumValue(ProtoEmpty, 0, false))

	if r.opts.Strategy == StrategyEvolution {
		values = reinsertHistory(r.prior.ClassOf(t.Name), ir.FieldEnum, values)
	}
	if err := checkIndices(t.Name, values); err != nil {
		return nil, err
	}
	sortByIndex(values)
	return values, nil
}
