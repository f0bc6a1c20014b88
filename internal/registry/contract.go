package registry

import "github.com/roach88/sobootstrap/internal/ir"

// ContractDigest identifies a registry and type table pair. Two toolchains
// with the same digest emit bootstraps against the same contract.
func ContractDigest(reg *Registry, types *TypeTable) (string, error) {
	ops := make([]any, 0, reg.Len())
	for _, d := range reg.ordered {
		ops = append(ops, map[string]any{
			"code":       d.Code,
			"id":         int(d.Code),
			"symbol":     d.Symbol,
			"precedence": int64(d.Precedence),
			"assoc":      string(d.Assoc),
			"class":      string(d.Class),
			"arity": map[string]any{
				"leading":  d.Arity.Leading,
				"variadic": d.Arity.Variadic,
				"min":      d.Arity.Min,
			},
			"fold":     string(d.Fold),
			"identity": map[string]any{"kind": string(d.Identity.Kind), "value": d.Identity.Value},
			"failure":  string(d.Failure),
		})
	}

	tys := make([]any, 0, len(types.ordered))
	for _, t := range types.ordered {
		tys = append(tys, map[string]any{"tag": t.Tag(), "rule": t.Rule()})
	}

	return ir.Digest(ir.DomainContract, map[string]any{
		"version":   ir.ContractVersion,
		"operators": ops,
		"types":     tys,
	})
}
