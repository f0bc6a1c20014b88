// Package harness provides conformance scenarios for the runtime contract.
//
// A scenario evaluates operator steps against the reference evaluator and
// checks that rendered bootstraps pass (or fail) the conformance validator.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	steps:
//	  - op: POW
//	    args: [2, 3, 2]
//	    expect: { value: 512 }
//	  - op: CAST
//	    args: [{ ref: 0 }, { type: string }]
//	    expect: { value: "512" }
//	  - op: INVALID
//	    expect: { error: INVALID_OPERATION }
//	assertions:
//	  - type: conformant
//	    targets: [javascript, python]
//	  - type: excluded
//	    targets: [python]
//	    indent: 0
//	    reason: render_error
//
// Args use the program operand form: scalars are literals, {ref: n} names
// an earlier step's result and {type: tag} is a type descriptor.
//
// # Assertion Types
//
//   - conformant: every listed target is emitted and accepted
//   - excluded: every listed target is rejected with the given reason code
//
// # Deterministic Testing
//
// Scenarios run with a deterministic logical clock and a fixed build ID
// against an in-memory ledger, so traces and release records are identical
// across runs and can be compared with golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/folds.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
