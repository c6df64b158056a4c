// Package harness runs YAML scenarios against the runtime and checks the
// outcome.
//
// # Scenario Format
//
//	name: counter_interrupts
//	description: "A self-updating counter settles at its target"
//	component: counter
//	store: { target: 2 }
//	steps:
//	  - action: resolve
//	  - action: set
//	    key: target
//	    value: 3
//	  - action: merge
//	    layer: "0"
//	    values: { label: x }
//	  - action: drain
//	assertions:
//	  - type: result
//	    expect: 3
//	  - type: store
//	    key: "$count"
//	    expect: 3
//	  - type: journal_count
//	    kind: interrupt
//	    count: 3
//	  - type: expr
//	    expr: 'result == 3 && counts.interrupt == 3'
//
// Layers are addressed by child index path from the root: "" is the root,
// "0/1" is the second child of the root's first child.
//
// # Determinism
//
// Each run gets a fresh in-memory journal, sequential layer IDs and a
// deterministic clock, so traces and snapshots are byte-identical across
// runs and suitable for golden comparison.
package harness
