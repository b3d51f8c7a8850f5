package client

import "vitarp/internal/input"

// outputNames parses a config custom-map value (e.g. "CROSS", "L2") into
// its input.Output constant. Unknown names resolve to input.NONE, matching
// MappingTable.Lookup's own unbound-id behavior.
var outputNames = map[string]input.Output{
	"TRIANGLE": input.TRIANGLE,
	"CIRCLE":   input.CIRCLE,
	"CROSS":    input.CROSS,
	"SQUARE":   input.SQUARE,
	"L1":       input.L1,
	"R1":       input.R1,
	"L2":       input.L2,
	"R2":       input.R2,
	"L3":       input.L3,
	"R3":       input.R3,
	"PS":       input.PS,
	"SHARE":    input.SHARE,
	"OPTIONS":  input.OPTIONS,
	"TOUCHPAD": input.TOUCHPAD,
	"DPAD_UP":    input.DPadUp,
	"DPAD_DOWN":  input.DPadDown,
	"DPAD_LEFT":  input.DPadLeft,
	"DPAD_RIGHT": input.DPadRight,
}

// defaultBindings is the identity mapping used when a controller-map slot
// has no custom overrides: physical IDs are named after the Output they
// drive one-for-one.
var defaultBindings = []string{
	"TRIANGLE", "CIRCLE", "CROSS", "SQUARE",
	"L1", "R1", "L2", "R2", "L3", "R3",
	"PS", "SHARE", "OPTIONS", "TOUCHPAD",
	"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
}

// buildMappingTable constructs a MappingTable starting from the identity
// default and overlaying custom string overrides (physical ID -> Output
// name), then wires the L2/R2 analog-trigger slots to their own names.
func buildMappingTable(custom map[string]string) *input.MappingTable {
	m := input.NewMappingTable()
	for _, name := range defaultBindings {
		m.Bind(input.ID(name), outputNames[name])
	}
	for id, outName := range custom {
		if out, ok := outputNames[outName]; ok {
			m.Bind(input.ID(id), out)
		}
	}
	m.SetAnalogTriggers("L2", "R2")
	return m
}
