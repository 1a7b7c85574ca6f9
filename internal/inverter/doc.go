// Package inverter describes Solax inverter models: which position of the
// telemetry Data array carries which quantity, how the status code decodes,
// and which values stand in for a sleeping inverter.
//
// A Model is pure data plus a closed set of extractors (a fixed field or the
// decoded status), so adding an inverter family means adding a table, either
// in Go (see X3) or in a YAML definitions file (see LoadDefinitions).
//
// Usage:
//
//	reg, err := inverter.DefaultRegistry(inverter.Options{})
//	model, err := reg.Lookup("x3")
//	p, err := inverter.ParsePayload(raw)
//	active, err := model.IsActive(p)
package inverter
