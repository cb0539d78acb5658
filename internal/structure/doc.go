// Package structure models a tensegrity structure: a network of nodes
// joined by tension-only strings and rigid bars, optionally wrapped onto
// a constraint surface.
//
// The core types are:
//
//   - [Node]: a named point with a 2- or 3-component position
//   - [Connection]: an ordered chain of nodes with a force law
//   - [Surface]: a geometric wrap with seam node pairs
//   - [Tensegrity]: the owning aggregate with pins and controls
//
// A Tensegrity exclusively owns its nodes and connections. Connections
// hold references to shared Node instances; all position writes go
// through the aggregate so derived forces can be refreshed afterwards
// with [Tensegrity.UpdateForces].
//
// Nothing in this package is safe for concurrent mutation. Batch
// scenario exploration should give each worker its own copy via
// [Tensegrity.Clone].
package structure
