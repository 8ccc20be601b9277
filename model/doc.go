// Package model provides a compact vehicle simulation built on the
// dispatch engine: theoretical driving cycles, longitudinal dynamics,
// engine speeds and the fuel consumption and CO2 emission chain.
//
// Each area is its own dispatcher and Physical composes them through
// sub dispatcher adapters, so any intermediate quantity can be fed as
// a measured input and the graph computes only what is missing.
package model
