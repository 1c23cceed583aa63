// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Rasterisation, image handling and
// recognition are reached only through driven ports.
package services
