// Package tui provides the terminal progress view for docscan.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
)

// Ports aggregates the driving ports the progress view needs.
type Ports struct {
	// Documents loads document snapshots.
	Documents driving.DocumentService

	// Progress delivers live progress events.
	Progress driving.ProgressService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Documents == nil {
		return ErrMissingDocumentService
	}
	if p.Progress == nil {
		return ErrMissingProgressService
	}
	return nil
}
