// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document and page persistence
//   - StatsStore: Persistent search counter
//   - Rasterizer: Turns an upload into page images
//   - ImageNormaliser: Prepares page images for recognition and thumbnails
//   - OCREngine: Text recognition
//   - ConfigStore: Application configuration
//   - SchedulerStore: Background task state and history
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SourceValidator: Structural checks at upload time. Without it,
//     malformed PDFs are only detected during rasterisation.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
