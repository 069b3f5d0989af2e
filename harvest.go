// Package harvest incrementally harvests a connector catalog from a web
// source. Each catalog entry (a connector) exposes two collections of
// sub-items: triggers and actions. Progress is persisted after every entry
// so an interrupted run resumes where it stopped, and the accumulated
// results are exported as structured JSON and flattened CSV.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/).
package harvest
