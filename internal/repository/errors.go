// Package repository implements data access over MySQL. This file defines
// sentinel errors shared across repositories so that handlers and the
// finalizer can branch on failure modes without string matching.
package repository

import "errors"

// ErrPlotTaken is returned when the conditional plot claim affects zero
// rows: another registration won the race between the availability query
// and the commit. Callers must treat this as a booking conflict, roll
// back whatever they created, and ask the user to pick another plot.
var ErrPlotTaken = errors.New("plot already booked by another registration")

// ErrAlreadyProcessed is returned when a webhook event's transaction id
// already sits in the idempotency ledger. The finalizer short-circuits to
// a no-op success so gateway redelivery never duplicates rows.
var ErrAlreadyProcessed = errors.New("webhook event already processed")
