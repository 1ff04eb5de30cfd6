// Package services implements the business logic of the report bot: turn
// handling, confirmation detection, summary capture, and digest building.
// This file centralizes common service-level error values so that they can
// be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages is performed by the HTTP handlers
// and the scheduler.
package services

import "errors"

// ErrTeamNotFound indicates that the requested team id is not present in
// the configured roster.
var ErrTeamNotFound = errors.New("team not found")
