// Package repository implements the data access layer over MySQL.  This
// file defines sentinel errors shared across repositories so handlers can
// translate failure scenarios into the right HTTP responses.  Not-found and
// not-owned lookups both surface as sql.ErrNoRows on purpose: handlers map
// them to one merged 404 so callers cannot probe which records exist.
package repository

import "errors"

// ErrUsernameExists is returned when registering a username that is
// already taken.  Handlers translate this into HTTP 400.
var ErrUsernameExists = errors.New("username already exists")
