// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package source

import (
	"errors"
	"fmt"
)

// Error taxonomy for upstream failures. The refresh engine branches on
// these with errors.Is:
//
//   - ErrUnreachable: transport-level failure (dial, timeout, 5xx).
//     Transient; retried with backoff.
//   - ErrAuth: the upstream rejected our credentials (401/403).
//     Persistent; polling the source stops until restart.
//   - ErrProtocol: the upstream answered but the response was not what
//     we expect (unparseable JSON, missing envelope, unexpected 4xx).
//     Transient; retried with backoff.
var (
	ErrUnreachable = errors.New("upstream unreachable")
	ErrAuth        = errors.New("upstream rejected credentials")
	ErrProtocol    = errors.New("upstream protocol error")
)

// classify wraps err with the taxonomy sentinel for an HTTP status.
// A status of 0 means the request never got a response.
func classify(status int, op string, err error) error {
	switch {
	case status == 0:
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, op, err)
	case status == 401 || status == 403:
		return fmt.Errorf("%w: %s: status %d", ErrAuth, op, status)
	case status >= 500:
		return fmt.Errorf("%w: %s: status %d: %v", ErrUnreachable, op, status, err)
	default:
		return fmt.Errorf("%w: %s: status %d: %v", ErrProtocol, op, status, err)
	}
}

// protocolErr wraps a successful-status failure (decode error, missing
// fields) as ErrProtocol.
func protocolErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrProtocol, op, err)
}

var errEmptyTimestamp = errors.New("empty timestamp")
