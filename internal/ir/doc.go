// Package ir provides the foundational types shared by every part of the
// bootstrap toolchain: operator codes, type tags, runtime values, the
// front-end program form, and build manifests.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - Operator codes are numbered once and shared by every backend. Emitters
//     derive symbol names from the numeric id (so2, so20), so ids never change.
//   - The numeric domain is a single IEEE-754 double (Number). There is no
//     separate integer value; the int cast yields an integral Number.
//   - Canonical JSON (RFC 8785) is the only serialization used for digests.
package ir
