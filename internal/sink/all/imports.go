// Package all wires all built-in sink backends into the sink factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete backend to run, which
// in turn register their factories with the sink package.
//
// In other words, importing this package makes the following sink kinds
// available at runtime:
//
//   - "singer"   (s3tap/internal/sink/singer)
//   - "postgres" (s3tap/internal/sink/postgres)
//   - "sqlite"   (s3tap/internal/sink/sqlite)
//
// If you want a binary that supports only a subset of backends, define an
// alternative wiring package that imports only the required ones.
package all

import (
	_ "s3tap/internal/sink/postgres"
	_ "s3tap/internal/sink/singer"
	_ "s3tap/internal/sink/sqlite"
)
