// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package logging is a thin wrapper over the standard log package,
// the same direct log.Printf/fmt.Fprintf(os.Stderr, ...) style
// cmd/sdb and cmd/snellerd use rather than a structured-logging
// dependency; this just adds a level prefix so realm/process/pool
// diagnostics are greppable without pulling in a logging library.
package logging

import "log"

// Infof logs an informational message.
func Infof(format string, args ...any) {
	log.Printf("INFO  "+format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	log.Printf("WARN  "+format, args...)
}

// Errorf logs an error.
func Errorf(format string, args ...any) {
	log.Printf("ERROR "+format, args...)
}
