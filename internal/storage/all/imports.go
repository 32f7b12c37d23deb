// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects makes the "postgres" and "sqlite" kinds
// available to storage.New.
package all

import (
	_ "dataimport/internal/storage/postgres"
	_ "dataimport/internal/storage/sqlite"
)
