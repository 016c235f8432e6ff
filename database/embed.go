package database

import (
	"embed"
	"io/fs"
)

// EmbeddedMigrations holds database/migrations/*.sql, compiled into the binary
// so a deployed server needs no files next to it.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

// Migrations returns the embedded migrations rooted at the migrations dir.
func Migrations() fs.FS {
	sub, err := fs.Sub(EmbeddedMigrations, "migrations")
	if err != nil {
		// The directory is part of the embed pattern; this cannot fail.
		panic(err)
	}
	return sub
}
