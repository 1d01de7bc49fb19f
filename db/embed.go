// Package db provides embedded database schema files.
package db

import _ "embed"

// Schema contains the DDL statements for all snapshot tables.
//
//go:embed migrations/001_schema.sql
var Schema string
