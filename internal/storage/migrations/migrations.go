// Package migrations embeds the goose SQL migrations for the bot's database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
