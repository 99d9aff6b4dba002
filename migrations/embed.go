// Package migrations embute os arquivos SQL do goose, usados pelo cmd/migrate e pelos testes de integração.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
