// Package migrations embeds the schema files applied by `alpha migrate`.
package migrations

import (
	"embed"
	"strings"
)

//go:embed *.sql clickhouse/*.sql
var FS embed.FS

// Statements splits a migration file on ';' and drops empty parts.
// Migration files must not contain ';' inside literals.
func Statements(name string) ([]string, error) {
	b, err := FS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range strings.Split(string(b), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
