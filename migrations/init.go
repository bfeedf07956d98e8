package migrations

import (
	"io/fs"

	star "github.com/goliatone/go-star"
)

func init() {
	coreFS, err := fs.Sub(star.MigrationsFS, "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
