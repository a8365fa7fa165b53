// Command musgen regenerates the MUS serializers in core/records_mus.gen.go.
// It is invoked through go:generate from the core package.
package main

import (
	"log"
	"os"
	"path/filepath"
	"reflect"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
	"github.com/poiesic/wikistream/core"
)

const output = "core/records_mus.gen.go"

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	// go generate runs in the package directory; write relative to the module root.
	if filepath.Base(cwd) == "core" {
		if err := os.Chdir(".."); err != nil {
			log.Fatal(err)
		}
	}

	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/wikistream/core"),
	)
	if err != nil {
		log.Fatal(err)
	}

	g.AddDefinedType(reflect.TypeFor[core.ID]())

	// InsertedAt is stored as Unix microseconds.
	micro := typeops.WithTimeUnit(typeops.Micro)
	err = g.AddStruct(reflect.TypeFor[core.StoredUnit](),
		structops.WithField(), // Id
		structops.WithField(), // Collection
		structops.WithField(), // ArticleID
		structops.WithField(), // ArticleTitle
		structops.WithField(), // SectionName
		structops.WithField(), // Position
		structops.WithField(), // Content
		structops.WithField(), // Vector
		structops.WithField(micro))
	if err != nil {
		log.Fatal(err)
	}

	bs, err := g.Generate()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(output, bs, 0644); err != nil {
		log.Fatal(err)
	}
}
