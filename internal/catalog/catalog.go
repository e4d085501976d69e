// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog defines the datasets migstat fetches and loads
// user-supplied catalogs from YAML.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/migstat/pkg/types"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid catalog")

// unhcrAsylumURL requests asylum applications lodged in Slovakia, Austria,
// Hungary and Czechia, all origins, as a zipped CSV download.
const unhcrAsylumURL = "https://api.unhcr.org/population/v1/asylum-applications/" +
	"?limit=10000&dataset=asylum-applications&displayType=totals" +
	"&yearFrom=2014&yearTo=2024&coo_all=true&coa=SVK%2CAUT%2CHUN%2CCZE" +
	"&columns%5B%5D=procedure_type&columns%5B%5D=app_type" +
	"&columns%5B%5D=dec_level&columns%5B%5D=app_pc&columns%5B%5D=applied" +
	"&download=true"

// Default returns the built-in catalogs: three Eurostat migration datasets
// and one UNHCR asylum-applications download.
func Default() []types.Catalog {
	return []types.Catalog{
		{
			Kind: types.KindTabular,
			Entries: []types.CatalogEntry{
				{ID: "migr_imm1ctz", Name: "migr_imm1ctz", Description: "Immigration by citizenship, age and sex"},
				{ID: "migr_emi1ctz", Name: "migr_emi1ctz", Description: "Emigration by citizenship, age and sex"},
				{ID: "migr_asydcfstq", Name: "migr_asydcfstq", Description: "Asylum and first time asylum applicants"},
			},
		},
		{
			Kind: types.KindREST,
			Entries: []types.CatalogEntry{
				{ID: unhcrAsylumURL, Name: "unhcr_asylum_applications", Description: "UNHCR asylum applications, SK/AT/HU/CZ"},
			},
		},
	}
}

// file is the on-disk YAML layout of a catalog file.
type file struct {
	Tabular []types.CatalogEntry `yaml:"tabular,omitempty"`
	REST    []types.CatalogEntry `yaml:"rest,omitempty"`
}

// Load reads a catalog file with top-level "tabular" and "rest" lists.
// Tabular entries without a name are written under their dataset code.
// The result is validated before it is returned.
func Load(path string) ([]types.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) ([]types.Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	for i := range f.Tabular {
		if f.Tabular[i].Name == "" {
			f.Tabular[i].Name = f.Tabular[i].ID
		}
	}

	var catalogs []types.Catalog
	if len(f.Tabular) > 0 {
		catalogs = append(catalogs, types.Catalog{Kind: types.KindTabular, Entries: f.Tabular})
	}
	if len(f.REST) > 0 {
		catalogs = append(catalogs, types.Catalog{Kind: types.KindREST, Entries: f.REST})
	}
	if len(catalogs) == 0 {
		return nil, fmt.Errorf("%w: no datasets defined", ErrInvalid)
	}

	if err := Validate(catalogs...); err != nil {
		return nil, err
	}
	return catalogs, nil
}

// Marshal encodes catalogs in the layout Load reads.
func Marshal(catalogs ...types.Catalog) ([]byte, error) {
	var f file
	for _, c := range catalogs {
		switch c.Kind {
		case types.KindTabular:
			f.Tabular = append(f.Tabular, c.Entries...)
		case types.KindREST:
			f.REST = append(f.REST, c.Entries...)
		default:
			return nil, fmt.Errorf("%w: unknown source kind %q", ErrInvalid, c.Kind)
		}
	}
	return yaml.Marshal(f)
}

// Validate rejects unknown kinds, empty identifiers or names, names that
// would escape the output directory, and duplicate identifiers or names
// within a catalog. All problems are reported together.
func Validate(catalogs ...types.Catalog) error {
	var errs []error
	for _, c := range catalogs {
		if !c.Kind.Valid() {
			errs = append(errs, fmt.Errorf("%w: unknown source kind %q", ErrInvalid, c.Kind))
			continue
		}
		ids := make(map[string]int, len(c.Entries))
		names := make(map[string]int, len(c.Entries))
		for i, e := range c.Entries {
			pos := fmt.Sprintf("%s[%d]", c.Kind, i)
			switch {
			case strings.TrimSpace(e.ID) == "":
				errs = append(errs, fmt.Errorf("%w: %s: empty identifier", ErrInvalid, pos))
			case strings.TrimSpace(e.Name) == "":
				errs = append(errs, fmt.Errorf("%w: %s: empty name", ErrInvalid, pos))
			case strings.ContainsAny(e.Name, `/\`) || e.Name == "." || e.Name == "..":
				errs = append(errs, fmt.Errorf("%w: %s: name %q is not a plain file name", ErrInvalid, pos, e.Name))
			}
			if prev, ok := ids[e.ID]; ok && e.ID != "" {
				errs = append(errs, fmt.Errorf("%w: %s: duplicate identifier %q (first at %s[%d])", ErrInvalid, pos, e.ID, c.Kind, prev))
			} else {
				ids[e.ID] = i
			}
			if prev, ok := names[e.Name]; ok && e.Name != "" {
				errs = append(errs, fmt.Errorf("%w: %s: duplicate name %q (first at %s[%d])", ErrInvalid, pos, e.Name, c.Kind, prev))
			} else {
				names[e.Name] = i
			}
		}
	}
	return errors.Join(errs...)
}

// Datasets flattens catalogs into batch items, preserving order.
func Datasets(catalogs ...types.Catalog) []types.Dataset {
	var out []types.Dataset
	for _, c := range catalogs {
		for _, e := range c.Entries {
			out = append(out, types.Dataset{
				Kind:        c.Kind,
				ID:          e.ID,
				Name:        e.Name,
				Description: e.Description,
			})
		}
	}
	return out
}
