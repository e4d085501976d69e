// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/migstat/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()...))
}

func TestDefaultDatasets(t *testing.T) {
	got := Datasets(Default()...)
	var names []string
	for _, d := range got {
		names = append(names, d.FileName())
	}
	want := []string{
		"migr_imm1ctz.csv",
		"migr_emi1ctz.csv",
		"migr_asydcfstq.csv",
		"unhcr_asylum_applications.zip",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("default dataset files mismatch (-want +got):\n%s", diff)
	}
}

const sampleCatalog = `
tabular:
  - id: migr_imm1ctz
    description: Immigration by citizenship
  - id: migr_asyappctza
    name: asylum_annual
rest:
  - id: https://api.unhcr.org/population/v1/asylum-applications/?download=true
    name: unhcr
`

func TestParse(t *testing.T) {
	got, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	want := []types.Catalog{
		{
			Kind: types.KindTabular,
			Entries: []types.CatalogEntry{
				{ID: "migr_imm1ctz", Name: "migr_imm1ctz", Description: "Immigration by citizenship"},
				{ID: "migr_asyappctza", Name: "asylum_annual"},
			},
		},
		{
			Kind: types.KindREST,
			Entries: []types.CatalogEntry{
				{ID: "https://api.unhcr.org/population/v1/asylum-applications/?download=true", Name: "unhcr"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, Datasets(got...), 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "{}"},
		{"duplicate tabular id", "tabular:\n  - id: migr_imm1ctz\n  - id: migr_emi1ctz\n  - id: migr_imm1ctz\n    name: again\n"},
		{"duplicate name", "tabular:\n  - id: a\n    name: x\n  - id: b\n    name: x\n"},
		{"rest without name", "rest:\n  - id: http://x\n"},
		{"name with separator", "tabular:\n  - id: a\n    name: ../a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseBadYAML(t *testing.T) {
	_, err := Parse([]byte("tabular: [unterminated"))
	assert.Error(t, err)
}

func TestValidateSameNameAcrossKinds(t *testing.T) {
	// x.csv and x.zip do not collide.
	err := Validate(
		types.Catalog{Kind: types.KindTabular, Entries: []types.CatalogEntry{{ID: "a", Name: "x"}}},
		types.Catalog{Kind: types.KindREST, Entries: []types.CatalogEntry{{ID: "http://x", Name: "x"}}},
	)
	assert.NoError(t, err)
}

func TestValidateUnknownKind(t *testing.T) {
	err := Validate(types.Catalog{Kind: "ftp", Entries: []types.CatalogEntry{{ID: "a", Name: "a"}}})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateReportsAll(t *testing.T) {
	err := Validate(types.Catalog{Kind: types.KindTabular, Entries: []types.CatalogEntry{
		{ID: "a", Name: "a"},
		{ID: "a", Name: "a"},
		{ID: "", Name: "b"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate identifier "a"`)
	assert.Contains(t, err.Error(), `duplicate name "a"`)
	assert.Contains(t, err.Error(), "empty identifier")
}

func TestMarshalDefaultLoadsBack(t *testing.T) {
	data, err := Marshal(Default()...)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tabular:")

	got, err := Parse(data)
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalUnknownKind(t *testing.T) {
	_, err := Marshal(types.Catalog{Kind: "ftp"})
	assert.ErrorIs(t, err, ErrInvalid)
}
