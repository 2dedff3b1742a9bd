package application

import (
	"bytes"
	"context"
	"testing"
)

// FuzzCatalogLoader_Load feeds arbitrary documents to the loader. Any
// catalog it accepts must register cleanly and survive an encode/load
// round trip.
func FuzzCatalogLoader_Load(f *testing.F) {
	// Seed with valid and broken catalogs to guide the fuzzer.
	testcases := []string{
		minimalCatalog,
		string(BuiltinCatalog()),
		`version: "1.0.0"
evaluators:
  - {id: a/b, category: other}`,
		`version: "1.0.0
evaluators: [`,
		`version: "1.0.0"
evaluators:
  - id: a/b
    category: other
    settings:
      - {name: l, type: list, items: {type: group, fields: [{name: x, type: enum, values: [p, q]}]}}`,
		`{"version":"1.0.0","evaluators":[{"id":"x/y","category":"c","settings":[{"name":"o","type":"string","optional":true}]}]}`,
		"",
	}
	for _, tc := range testcases {
		f.Add(tc)
	}

	loader, err := NewCatalogLoader(nil)
	if err != nil {
		f.Fatalf("failed to create loader: %v", err)
	}

	f.Fuzz(func(t *testing.T, doc string) {
		ctx := context.Background()
		descriptors, err := loader.Load(ctx, []byte(doc))
		if err != nil {
			return
		}

		reg := NewRegistry()
		if err := reg.RegisterAll(descriptors...); err != nil {
			t.Fatalf("loaded catalog failed to register: %v", err)
		}

		var buf bytes.Buffer
		if err := Encode(&buf, descriptors, FormatYAML); err != nil {
			t.Fatalf("failed to encode loaded catalog: %v", err)
		}
		if _, err := loader.Load(ctx, buf.Bytes()); err != nil {
			t.Fatalf("re-encoded catalog failed to load: %v\n%s", err, buf.String())
		}

		for _, d := range descriptors {
			defaults := d.Defaults()
			resolver := NewResolver(reg)
			resolved, err := resolver.Resolve(ctx, d.ID, defaults)
			if err != nil {
				t.Fatalf("defaults of %s do not resolve: %v", d.ID, err)
			}
			if len(resolved.Values) != len(d.Settings.Fields) {
				t.Fatalf("resolved %d fields for %s, want %d", len(resolved.Values), d.ID, len(d.Settings.Fields))
			}
		}
	})
}
