package model

import "context"

// Lister exposes the upstream model listing used for optional catalog
// verification. Implemented by the openai adapter.
type Lister interface {
	ListModelIDs(ctx context.Context) ([]string, error)
}

// CatalogEntry is one curated model offered to clients.
type CatalogEntry struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Recommended bool   `json:"recommended"`
}

// CatalogResult is the full catalog payload: the default model plus the
// curated entries.
type CatalogResult struct {
	Default string         `json:"default"`
	Models  []CatalogEntry `json:"models"`
}

// Catalog serves a curated model list. When Verify is enabled and a Lister
// is available, curated ids absent upstream are filtered out; on upstream
// failure the local curated list is returned unchanged.
type Catalog struct {
	curated      []string
	defaultModel string
	verify       bool
	lister       Lister
}

// NewCatalog builds a catalog from the curated ids and the default model.
func NewCatalog(curated []string, defaultModel string, verify bool, lister Lister) *Catalog {
	return &Catalog{curated: curated, defaultModel: defaultModel, verify: verify, lister: lister}
}

// List resolves the catalog, optionally verifying against the upstream.
// The default model is always present and marked recommended.
func (c *Catalog) List(ctx context.Context) CatalogResult {
	available := make(map[string]bool, len(c.curated))
	for _, id := range c.curated {
		available[id] = true
	}

	if c.verify && c.lister != nil {
		if ids, err := c.lister.ListModelIDs(ctx); err == nil {
			upstream := make(map[string]bool, len(ids))
			for _, id := range ids {
				upstream[id] = true
			}
			for id := range available {
				if !upstream[id] {
					delete(available, id)
				}
			}
		}
		// Upstream errors fall back to the local curated list.
	}

	models := make([]CatalogEntry, 0, len(c.curated))
	seenDefault := false
	for _, id := range c.curated {
		if !available[id] {
			continue
		}
		if id == c.defaultModel {
			seenDefault = true
		}
		models = append(models, CatalogEntry{ID: id, Label: id, Recommended: id == c.defaultModel})
	}
	if !seenDefault {
		models = append([]CatalogEntry{{ID: c.defaultModel, Label: c.defaultModel, Recommended: true}}, models...)
	}
	return CatalogResult{Default: c.defaultModel, Models: models}
}
