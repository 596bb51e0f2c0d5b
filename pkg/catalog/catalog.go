// Package catalog implements the rate catalog index (spec.md §4.A): it
// loads every hospital rate sheet in a directory, builds hospital /
// category / item vector indices normalized through pkg/normalize, and
// serves lookups off an atomically-swapped snapshot so a reload() never
// exposes a partial catalog to readers (spec.md §5, §8).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-logr/logr"

	apperrors "github.com/Aviraj-Roy/billverify/internal/errors"
	"github.com/Aviraj-Roy/billverify/pkg/embedding"
	"github.com/Aviraj-Roy/billverify/pkg/model"
	"github.com/Aviraj-Roy/billverify/pkg/normalize"
)

// categoryEntry bundles a category's own index node with its item index.
type categoryEntry struct {
	node  Node
	items []ItemNode
}

type hospitalEntry struct {
	node       Node
	rateSheet  model.RateSheet
	categories []categoryEntry
	// unionItems is every item across every category of this hospital,
	// used by the bill verifier's Stage 2 low-similarity fallback.
	unionItems []ItemNode
}

// snapshot is the full, immutable-after-build catalog state. A reload()
// builds a brand new snapshot and swaps the pointer atomically.
type snapshot struct {
	hospitals       []Node
	hospitalsByNorm map[string]*hospitalEntry
}

// Catalog is the process-wide rate catalog index.
type Catalog struct {
	dir     string
	backend embedding.Backend
	cache   *embedding.DiskCache
	logger  logr.Logger

	current atomic.Pointer[snapshot]
}

// New constructs an (unloaded) catalog. Call Load (or Reload) before use.
func New(dir string, backend embedding.Backend, cache *embedding.DiskCache, logger logr.Logger) *Catalog {
	return &Catalog{dir: dir, backend: backend, cache: cache, logger: logger}
}

// Load builds the catalog for the first time and is equivalent to Reload.
func (c *Catalog) Load(ctx context.Context) error {
	return c.Reload(ctx)
}

// Reload builds a brand new snapshot from disk and swaps it in atomically
// (spec.md §4.A "atomic swap": readers see either the old or new catalog,
// never a partial one).
func (c *Catalog) Reload(ctx context.Context) error {
	snap, err := c.build(ctx)
	if err != nil {
		return err
	}
	c.current.Store(snap)
	c.logger.Info("catalog: reloaded", "hospitals", len(snap.hospitals))
	return nil
}

func (c *Catalog) build(ctx context.Context) (*snapshot, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, apperrors.NewCatalogLoad(err, fmt.Sprintf("reading catalog directory %s", c.dir))
	}

	snap := &snapshot{hospitalsByNorm: make(map[string]*hospitalEntry)}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		sheet, err := readRateSheet(path)
		if err != nil {
			return nil, apperrors.NewCatalogLoad(err, fmt.Sprintf("parsing %s", path))
		}

		hospEntry, err := c.buildHospitalEntry(ctx, sheet)
		if err != nil {
			return nil, apperrors.NewCatalogLoad(err, fmt.Sprintf("building indices for %s", sheet.HospitalName))
		}

		normName := normalize.Normalize(sheet.HospitalName)
		if normName == "" {
			return nil, apperrors.NewCatalogLoad(nil, fmt.Sprintf("%s has an empty hospital_name", path))
		}
		if _, exists := snap.hospitalsByNorm[normName]; exists {
			return nil, apperrors.NewCatalogLoad(nil, fmt.Sprintf("duplicate hospital name after normalization: %s", normName))
		}

		snap.hospitalsByNorm[normName] = hospEntry
		snap.hospitals = append(snap.hospitals, hospEntry.node)
	}

	return snap, nil
}

func readRateSheet(path string) (model.RateSheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RateSheet{}, err
	}
	var sheet model.RateSheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return model.RateSheet{}, fmt.Errorf("invalid json: %w", err)
	}
	if sheet.HospitalName == "" {
		return model.RateSheet{}, fmt.Errorf("missing required field hospital_name")
	}
	for _, cat := range sheet.Categories {
		if cat.CategoryName == "" {
			return model.RateSheet{}, fmt.Errorf("missing required field category_name")
		}
		for _, item := range cat.Items {
			if item.ItemName == "" {
				return model.RateSheet{}, fmt.Errorf("missing required field item_name")
			}
		}
	}
	return sheet, nil
}

func (c *Catalog) buildHospitalEntry(ctx context.Context, sheet model.RateSheet) (*hospitalEntry, error) {
	hospVector, err := c.embedNormalized(ctx, sheet.HospitalName)
	if err != nil {
		return nil, err
	}

	entry := &hospitalEntry{
		node: Node{
			ID:             sheet.HospitalName,
			Name:           sheet.HospitalName,
			NormalizedName: normalize.Normalize(sheet.HospitalName),
			Vector:         hospVector,
		},
		rateSheet: sheet,
	}

	for _, cat := range sheet.Categories {
		catVector, err := c.embedNormalized(ctx, cat.CategoryName)
		if err != nil {
			return nil, err
		}

		catEntry := categoryEntry{
			node: Node{
				ID:             cat.CategoryName,
				Name:           cat.CategoryName,
				NormalizedName: normalize.Normalize(cat.CategoryName),
				Vector:         catVector,
			},
		}

		for _, item := range cat.Items {
			itemVector, err := c.embedNormalized(ctx, item.ItemName)
			if err != nil {
				return nil, err
			}
			in := ItemNode{
				Node: Node{
					ID:             item.ItemName,
					Name:           item.ItemName,
					NormalizedName: normalize.Normalize(item.ItemName),
					Vector:         itemVector,
				},
				Item: item,
			}
			catEntry.items = append(catEntry.items, in)
			entry.unionItems = append(entry.unionItems, in)
		}

		entry.categories = append(entry.categories, catEntry)
	}

	return entry, nil
}

func (c *Catalog) embedNormalized(ctx context.Context, text string) (embedding.Vector, error) {
	normalized := normalize.WithMedicalCore(text)
	vectors, err := embedding.CachedEmbed(ctx, c.backend, c.cache, []string{normalized})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// HospitalIndices is the (category_index, per_category_item_index) pair
// spec.md §4.A's get_indices returns, plus the union item index used by
// the bill verifier's low-category-similarity fallback (§4.G Stage 2).
type HospitalIndices struct {
	HospitalName string
	Categories   []Node
	categoryData map[string]*categoryEntry // keyed by category Node.ID
	UnionItems   []ItemNode
}

// ItemsFor returns the item index for the category the given Node ID
// resolved to.
func (h HospitalIndices) ItemsFor(categoryID string) []ItemNode {
	if entry, ok := h.categoryData[categoryID]; ok {
		return entry.items
	}
	return nil
}

// GetIndices looks up a hospital's indices by case-insensitive,
// whitespace-collapsed equality after normalization (spec.md §4.A).
func (c *Catalog) GetIndices(hospitalName string) (HospitalIndices, error) {
	snap := c.current.Load()
	if snap == nil {
		return HospitalIndices{}, apperrors.NewCatalogLoad(nil, "catalog not loaded")
	}

	normName := normalize.Normalize(hospitalName)
	entry, ok := snap.hospitalsByNorm[normName]
	if !ok {
		return HospitalIndices{}, apperrors.NewHospitalNotFound(hospitalName)
	}

	data := make(map[string]*categoryEntry, len(entry.categories))
	categories := make([]Node, 0, len(entry.categories))
	for i := range entry.categories {
		ce := &entry.categories[i]
		data[ce.node.ID] = ce
		categories = append(categories, ce.node)
	}

	return HospitalIndices{
		HospitalName: entry.rateSheet.HospitalName,
		Categories:   categories,
		categoryData: data,
		UnionItems:   entry.unionItems,
	}, nil
}

// EmbedQuery embeds ad-hoc query text (a bill item or asserted hospital
// name) through the same backend and normalization used at load time, but
// bypasses the on-disk cache: query texts are one-off and caching them
// would grow the cache unboundedly (spec.md §5 "single writer" for the
// cache is the catalog loader, not query-time callers).
func (c *Catalog) EmbedQuery(ctx context.Context, text string) (embedding.Vector, error) {
	normalized := normalize.WithMedicalCore(text)
	vectors, err := c.backend.Embed(ctx, []string{normalized})
	if err != nil {
		return nil, fmt.Errorf("catalog: embed query: %w", err)
	}
	return vectors[0], nil
}

// HospitalNodes returns the hospital index for top-1 hospital matching
// (spec.md §4.G Stage 1).
func (c *Catalog) HospitalNodes() ([]Node, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, apperrors.NewCatalogLoad(nil, "catalog not loaded")
	}
	return snap.hospitals, nil
}

// Loaded reports whether a snapshot has ever been stored.
func (c *Catalog) Loaded() bool {
	return c.current.Load() != nil
}

// HospitalCount returns the number of hospitals in the current snapshot,
// for diagnostics and list_hospitals (spec.md §6).
func (c *Catalog) HospitalCount() int {
	snap := c.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.hospitals)
}

// HospitalNames returns every loaded hospital's original (non-normalized)
// name, for list_hospitals (spec.md §6).
func (c *Catalog) HospitalNames() []string {
	snap := c.current.Load()
	if snap == nil {
		return nil
	}
	names := make([]string, 0, len(snap.hospitals))
	for _, h := range snap.hospitals {
		names = append(names, h.Name)
	}
	return names
}
