package packaging

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

// maxBundleDepth caps how deep a bundle-of-bundles chain is expanded. One
// level is the authored norm; anything past the cap is skipped with a soft
// error.
const maxBundleDepth = 3

const (
	defaultRecipeCacheSize = 256
	defaultRecipeCacheTTL  = 5 * time.Minute
)

// Prometheus metrics for the recipe cache.
var (
	recipeCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packtrack_recipe_cache_hits_total",
		Help: "Bundle component lookups served from the cache.",
	})
	recipeCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packtrack_recipe_cache_misses_total",
		Help: "Bundle component lookups that hit the store.",
	})
)

// RecipeCache holds bundle component lists keyed by parent product id.
// Recipes are authored elsewhere and read-only here, so a short TTL is the
// only invalidation needed.
type RecipeCache struct {
	cache *expirable.LRU[string, []models.ProductComponent]
}

// NewRecipeCache creates a cache with the given maximum size and entry TTL.
func NewRecipeCache(maxSize int, ttl time.Duration) *RecipeCache {
	return &RecipeCache{cache: expirable.NewLRU[string, []models.ProductComponent](maxSize, nil, ttl)}
}

func (c *RecipeCache) get(parentID string) ([]models.ProductComponent, bool) {
	comps, ok := c.cache.Get(parentID)
	if ok {
		recipeCacheHitsTotal.Inc()
		return comps, true
	}
	recipeCacheMissesTotal.Inc()
	return nil, false
}

func (c *RecipeCache) add(parentID string, comps []models.ProductComponent) {
	c.cache.Add(parentID, comps)
}

// componentsFor returns the component edges of a bundle, via the cache.
func (s *Service) componentsFor(ctx context.Context, parentID string) ([]models.ProductComponent, error) {
	if comps, ok := s.recipes.get(parentID); ok {
		return comps, nil
	}

	res, err := s.store.ListRows(ctx, rowstore.TableProductComponents, rowstore.Query{
		Predicates: []rowstore.Predicate{rowstore.Eq("parent_product_id", parentID)},
	})
	if err != nil {
		return nil, err
	}

	comps := make([]models.ProductComponent, 0, len(res.Rows))
	for _, row := range res.Rows {
		comps = append(comps, models.ProductComponentFromRow(row))
	}
	s.recipes.add(parentID, comps)
	return comps, nil
}

// resolveStockRequirements turns a record's item list into aggregated stock
// requirements per product id. Duplicate scans of one barcode collapse into a
// count, bundles expand into their components, and the bundle itself never
// receives a requirement. Missing products and broken recipes become soft
// errors; only the initial product fetch can fail the resolution.
func (s *Service) resolveStockRequirements(ctx context.Context, items []models.PackagingItem) (map[string]models.StockDelta, []string, error) {
	counts := make(map[string]int, len(items))
	for _, it := range items {
		counts[it.ProductBarcode]++
	}
	barcodes := make([]string, 0, len(counts))
	for barcode := range counts {
		barcodes = append(barcodes, barcode)
	}
	sort.Strings(barcodes)

	products, err := s.fetchProductsByBarcodes(ctx, barcodes)
	if err != nil {
		return nil, nil, err
	}

	requirements := make(map[string]models.StockDelta)
	var soft []string
	for _, barcode := range barcodes {
		count := counts[barcode]
		product, ok := products[barcode]
		if !ok {
			soft = append(soft, fmt.Sprintf("Product not found: %s", barcode))
			continue
		}
		if !product.IsBundle() {
			addRequirement(requirements, product, count)
			continue
		}
		soft = append(soft, s.expandBundle(ctx, product, count, requirements)...)
	}
	return requirements, soft, nil
}

// expandBundle walks root's component graph level by level, multiplying
// quantities down the chain. Every frame carries the ancestry of its own
// path, so a sub-bundle reachable through two branches expands under both
// with its quantities merged, and only a bundle appearing on its own path is
// a cycle. Cycles and nesting past maxBundleDepth record soft errors instead
// of failing the resolution.
func (s *Service) expandBundle(ctx context.Context, root models.Product, count int, requirements map[string]models.StockDelta) []string {
	type frame struct {
		product    models.Product
		multiplier int
		ancestry   []string
	}
	type edge struct {
		childID  string
		quantity int
		ancestry []string
	}

	var soft []string
	level := []frame{{product: root, multiplier: count, ancestry: []string{root.ID}}}

	for depth := 0; len(level) > 0; depth++ {
		if depth >= maxBundleDepth {
			soft = append(soft, fmt.Sprintf("Bundle nesting exceeds depth %d: %s", maxBundleDepth, root.Label()))
			break
		}

		var edges []edge
		for _, f := range level {
			comps, err := s.componentsFor(ctx, f.product.ID)
			if err != nil {
				soft = append(soft, fmt.Sprintf("Failed to load components for bundle %s: %v", f.product.Label(), err))
				continue
			}
			if len(comps) == 0 {
				soft = append(soft, fmt.Sprintf("No components found for bundle: %s", f.product.Barcode))
				continue
			}
			for _, comp := range comps {
				edges = append(edges, edge{childID: comp.ChildProductID, quantity: comp.Quantity * f.multiplier, ancestry: f.ancestry})
			}
		}
		if len(edges) == 0 {
			break
		}

		childIDs := make([]string, 0, len(edges))
		seen := make(map[string]bool, len(edges))
		for _, e := range edges {
			if !seen[e.childID] {
				seen[e.childID] = true
				childIDs = append(childIDs, e.childID)
			}
		}
		children, err := s.fetchProductsByIDs(ctx, childIDs)
		if err != nil {
			soft = append(soft, fmt.Sprintf("Failed to load component products for bundle %s: %v", root.Label(), err))
			break
		}

		var next []frame
		for _, e := range edges {
			child, ok := children[e.childID]
			if !ok {
				soft = append(soft, fmt.Sprintf("Component product not found: %s", e.childID))
				continue
			}
			if !child.IsBundle() {
				addRequirement(requirements, child, e.quantity)
				continue
			}
			if onPath(e.ancestry, child.ID) {
				soft = append(soft, fmt.Sprintf("Bundle cycle detected: %s", child.Label()))
				continue
			}
			ancestry := make([]string, len(e.ancestry), len(e.ancestry)+1)
			copy(ancestry, e.ancestry)
			next = append(next, frame{product: child, multiplier: e.quantity, ancestry: append(ancestry, child.ID)})
		}
		level = next
	}
	return soft
}

// onPath reports whether id already occurs on the expansion path.
func onPath(ancestry []string, id string) bool {
	for _, a := range ancestry {
		if a == id {
			return true
		}
	}
	return false
}

// addRequirement accumulates qty onto the product's requirement, keeping a
// snapshot of the product for later error messages.
func addRequirement(requirements map[string]models.StockDelta, product models.Product, qty int) {
	delta := requirements[product.ID]
	snapshot := product
	delta.Product = &snapshot
	delta.Quantity += qty
	requirements[product.ID] = delta
}
