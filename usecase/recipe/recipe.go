package recipe

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

// Finder is the recipe API.
type Finder interface {
	FindByIngredients(ctx context.Context, ingredients []string, number int) ([]domain.Recipe, error)
	SourceURL(ctx context.Context, id int) (string, error)
}

type Config struct {
	Number   int
	CacheTTL time.Duration
}

type UseCase struct {
	dir    repository.Directory
	finder Finder
	cache  repository.Cache
	cfg    Config
	logger *zap.Logger
}

func New(dir repository.Directory, finder Finder, cache repository.Cache, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Number <= 0 {
		cfg.Number = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &UseCase{dir: dir, finder: finder, cache: cache, cfg: cfg, logger: logger}
}

// Suggest finds recipes for the given ingredients, or for the names of the
// user's food items when none are given. Source links are fetched concurrently.
func (uc *UseCase) Suggest(ctx context.Context, identity domain.Identity, ingredients []string) ([]domain.Recipe, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	ingredients = normalize(ingredients)
	if len(ingredients) == 0 {
		names, err := uc.inventoryNames(ctx, identity.ID)
		if err != nil {
			return nil, err
		}
		ingredients = names
	}
	if len(ingredients) == 0 {
		return nil, domain.Invalid("no ingredients to search with")
	}

	key := "recipes:" + strings.Join(ingredients, ",")
	if cached, ok := uc.fromCache(ctx, key); ok {
		return cached, nil
	}

	found, err := uc.finder.FindByIngredients(ctx, ingredients, uc.cfg.Number)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range found {
		i := i
		g.Go(func() error {
			url, err := uc.finder.SourceURL(gctx, found[i].ID)
			if err != nil {
				uc.logger.Debug("recipe source lookup failed", zap.Int("recipe_id", found[i].ID), zap.Error(err))
				return nil
			}
			found[i].SourceURL = url
			return nil
		})
	}
	_ = g.Wait()

	uc.toCache(ctx, key, found)
	return found, nil
}

func (uc *UseCase) inventoryNames(ctx context.Context, userID string) ([]string, error) {
	docs, err := uc.dir.List(ctx, domain.FoodItemsPath(userID))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for i := range docs {
		var item domain.FoodItem
		if err := docs[i].Decode(&item); err == nil {
			names = append(names, item.Name)
		}
	}
	return normalize(names), nil
}

func (uc *UseCase) fromCache(ctx context.Context, key string) ([]domain.Recipe, bool) {
	if uc.cache == nil {
		return nil, false
	}
	raw, ok, err := uc.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var out []domain.Recipe
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (uc *UseCase) toCache(ctx context.Context, key string, found []domain.Recipe) {
	if uc.cache == nil {
		return
	}
	raw, err := json.Marshal(found)
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, key, raw, int(uc.cfg.CacheTTL.Seconds())); err != nil {
		uc.logger.Warn("recipe cache write failed", zap.Error(err))
	}
}

// normalize lowercases, trims, dedupes and sorts ingredient names.
func normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
