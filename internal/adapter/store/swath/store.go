package swath

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"

	"go.ngs.io/swath-geocoding/internal/adapter/store"
	"go.ngs.io/swath-geocoding/internal/domain"
	"go.ngs.io/swath-geocoding/internal/geocoding"
	"go.ngs.io/swath-geocoding/internal/metrics"
)

const productExt = ".nc"

// Options configures a Store.
type Options struct {
	Datum        domain.Datum
	GeoCoding    geocoding.Config
	CacheSize    int64         // Maximum number of cached geocodings.
	CacheTTL     time.Duration // Time a cached geocoding stays valid.
	ItemsToPrune uint32
	Logger       *slog.Logger
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		Datum:        domain.WGS84,
		GeoCoding:    geocoding.DefaultConfig(),
		CacheSize:    64,
		CacheTTL:     30 * time.Minute,
		ItemsToPrune: 8,
	}
}

var _ store.ProductSource = (*Store)(nil)

// Store serves the geocodings of the NetCDF products under a directory.
// It is safe for concurrent use.
type Store struct {
	dataDir string
	opts    Options
	logger  *slog.Logger

	cache *ccache.Cache[*geocoding.TiePointGeoCoding]

	// inflight collapses concurrent builds of the same product.
	inflight singleflight.Group
}

// NewStore creates a product store over dataDir.
func NewStore(dataDir string, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.GeoCoding.Logger == nil {
		opts.GeoCoding.Logger = logger
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if opts.ItemsToPrune == 0 {
		opts.ItemsToPrune = DefaultOptions().ItemsToPrune
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultOptions().CacheTTL
	}

	return &Store{
		dataDir: dataDir,
		opts:    opts,
		logger:  logger,
		cache: ccache.New(ccache.Configure[*geocoding.TiePointGeoCoding]().
			MaxSize(opts.CacheSize).
			ItemsToPrune(opts.ItemsToPrune)),
	}
}

// Close stops the cache maintenance goroutine.
func (s *Store) Close() error {
	s.cache.Stop()
	return nil
}

// ListProducts returns the IDs of the products found under the data
// directory. A product ID is its file name without the .nc extension.
func (s *Store) ListProducts() ([]string, error) {
	paths, err := s.scan()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GeoCoding returns the geocoding of a product, loading the product and
// fitting its approximation table on first use.
func (s *Store) GeoCoding(id string) (*geocoding.TiePointGeoCoding, error) {
	if item := s.cache.Get(id); item != nil && !item.Expired() {
		metrics.CacheHits.WithLabelValues("geocoding").Inc()
		return item.Value(), nil
	}
	metrics.CacheMisses.WithLabelValues("geocoding").Inc()

	v, err, _ := s.inflight.Do(id, func() (interface{}, error) {
		path, err := s.path(id)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		product, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load product %s: %w", id, err)
		}
		gc, err := geocoding.NewWithConfig(product.Lat, product.Lon, s.opts.Datum, s.opts.GeoCoding)
		if err != nil {
			return nil, fmt.Errorf("failed to build geocoding for %s: %w", id, err)
		}
		tiles := len(gc.Approximations())
		metrics.ObserveBuild(start, tiles)
		s.logger.Info("geocoding built",
			"product", id,
			"tiles", tiles,
			"normalized", gc.Normalized(),
			"duration", time.Since(start))

		s.cache.Set(id, gc, s.opts.CacheTTL)
		return gc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*geocoding.TiePointGeoCoding), nil
}

// path resolves the file of a product ID.
func (s *Store) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", store.ErrProductNotFound, id)
	}
	paths, err := s.scan()
	if err != nil {
		return "", err
	}
	path, ok := paths[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", store.ErrProductNotFound, id)
	}
	return path, nil
}

// scan walks the data directory for product files. When two files share a
// name, the first one in lexical walk order wins.
func (s *Store) scan() (map[string]string, error) {
	if _, err := os.Stat(s.dataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("data directory does not exist: %s", s.dataDir)
	}

	paths := make(map[string]string)
	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, productExt) {
			return nil
		}
		id := strings.TrimSuffix(name, productExt)
		if id == "" {
			return nil
		}
		if _, ok := paths[id]; !ok {
			paths[id] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk data directory: %w", err)
	}
	return paths, nil
}
