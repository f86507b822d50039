package scrape_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/mock"
	"github.com/fwojciec/pricewatch/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pages maps URL to page body; a missing URL fails to fetch.
type pages map[string]string

func (p pages) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			html, ok := p[url]
			if !ok {
				return "", errors.New("connection refused")
			}
			return html, nil
		},
	}
}

// priceExtractor treats a body of the form "price:N" as a price.
func priceExtractor() *mock.PriceExtractor {
	return &mock.PriceExtractor{
		ExtractPriceFn: func(html string) (pricewatch.Extraction, bool) {
			switch html {
			case "price:10":
				return pricewatch.Extraction{Price: 10, Strategy: pricewatch.StrategyPattern, Match: "$10"}, true
			case "price:12":
				return pricewatch.Extraction{Price: 12, Strategy: pricewatch.StrategyClass, Match: "12"}, true
			case "price:5":
				return pricewatch.Extraction{Price: 5, Strategy: pricewatch.StrategyPattern, Match: "$5"}, true
			}
			return pricewatch.Extraction{}, false
		},
	}
}

func urlService(urls map[string][]*pricewatch.ProductURL) *mock.ProductURLService {
	return &mock.ProductURLService{
		FindProductURLsFn: func(_ context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
			return urls[*filter.ProductID], nil
		},
	}
}

// recorder captures recorded observations.
type recorder struct {
	mu   sync.Mutex
	obs  []*pricewatch.Observation
	fail map[string]error
}

func (r *recorder) service() *mock.ObservationService {
	return &mock.ObservationService{
		RecordObservationFn: func(_ context.Context, obs *pricewatch.Observation) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if err := r.fail[obs.ProductURLID]; err != nil {
				return err
			}
			r.obs = append(r.obs, obs)
			return nil
		},
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestScraper_ScanProduct(t *testing.T) {
	t.Parallel()

	t.Run("skips URLs that fail to fetch or hold no price", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {
					{ID: "u1", ProductID: "p1", URL: "https://down.example/a"},
					{ID: "u2", ProductID: "p1", URL: "https://shop.example/b"},
				},
			}),
			Observations: rec.service(),
			Fetcher:      pages{"https://shop.example/b": "<html>no price</html>"}.fetcher(),
			Extractor:    priceExtractor(),
		}
		current := 7.0
		product := &pricewatch.Product{ID: "p1", Name: "Kettle", CurrentPrice: &current}

		result, err := s.ScanProduct(context.Background(), product)
		require.NoError(t, err)

		assert.Nil(t, result.Prices())
		assert.Empty(t, rec.obs)
		require.Len(t, result.URLs, 2)
		assert.Equal(t, pricewatch.OutcomeFetchFailed, result.URLs[0].Outcome)
		assert.EqualError(t, result.URLs[0].Err, "connection refused")
		assert.Equal(t, pricewatch.OutcomeNoPrice, result.URLs[1].Outcome)
		assert.InDelta(t, 7.0, *product.CurrentPrice, 0.0001, "price must be untouched")
		assert.Nil(t, product.LastChecked)
	})

	t.Run("last URL with a price wins", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {
					{ID: "u1", ProductID: "p1", URL: "https://a.example"},
					{ID: "u2", ProductID: "p1", URL: "https://b.example"},
				},
			}),
			Observations: rec.service(),
			Fetcher: pages{
				"https://a.example": "price:10",
				"https://b.example": "price:12",
			}.fetcher(),
			Extractor: priceExtractor(),
			Now:       fixedClock(),
		}
		product := &pricewatch.Product{ID: "p1"}

		result, err := s.ScanProduct(context.Background(), product)
		require.NoError(t, err)

		assert.Equal(t, []float64{10, 12}, result.Prices())
		require.Len(t, rec.obs, 2)
		assert.Equal(t, "u1", rec.obs[0].ProductURLID)
		assert.Equal(t, "u2", rec.obs[1].ProductURLID)
		assert.True(t, rec.obs[1].RecordedAt.After(rec.obs[0].RecordedAt), "timestamps strictly increase within a scan")
		require.NotNil(t, product.CurrentPrice)
		assert.InDelta(t, 12.0, *product.CurrentPrice, 0.0001)
		require.NotNil(t, product.LastChecked)
		assert.True(t, product.LastChecked.Equal(rec.obs[1].RecordedAt))
	})

	t.Run("records content hash and extraction details", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {{ID: "u1", ProductID: "p1", URL: "https://a.example"}},
			}),
			Observations: rec.service(),
			Fetcher:      pages{"https://a.example": "price:10"}.fetcher(),
			Extractor:    priceExtractor(),
		}

		result, err := s.ScanProduct(context.Background(), &pricewatch.Product{ID: "p1"})
		require.NoError(t, err)

		require.Len(t, rec.obs, 1)
		assert.Equal(t, scrape.ComputeHash("price:10"), rec.obs[0].ContentHash)
		assert.Equal(t, "p1", rec.obs[0].ProductID)
		assert.Equal(t, pricewatch.StrategyPattern, result.URLs[0].Extraction.Strategy)
		assert.Same(t, rec.obs[0], result.URLs[0].Observation)
	})

	t.Run("rejected observation leaves price untouched and continues", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{fail: map[string]error{"u2": pricewatch.Errorf(pricewatch.ECONFLICT, "observation already recorded")}}
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {
					{ID: "u1", ProductID: "p1", URL: "https://a.example"},
					{ID: "u2", ProductID: "p1", URL: "https://b.example"},
					{ID: "u3", ProductID: "p1", URL: "https://c.example"},
				},
			}),
			Observations: rec.service(),
			Fetcher: pages{
				"https://a.example": "price:10",
				"https://b.example": "price:12",
				"https://c.example": "price:5",
			}.fetcher(),
			Extractor: priceExtractor(),
		}
		product := &pricewatch.Product{ID: "p1"}

		result, err := s.ScanProduct(context.Background(), product)
		require.NoError(t, err)

		assert.Equal(t, []float64{10, 5}, result.Prices())
		assert.Equal(t, pricewatch.OutcomeStoreFailed, result.URLs[1].Outcome)
		assert.Equal(t, pricewatch.ECONFLICT, pricewatch.ErrorCode(result.URLs[1].Err))
		assert.Equal(t, 1, result.Count(pricewatch.OutcomeStoreFailed))
		assert.InDelta(t, 5.0, *product.CurrentPrice, 0.0001)
	})

	t.Run("store outage stops the scan", func(t *testing.T) {
		t.Parallel()

		outage := errors.New("database is unreachable")
		rec := &recorder{fail: map[string]error{"u1": outage}}
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {
					{ID: "u1", ProductID: "p1", URL: "https://a.example"},
					{ID: "u2", ProductID: "p1", URL: "https://b.example"},
				},
			}),
			Observations: rec.service(),
			Fetcher: pages{
				"https://a.example": "price:10",
				"https://b.example": "price:12",
			}.fetcher(),
			Extractor: priceExtractor(),
		}
		current := 7.0
		product := &pricewatch.Product{ID: "p1", CurrentPrice: &current}

		result, err := s.ScanProduct(context.Background(), product)

		var storeErr *scrape.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "u1", storeErr.ProductURLID)
		assert.ErrorIs(t, err, outage)
		require.NotNil(t, result)
		require.Len(t, result.URLs, 1, "remaining URLs are not visited")
		assert.Equal(t, pricewatch.OutcomeStoreFailed, result.URLs[0].Outcome)
		assert.Empty(t, rec.obs)
		assert.InDelta(t, 7.0, *product.CurrentPrice, 0.0001)
		assert.Nil(t, product.LastChecked)
	})

	t.Run("repeated scans of a failing product record nothing", func(t *testing.T) {
		t.Parallel()

		var calls int
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {
					{ID: "u1", ProductID: "p1", URL: "https://down.example/a"},
					{ID: "u2", ProductID: "p1", URL: "https://down.example/b"},
				},
			}),
			Observations: &mock.ObservationService{
				RecordObservationFn: func(_ context.Context, _ *pricewatch.Observation) error {
					calls++
					return nil
				},
			},
			Fetcher:   pages{}.fetcher(),
			Extractor: priceExtractor(),
		}
		current := 19.99
		product := &pricewatch.Product{ID: "p1", CurrentPrice: &current}

		for range 3 {
			result, err := s.ScanProduct(context.Background(), product)
			require.NoError(t, err)
			assert.Nil(t, result.Prices())
			assert.Equal(t, 2, result.Count(pricewatch.OutcomeFetchFailed))
			assert.Zero(t, calls)
			assert.InDelta(t, 19.99, *product.CurrentPrice, 0.0001)
			assert.Nil(t, product.LastChecked)
		}
	})

	t.Run("visits URLs in the configured order", func(t *testing.T) {
		t.Parallel()

		var gotOrder pricewatch.URLOrder
		s := &scrape.Scraper{
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					gotOrder = filter.Order
					return nil, nil
				},
			},
			URLOrder: pricewatch.OrderPrimaryFirst,
		}

		_, err := s.ScanProduct(context.Background(), &pricewatch.Product{ID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, pricewatch.OrderPrimaryFirst, gotOrder)
	})

	t.Run("defaults to stored order", func(t *testing.T) {
		t.Parallel()

		var gotOrder pricewatch.URLOrder
		s := &scrape.Scraper{
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					gotOrder = filter.Order
					return nil, nil
				},
			},
		}

		result, err := s.ScanProduct(context.Background(), &pricewatch.Product{ID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, pricewatch.OrderStored, gotOrder)
		assert.Nil(t, result.Prices())
	})

	t.Run("returns error when URLs cannot be listed", func(t *testing.T) {
		t.Parallel()

		s := &scrape.Scraper{
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, _ pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					return nil, errors.New("database is locked")
				},
			},
		}

		_, err := s.ScanProduct(context.Background(), &pricewatch.Product{ID: "p1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database is locked")
	})

	t.Run("retries failed fetches", func(t *testing.T) {
		t.Parallel()

		calls := 0
		rec := &recorder{}
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {{ID: "u1", ProductID: "p1", URL: "https://a.example"}},
			}),
			Observations: rec.service(),
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, _ string) (string, error) {
					calls++
					if calls == 1 {
						return "", errors.New("timeout")
					}
					return "price:5", nil
				},
			},
			Extractor:   priceExtractor(),
			RetryDelays: []time.Duration{0},
		}

		result, err := s.ScanProduct(context.Background(), &pricewatch.Product{ID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, []float64{5}, result.Prices())
	})

	t.Run("does not retry without retry delays", func(t *testing.T) {
		t.Parallel()

		calls := 0
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {{ID: "u1", ProductID: "p1", URL: "https://a.example"}},
			}),
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, _ string) (string, error) {
					calls++
					return "", errors.New("timeout")
				},
			},
		}

		_, err := s.ScanProduct(context.Background(), &pricewatch.Product{ID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("waits on rate limiter per host", func(t *testing.T) {
		t.Parallel()

		var hosts []string
		s := &scrape.Scraper{
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {
					{ID: "u1", ProductID: "p1", URL: "https://a.example/x"},
					{ID: "u2", ProductID: "p1", URL: "https://b.example/y"},
				},
			}),
			Fetcher:   pages{}.fetcher(),
			Extractor: priceExtractor(),
			RateLimiter: &mock.DomainLimiter{
				WaitFn: func(_ context.Context, domain string) error {
					hosts = append(hosts, domain)
					return nil
				},
			},
		}

		_, err := s.ScanProduct(context.Background(), &pricewatch.Product{ID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.example", "b.example"}, hosts)
	})
}

func TestScraper_RunBatch(t *testing.T) {
	t.Parallel()

	productService := func(products ...*pricewatch.Product) *mock.ProductService {
		return &mock.ProductService{
			FindProductsFn: func(_ context.Context, _ pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
				return products, nil
			},
		}
	}

	t.Run("returns nil report when there are no products", func(t *testing.T) {
		t.Parallel()

		s := &scrape.Scraper{Products: productService()}

		report, err := s.RunBatch(context.Background())
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("returns nil report when no product yields a price", func(t *testing.T) {
		t.Parallel()

		s := &scrape.Scraper{
			Products: productService(&pricewatch.Product{ID: "p1"}, &pricewatch.Product{ID: "p2"}),
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {{ID: "u1", ProductID: "p1", URL: "https://a.example"}},
				"p2": {{ID: "u2", ProductID: "p2", URL: "https://b.example"}},
			}),
			Fetcher:   pages{"https://a.example": "nothing"}.fetcher(),
			Extractor: priceExtractor(),
		}

		report, err := s.RunBatch(context.Background())
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("isolates a failing product", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		s := &scrape.Scraper{
			Products: productService(
				&pricewatch.Product{ID: "p1", Name: "one"},
				&pricewatch.Product{ID: "p2", Name: "two"},
				&pricewatch.Product{ID: "p3", Name: "three"},
			),
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					switch *filter.ProductID {
					case "p1":
						return []*pricewatch.ProductURL{{ID: "u1", ProductID: "p1", URL: "https://a.example"}}, nil
					case "p2":
						return nil, errors.New("corrupt row")
					default:
						return []*pricewatch.ProductURL{{ID: "u3", ProductID: "p3", URL: "https://c.example"}}, nil
					}
				},
			},
			Observations: rec.service(),
			Fetcher: pages{
				"https://a.example": "price:10",
				"https://c.example": "price:12",
			}.fetcher(),
			Extractor: priceExtractor(),
		}

		report, err := s.RunBatch(context.Background())
		require.NoError(t, err)
		require.NotNil(t, report)

		assert.Equal(t, 3, report.Scanned)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, []pricewatch.ReportEntry{
			{ProductID: "p1", Name: "one", Prices: []float64{10}},
			{ProductID: "p3", Name: "three", Prices: []float64{12}},
		}, report.Entries)
		require.Len(t, report.Results, 3)
		assert.Error(t, report.Results[1].Err)
		assert.Len(t, rec.obs, 2)
	})

	t.Run("returns error when the store is unreachable", func(t *testing.T) {
		t.Parallel()

		var calls int
		var mu sync.Mutex
		s := &scrape.Scraper{
			Products: productService(&pricewatch.Product{ID: "p1"}, &pricewatch.Product{ID: "p2"}),
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {{ID: "u1", ProductID: "p1", URL: "https://a.example"}},
				"p2": {{ID: "u2", ProductID: "p2", URL: "https://b.example"}},
			}),
			Observations: &mock.ObservationService{
				RecordObservationFn: func(_ context.Context, _ *pricewatch.Observation) error {
					mu.Lock()
					calls++
					mu.Unlock()
					return errors.New("database is unreachable")
				},
			},
			Fetcher: pages{
				"https://a.example": "price:10",
				"https://b.example": "price:10",
			}.fetcher(),
			Extractor: priceExtractor(),
		}

		report, err := s.RunBatch(context.Background())

		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "database is unreachable")
		var storeErr *scrape.StoreError
		assert.ErrorAs(t, err, &storeErr)
		assert.Equal(t, 1, calls, "batch stops after the first outage")
	})

	t.Run("reports every product result as it finishes", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := map[string]*pricewatch.ProductResult{}
		s := &scrape.Scraper{
			Products: productService(&pricewatch.Product{ID: "p1"}, &pricewatch.Product{ID: "p2"}),
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					if *filter.ProductID == "p2" {
						return nil, errors.New("corrupt row")
					}
					return []*pricewatch.ProductURL{{ID: "u1", ProductID: "p1", URL: "https://a.example"}}, nil
				},
			},
			Fetcher:     pages{}.fetcher(),
			Extractor:   priceExtractor(),
			Concurrency: 2,
			OnResult: func(r *pricewatch.ProductResult) {
				mu.Lock()
				defer mu.Unlock()
				seen[r.Product.ID] = r
			},
		}

		report, err := s.RunBatch(context.Background())
		require.NoError(t, err)
		assert.Nil(t, report, "nothing was recorded")

		require.Len(t, seen, 2)
		require.Len(t, seen["p1"].URLs, 1)
		assert.Equal(t, pricewatch.OutcomeFetchFailed, seen["p1"].URLs[0].Outcome)
		assert.EqualError(t, seen["p2"].Err, "list URLs for product p2: corrupt row")
	})

	t.Run("omits products without prices from entries", func(t *testing.T) {
		t.Parallel()

		s := &scrape.Scraper{
			Products: productService(&pricewatch.Product{ID: "p1", Name: "one"}, &pricewatch.Product{ID: "p2", Name: "two"}),
			URLs: urlService(map[string][]*pricewatch.ProductURL{
				"p1": {{ID: "u1", ProductID: "p1", URL: "https://a.example"}},
				"p2": {{ID: "u2", ProductID: "p2", URL: "https://b.example"}},
			}),
			Observations: (&recorder{}).service(),
			Fetcher:      pages{"https://b.example": "price:5"}.fetcher(),
			Extractor:    priceExtractor(),
		}

		report, err := s.RunBatch(context.Background())
		require.NoError(t, err)
		require.NotNil(t, report)
		require.Len(t, report.Entries, 1)
		assert.Equal(t, "two", report.Entries[0].Name)
		assert.Equal(t, 0, report.Failed)
	})

	t.Run("returns error when products cannot be listed", func(t *testing.T) {
		t.Parallel()

		s := &scrape.Scraper{
			Products: &mock.ProductService{
				FindProductsFn: func(_ context.Context, _ pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
					return nil, errors.New("no such table")
				},
			},
		}

		report, err := s.RunBatch(context.Background())
		require.Error(t, err)
		assert.Nil(t, report)
		assert.True(t, strings.HasPrefix(err.Error(), "list products"))
	})

	t.Run("concurrent scan keeps product-list order", func(t *testing.T) {
		t.Parallel()

		var products []*pricewatch.Product
		urls := map[string][]*pricewatch.ProductURL{}
		site := pages{}
		delays := map[string]time.Duration{}
		for i, id := range []string{"p1", "p2", "p3", "p4"} {
			products = append(products, &pricewatch.Product{ID: id, Name: id})
			u := "https://" + id + ".example"
			urls[id] = []*pricewatch.ProductURL{{ID: "u-" + id, ProductID: id, URL: u}}
			delays[u] = time.Duration(4-i) * 5 * time.Millisecond
			if i%2 == 0 {
				site[u] = "price:10"
			} else {
				site[u] = "price:12"
			}
		}

		s := &scrape.Scraper{
			Products:     productService(products...),
			URLs:         urlService(urls),
			Observations: (&recorder{}).service(),
			Fetcher: &mock.Fetcher{
				FetchFn: func(ctx context.Context, url string) (string, error) {
					// Earlier products finish later.
					time.Sleep(delays[url])
					return site.fetcher().Fetch(ctx, url)
				},
			},
			Extractor:   priceExtractor(),
			Concurrency: 4,
		}

		report, err := s.RunBatch(context.Background())
		require.NoError(t, err)
		require.NotNil(t, report)
		require.Len(t, report.Entries, 4)
		for i, e := range report.Entries {
			assert.Equal(t, products[i].ID, e.ProductID)
		}
	})

	t.Run("limits concurrent scans", func(t *testing.T) {
		t.Parallel()

		var products []*pricewatch.Product
		for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
			products = append(products, &pricewatch.Product{ID: id})
		}

		var mu sync.Mutex
		var active, peak int
		s := &scrape.Scraper{
			Products: productService(products...),
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, _ pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					mu.Lock()
					active++
					peak = max(peak, active)
					mu.Unlock()
					time.Sleep(10 * time.Millisecond)
					mu.Lock()
					active--
					mu.Unlock()
					return nil, nil
				},
			},
			Concurrency: 2,
		}

		_, err := s.RunBatch(context.Background())
		require.NoError(t, err)
		assert.LessOrEqual(t, peak, 2)
	})
}
