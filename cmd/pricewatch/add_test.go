package main_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/pricewatch"
	main "github.com/fwojciec/pricewatch/cmd/pricewatch"
	"github.com/fwojciec/pricewatch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("creates product and URLs", func(t *testing.T) {
		t.Parallel()

		var created *pricewatch.Product
		products := &mock.ProductService{
			FindProductsFn: func(_ context.Context, _ pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
				return nil, nil
			},
			CreateProductFn: func(_ context.Context, p *pricewatch.Product) error {
				p.ID = "prod-1"
				created = p
				return nil
			},
		}
		var urls []*pricewatch.ProductURL
		urlSvc := &mock.ProductURLService{
			FindProductURLsFn: func(_ context.Context, _ pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
				return nil, nil
			},
			CreateProductURLFn: func(_ context.Context, u *pricewatch.ProductURL) error {
				urls = append(urls, u)
				return nil
			},
		}

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   stderr,
			Products: products,
			URLs:     urlSvc,
		}

		cmd := &main.AddCmd{
			Name:    "Espresso",
			URLs:    []string{" https://shop.example.com/a ", "https://other.example.org/b"},
			User:    "user-1",
			Target:  99.5,
			Primary: 2,
		}
		err := cmd.Run(deps)

		require.NoError(t, err)
		assert.Empty(t, stderr.String())
		assert.Contains(t, stdout.String(), `Added product "Espresso" (prod-1)`)

		require.NotNil(t, created)
		assert.Equal(t, "user-1", created.UserID)
		require.NotNil(t, created.TargetPrice)
		assert.InDelta(t, 99.5, *created.TargetPrice, 1e-9)

		require.Len(t, urls, 2)
		assert.Equal(t, "https://shop.example.com/a", urls[0].URL)
		assert.Equal(t, "shop.example.com", urls[0].Retailer)
		assert.False(t, urls[0].IsPrimary)
		assert.Equal(t, "other.example.org", urls[1].Retailer)
		assert.True(t, urls[1].IsPrimary)
	})

	t.Run("no target leaves target price unset", func(t *testing.T) {
		t.Parallel()

		var created *pricewatch.Product
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
			Products: &mock.ProductService{
				FindProductsFn: func(_ context.Context, _ pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
					return nil, nil
				},
				CreateProductFn: func(_ context.Context, p *pricewatch.Product) error {
					created = p
					return nil
				},
			},
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, _ pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					return nil, nil
				},
			},
		}

		err := (&main.AddCmd{Name: "Grinder", User: "local"}).Run(deps)

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Nil(t, created.TargetPrice)
	})

	t.Run("skips URLs the product already has", func(t *testing.T) {
		t.Parallel()

		var createdURLs []string
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
			Products: &mock.ProductService{
				FindProductsFn: func(_ context.Context, _ pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
					return []*pricewatch.Product{{ID: "prod-1", Name: "Espresso", UserID: "local"}}, nil
				},
				CreateProductFn: func(_ context.Context, _ *pricewatch.Product) error {
					t.Fatal("existing product must not be recreated")
					return nil
				},
			},
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, f pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					require.NotNil(t, f.ProductID)
					assert.Equal(t, "prod-1", *f.ProductID)
					return []*pricewatch.ProductURL{{ID: "u1", ProductID: "prod-1", URL: "https://a.example.com/x"}}, nil
				},
				CreateProductURLFn: func(_ context.Context, u *pricewatch.ProductURL) error {
					createdURLs = append(createdURLs, u.URL)
					return nil
				},
			},
		}

		cmd := &main.AddCmd{Name: "Espresso", User: "local", URLs: []string{"https://a.example.com/x", "https://b.example.com/y", "https://b.example.com/y"}}
		err := cmd.Run(deps)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://b.example.com/y"}, createdURLs)
		assert.Contains(t, deps.Stdout.(*bytes.Buffer).String(), "already tracked")
	})

	t.Run("rejects primary out of range", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr}

		err := (&main.AddCmd{Name: "Espresso", URLs: []string{"https://a.example.com"}, Primary: 2}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, pricewatch.EINVALID, pricewatch.ErrorCode(err))
		assert.Contains(t, stderr.String(), "--primary")
	})

	t.Run("rejects blank URL", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: stderr,
			Products: &mock.ProductService{
				FindProductsFn: func(_ context.Context, _ pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
					return []*pricewatch.Product{{ID: "prod-1", Name: "Espresso"}}, nil
				},
			},
			URLs: &mock.ProductURLService{
				FindProductURLsFn: func(_ context.Context, _ pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
					return nil, nil
				},
			},
		}

		err := (&main.AddCmd{Name: "Espresso", URLs: []string{"   "}}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, pricewatch.EINVALID, pricewatch.ErrorCode(err))
		assert.Contains(t, stderr.String(), "error:")
	})

	t.Run("returns error when create fails", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: stderr,
			Products: &mock.ProductService{
				FindProductsFn: func(_ context.Context, _ pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
					return nil, nil
				},
				CreateProductFn: func(_ context.Context, _ *pricewatch.Product) error {
					return errors.New("disk full")
				},
			},
		}

		err := (&main.AddCmd{Name: "Espresso", User: "local"}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "error:")
	})
}
