// Package client is a Go consumer of the storefront API. It decodes listing
// responses and bridges them into the incremental feed controller.
package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/clared/storefront/pkg/feed"
)

// Product is the catalog entry as served by the listing API.
type Product struct {
	ID            string
	SKU           string
	Name          string
	Description   string
	Category      string
	Tags          []string
	Price         decimal.Decimal
	StockQuantity int
	IsAvailable   bool
	ImageURL      string
}

// Pagination is the page metadata block of a listing response.
type Pagination struct {
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ProductPage is one decoded page of the catalog listing.
type ProductPage struct {
	Items      []Product
	Pagination Pagination
}

// ListParams are the catalog listing filters.
type ListParams struct {
	Search    string
	Category  string
	Available bool
	Page      int
	Limit     int
}

func (p ListParams) query() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Category != "" {
		v.Set("category", p.Category)
	}
	if p.Available {
		v.Set("available", "true")
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

// APIError is a non-2xx response from the server, carrying the error message
// from the response envelope when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "api error: status " + strconv.Itoa(e.StatusCode)
}

// Client talks to the storefront API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the API at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListProducts fetches one page of the catalog listing.
func (c *Client) ListProducts(ctx context.Context, params ListParams) (*ProductPage, error) {
	u := c.baseURL + "/api/products"
	if q := params.query().Encode(); q != "" {
		u += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	page, apiErr, err := decodeListing(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErr}
	}
	return page, nil
}

// Feed returns an incremental fetch controller over the listing, starting
// from the given filters. The page number in params is ignored; the
// controller supplies it.
func (c *Client) Feed(params ListParams) *feed.Controller[Product] {
	return feed.New(c.fetchFunc(params))
}

func (c *Client) fetchFunc(params ListParams) feed.FetchFunc[Product] {
	return func(ctx context.Context, page int) ([]Product, error) {
		params.Page = page
		result, err := c.ListProducts(ctx, params)
		if err != nil {
			return nil, err
		}
		return result.Items, nil
	}
}

// decodeListing parses the listing envelope. It returns the decoded page for
// success responses, or the envelope's error message for failures.
func decodeListing(data []byte) (*ProductPage, string, error) {
	page := &ProductPage{}
	var apiErr string

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "pagination":
			return decodePagination(d, &page.Pagination)
		case "data":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				page.Items = append(page.Items, p)
				return nil
			})
		case "error":
			s, err := d.Str()
			if err != nil {
				return err
			}
			apiErr = s
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, "", err
	}
	return page, apiErr, nil
}

func decodePagination(d *jx.Decoder, p *Pagination) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		n, err := d.Int()
		if err != nil {
			return err
		}
		switch key {
		case "total":
			p.Total = n
		case "page":
			p.Page = n
		case "limit":
			p.Limit = n
		case "totalPages":
			p.TotalPages = n
		}
		return nil
	})
}

func decodeProduct(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "_id":
			s, err := d.Str()
			p.ID = s
			return err
		case "sku":
			s, err := d.Str()
			p.SKU = s
			return err
		case "name":
			s, err := d.Str()
			p.Name = s
			return err
		case "description":
			s, err := d.Str()
			p.Description = s
			return err
		case "category":
			s, err := d.Str()
			p.Category = s
			return err
		case "tags":
			return d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				if err != nil {
					return err
				}
				p.Tags = append(p.Tags, s)
				return nil
			})
		case "price":
			f, err := d.Float64()
			if err != nil {
				return err
			}
			p.Price = decimal.NewFromFloat(f)
			return nil
		case "stockQuantity":
			n, err := d.Int()
			p.StockQuantity = n
			return err
		case "isAvailable":
			b, err := d.Bool()
			p.IsAvailable = b
			return err
		case "imageUrl":
			s, err := d.Str()
			p.ImageURL = s
			return err
		default:
			return d.Skip()
		}
	})
	return p, err
}
