package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
)

const DefaultIndexName = "gigs"

// GigIndex implementa gigDomain.SearchIndex sobre Elasticsearch.
type GigIndex struct {
	es    *elasticsearch.Client
	index string
	log   *zap.Logger
}

// NewClient crea el cliente para url.
func NewClient(url string) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
}

func NewGigIndex(es *elasticsearch.Client, index string, log *zap.Logger) *GigIndex {
	if index == "" {
		index = DefaultIndexName
	}
	return &GigIndex{es: es, index: index, log: log}
}

// mapping fija los tipos que usan filtros y orden; el resto se deja dinámico.
var mapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":       map[string]any{"type": "keyword"},
			"sellerId": map[string]any{"type": "keyword"},
			"active":   map[string]any{"type": "boolean"},
			"price":    map[string]any{"type": "double"},
			"sortId":   map[string]any{"type": "long"},
		},
	},
}

// EnsureIndex crea el índice solo si no existe.
func (i *GigIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		i.log.Info("Index already exists", zap.String("index", i.index))
		return nil
	}

	body, err := encode(mapping)
	if err != nil {
		return err
	}
	res, err = i.es.Indices.Create(i.index, i.es.Indices.Create.WithBody(body), i.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return responseError("create index", res)
	}
	i.log.Info("✅ Created index", zap.String("index", i.index))
	return nil
}

func (i *GigIndex) Index(ctx context.Context, g *gigDomain.Gig) error {
	body, err := encode(g)
	if err != nil {
		return err
	}
	res, err := i.es.Index(i.index, body, i.es.Index.WithDocumentID(g.ID), i.es.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index gig "+g.ID, res)
	}
	return nil
}

// Update hace el merge parcial de fields.
func (i *GigIndex) Update(ctx context.Context, id string, fields map[string]any) error {
	body, err := encode(map[string]any{"doc": fields})
	if err != nil {
		return err
	}
	res, err := i.es.Update(i.index, id, body, i.es.Update.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return gigDomain.ErrGigNotFound
	}
	if res.IsError() {
		return responseError("update gig "+id, res)
	}
	return nil
}

func (i *GigIndex) Delete(ctx context.Context, id string) error {
	res, err := i.es.Delete(i.index, id, i.es.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return gigDomain.ErrGigNotFound
	}
	if res.IsError() {
		return responseError("delete gig "+id, res)
	}
	return nil
}

func (i *GigIndex) Get(ctx context.Context, id string) (*gigDomain.Gig, error) {
	res, err := i.es.Get(i.index, id, i.es.Get.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, gigDomain.ErrGigNotFound
	}
	if res.IsError() {
		return nil, responseError("get gig "+id, res)
	}

	var doc struct {
		Source gigDomain.Gig `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc.Source, nil
}

func (i *GigIndex) Search(ctx context.Context, q gigDomain.GigQuery) (gigDomain.SearchResult, error) {
	return i.search(ctx, BuildSearchQuery(q))
}

func (i *GigIndex) SearchBySellerID(ctx context.Context, sellerID string, active bool) ([]gigDomain.Gig, error) {
	res, err := i.search(ctx, map[string]any{
		"size": gigDomain.MaxPageSize,
		"query": map[string]any{"bool": map[string]any{"filter": []any{
			map[string]any{"term": map[string]any{"sellerId": sellerID}},
			map[string]any{"term": map[string]any{"active": active}},
		}}},
		"sort": []any{map[string]any{"sortId": "asc"}},
	})
	return res.Hits, err
}

func (i *GigIndex) search(ctx context.Context, query map[string]any) (gigDomain.SearchResult, error) {
	body, err := encode(query)
	if err != nil {
		return gigDomain.SearchResult{}, err
	}
	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(body),
	)
	if err != nil {
		return gigDomain.SearchResult{}, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return gigDomain.SearchResult{}, responseError("search gigs", res)
	}
	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) (gigDomain.SearchResult, error) {
	var payload struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source gigDomain.Gig `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return gigDomain.SearchResult{}, err
	}
	out := gigDomain.SearchResult{Total: payload.Hits.Total.Value, Hits: make([]gigDomain.Gig, 0, len(payload.Hits.Hits))}
	for _, h := range payload.Hits.Hits {
		out.Hits = append(out.Hits, h.Source)
	}
	return out, nil
}

// BuildSearchQuery traduce GigQuery al DSL: query_string sobre los campos de texto, active=true,
// rango de precio opcional, subcadena de expectedDelivery y search_after sobre sortId.
func BuildSearchQuery(q gigDomain.GigQuery) map[string]any {
	must := []any{}
	if s := strings.TrimSpace(q.Query); s != "" {
		must = append(must, map[string]any{"query_string": map[string]any{
			"fields": gigDomain.SearchFields,
			"query":  "*" + s + "*",
		}})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	filter := []any{map[string]any{"term": map[string]any{"active": true}}}
	if q.MinPrice != nil || q.MaxPrice != nil {
		rng := map[string]any{}
		if q.MinPrice != nil {
			rng["gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			rng["lte"] = *q.MaxPrice
		}
		filter = append(filter, map[string]any{"range": map[string]any{"price": rng}})
	}
	if q.ExpectedDelivery != "" {
		filter = append(filter, map[string]any{"query_string": map[string]any{
			"fields": []string{"expectedDelivery"},
			"query":  "*" + q.ExpectedDelivery + "*",
		}})
	}

	order := "asc"
	if q.Direction == gigDomain.Backward {
		order = "desc"
	}
	size := q.Size
	if size <= 0 {
		size = gigDomain.DefaultPageSize
	}

	body := map[string]any{
		"size":  size,
		"query": map[string]any{"bool": map[string]any{"must": must, "filter": filter}},
		"sort":  []any{map[string]any{"sortId": order}},
	}
	if q.After > 0 {
		body["search_after"] = []any{q.After}
	}
	return body
}

func encode(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return &buf, nil
}

func responseError(op string, res *esapi.Response) error {
	return fmt.Errorf("elasticsearch %s: %s", op, res.String())
}

var _ gigDomain.SearchIndex = (*GigIndex)(nil)
