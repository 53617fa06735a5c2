package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
)

// GigIndex es un índice de búsqueda en memoria con la misma semántica de consulta que Elasticsearch.
// Se usa en despliegue local y en tests.
type GigIndex struct {
	mu   sync.RWMutex
	docs map[string]gigDomain.Gig
}

func NewGigIndex() *GigIndex {
	return &GigIndex{docs: make(map[string]gigDomain.Gig)}
}

func (i *GigIndex) EnsureIndex(ctx context.Context) error { return nil }

func (i *GigIndex) Index(ctx context.Context, g *gigDomain.Gig) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs[g.ID] = *g
	return nil
}

// Update hace un merge parcial pasando por JSON, igual que un update de documento.
func (i *GigIndex) Update(ctx context.Context, id string, fields map[string]any) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	doc, ok := i.docs[id]
	if !ok {
		return gigDomain.ErrGigNotFound
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(patch, &doc); err != nil {
		return err
	}
	i.docs[id] = doc
	return nil
}

func (i *GigIndex) Delete(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.docs[id]; !ok {
		return gigDomain.ErrGigNotFound
	}
	delete(i.docs, id)
	return nil
}

func (i *GigIndex) Get(ctx context.Context, id string) (*gigDomain.Gig, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	doc, ok := i.docs[id]
	if !ok {
		return nil, gigDomain.ErrGigNotFound
	}
	return &doc, nil
}

func (i *GigIndex) Search(ctx context.Context, q gigDomain.GigQuery) (gigDomain.SearchResult, error) {
	terms := strings.Fields(strings.ToLower(q.Query))

	i.mu.RLock()
	var matched []gigDomain.Gig
	for _, d := range i.docs {
		if matches(d, q, terms) {
			matched = append(matched, d)
		}
	}
	i.mu.RUnlock()

	forward := q.Direction != gigDomain.Backward
	sort.Slice(matched, func(a, b int) bool {
		if forward {
			return matched[a].SortID < matched[b].SortID
		}
		return matched[a].SortID > matched[b].SortID
	})

	res := gigDomain.SearchResult{Total: int64(len(matched)), Hits: []gigDomain.Gig{}}
	for _, d := range matched {
		if q.After > 0 && ((forward && d.SortID <= q.After) || (!forward && d.SortID >= q.After)) {
			continue
		}
		if len(res.Hits) == pageSize(q.Size) {
			break
		}
		res.Hits = append(res.Hits, d)
	}
	return res, nil
}

func (i *GigIndex) SearchBySellerID(ctx context.Context, sellerID string, active bool) ([]gigDomain.Gig, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := []gigDomain.Gig{}
	for _, d := range i.docs {
		if d.SellerID == sellerID && d.Active == active {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].SortID < out[b].SortID })
	return out, nil
}

func pageSize(n int) int {
	if n <= 0 {
		return gigDomain.DefaultPageSize
	}
	return n
}

// matches: active=true, algún término en algún campo de texto, rango de precio y subcadena de entrega.
func matches(d gigDomain.Gig, q gigDomain.GigQuery, terms []string) bool {
	if !d.Active {
		return false
	}
	if q.MinPrice != nil && d.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && d.Price > *q.MaxPrice {
		return false
	}
	if q.ExpectedDelivery != "" && !strings.Contains(strings.ToLower(d.ExpectedDelivery), strings.ToLower(q.ExpectedDelivery)) {
		return false
	}
	if len(terms) == 0 {
		return true
	}
	fields := []string{d.Username, d.Title, d.Description, d.BasicDescription, d.BasicTitle, d.Categories}
	fields = append(fields, d.SubCategories...)
	fields = append(fields, d.Tags...)
	text := strings.ToLower(strings.Join(fields, " "))
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

var _ gigDomain.SearchIndex = (*GigIndex)(nil)
