// Package drugindex queries the drug reference vectors in Qdrant. The index
// payload carries the reference fields (name, class, indications, mechanism,
// route, pregnancy category); list queries are vector-guided and filtered in
// memory over that payload, the way the collection was built.
package drugindex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores/qdrant"

	"github.com/farmachile/medagent/config"
	"github.com/farmachile/medagent/types"
)

// Payload field labels as stored in the collection.
const (
	MetaID        = "Drug ID"
	MetaName      = "Drug Name"
	MetaClass     = "Drug Class"
	MetaIndic     = "Indications"
	MetaMechanism = "Mechanism of Action"
	MetaRoute     = "Route of Administration"
	MetaPregnancy = "Pregnancy Category"
)

// listNamesCap bounds how many distinct names a list query returns.
const listNamesCap = 25

// Index is the drug reference lookup the DrugInfo handler consumes.
type Index interface {
	// Search runs a similarity query and returns the top-k reference records.
	Search(ctx context.Context, query string, k int) ([]types.DrugRecord, error)
	// ListByField returns distinct drug names whose payload field contains
	// the value or one of its synonyms.
	ListByField(ctx context.Context, field, value string, synonyms []string, k int) ([]string, error)
}

// QdrantIndex implements Index over a langchaingo Qdrant store with OpenAI
// embeddings.
type QdrantIndex struct {
	store qdrant.Store
}

func NewFromConfig(cfg config.Config) (*QdrantIndex, error) {
	client, err := openai.New(
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithEmbeddingModel(cfg.EmbeddingsModel),
	)
	if err != nil {
		return nil, fmt.Errorf("drugindex: init embeddings client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("drugindex: init embedder: %w", err)
	}
	u, err := url.Parse(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("drugindex: parse qdrant url: %w", err)
	}

	opts := []qdrant.Option{
		qdrant.WithURL(*u),
		qdrant.WithCollectionName(cfg.QdrantCollection),
		qdrant.WithEmbedder(embedder),
	}
	if strings.TrimSpace(cfg.QdrantAPIKey) != "" {
		opts = append(opts, qdrant.WithAPIKey(cfg.QdrantAPIKey))
	}
	store, err := qdrant.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("drugindex: init store: %w", err)
	}
	return &QdrantIndex{store: store}, nil
}

func (q *QdrantIndex) Search(ctx context.Context, query string, k int) ([]types.DrugRecord, error) {
	docs, err := q.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, classify(err)
	}
	records := make([]types.DrugRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, docToRecord(d))
	}
	return records, nil
}

func (q *QdrantIndex) ListByField(ctx context.Context, field, value string, synonyms []string, k int) ([]string, error) {
	if k < 20 {
		k = 20
	}
	docs, err := q.store.SimilaritySearch(ctx, field+": "+value, k)
	if err != nil {
		return nil, classify(err)
	}
	return distinctNamesByField(docs, field, value, synonyms), nil
}

func docToRecord(d schema.Document) types.DrugRecord {
	return types.DrugRecord{
		ID:          metaString(d, MetaID),
		Name:        metaString(d, MetaName),
		Class:       metaString(d, MetaClass),
		Indications: metaString(d, MetaIndic),
		Mechanism:   metaString(d, MetaMechanism),
		Route:       metaString(d, MetaRoute),
		Pregnancy:   metaString(d, MetaPregnancy),
		Content:     d.PageContent,
	}
}

// distinctNamesByField keeps names whose field payload contains the value
// or a synonym, preserving similarity order.
func distinctNamesByField(docs []schema.Document, field, value string, synonyms []string) []string {
	targets := []string{strings.ToLower(strings.TrimSpace(value))}
	for _, s := range synonyms {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			targets = append(targets, s)
		}
	}

	var names []string
	seen := map[string]struct{}{}
	for _, d := range docs {
		meta := strings.ToLower(metaString(d, field))
		if !containsAny(meta, targets) {
			continue
		}
		name := strings.TrimSpace(metaString(d, MetaName))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		if len(names) >= listNamesCap {
			break
		}
	}
	return names
}

func containsAny(s string, targets []string) bool {
	for _, t := range targets {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func metaString(d schema.Document, key string) string {
	if v, ok := d.Metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewUpstreamTimeout("drug_index", err)
	}
	return types.NewUpstreamUnavailable("drug_index", err)
}
