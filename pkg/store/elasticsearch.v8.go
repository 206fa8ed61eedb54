package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/voidshard/tillcounter/pkg/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const (
	esIndex       = "tillcounter"
	esStatusIndex = "tillcounter-status"
	esStatusID    = "register"
	esFlush       = 2048
	esMaxHits     = 10000

	envEsAddr = "ELASTICSEARCH_SERVICE_HOST"
	envEsPort = "ELASTICSEARCH_SERVICE_PORT"
)

// ElasticsearchV8 keeps transactions as documents keyed by id and the
// register status as a single document in its own index. Append writes the
// transaction first, so a crash in between leaves a status that is rebuilt
// from the chain on the next load.
type ElasticsearchV8 struct {
	es  *elasticsearch.Client
	log zerolog.Logger
}

var _ Store = &ElasticsearchV8{}
var _ Exporter = &ElasticsearchV8{}

func NewElasticsearchV8(log zerolog.Logger, urls ...string) (*ElasticsearchV8, error) {
	if len(urls) == 0 {
		address := os.Getenv(envEsAddr)
		port := os.Getenv(envEsPort)
		if port == "" {
			port = "9200" // default port
		}
		if address == "" {
			address = "localhost" // default address
		}
		urls = []string{fmt.Sprintf("http://%s:%s", address, port)}
	}

	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: urls,

		// Retry on 429 TooManyRequests statuses
		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},

		MaxRetries: 5,
	})
	if err != nil {
		return nil, err
	}

	return &ElasticsearchV8{es: es, log: log}, nil
}

type esHits struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticsearchV8) List(ctx context.Context) ([]*domain.Transaction, error) {
	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(esIndex),
		e.es.Search.WithSize(esMaxHits),
		e.es.Search.WithSort("id:desc"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return []*domain.Transaction{}, nil // index not made yet
	}
	if res.IsError() {
		return nil, esError(res)
	}

	hits := &esHits{}
	if err := json.NewDecoder(res.Body).Decode(hits); err != nil {
		return nil, err
	}

	txns := make([]*domain.Transaction, 0, len(hits.Hits.Hits))
	for _, h := range hits.Hits.Hits {
		t := &domain.Transaction{}
		if err := json.Unmarshal(h.Source, t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func (e *ElasticsearchV8) Append(ctx context.Context, t *domain.Transaction, st *domain.RegisterStatus) error {
	data, err := t.JSON()
	if err != nil {
		return err
	}
	if err := e.index(ctx, esIndex, strconv.FormatInt(t.ID, 10), data); err != nil {
		return err
	}
	return e.SaveStatus(ctx, st)
}

func (e *ElasticsearchV8) LoadStatus(ctx context.Context) (*domain.RegisterStatus, error) {
	res, err := e.es.Get(esStatusIndex, esStatusID, e.es.Get.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, esError(res)
	}

	doc := struct {
		Source *domain.RegisterStatus `json:"_source"`
	}{}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc.Source, nil
}

func (e *ElasticsearchV8) SaveStatus(ctx context.Context, st *domain.RegisterStatus) error {
	data, err := st.JSON()
	if err != nil {
		return err
	}
	return e.index(ctx, esStatusIndex, esStatusID, data)
}

func (e *ElasticsearchV8) index(ctx context.Context, index, id string, data []byte) error {
	res, err := e.es.Index(
		index,
		bytes.NewReader(data),
		e.es.Index.WithContext(ctx),
		e.es.Index.WithDocumentID(id),
		e.es.Index.WithRefresh("true"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return esError(res)
	}
	return nil
}

// Write bulk indexes txns, eg. when exporting a file ledger for reporting.
func (e *ElasticsearchV8) Write(txns []*domain.Transaction) error {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         esIndex,
		FlushBytes:    esFlush,
		Client:        e.es,
		NumWorkers:    4,
		FlushInterval: 10 * time.Second,
	})
	if err != nil {
		return err
	}

	_, err = e.es.Indices.Create(esIndex)
	if err != nil {
		e.log.Debug().Err(err).Str("index", esIndex).Msg("attempted to make index")
	}

	for _, t := range txns {
		data, err := t.JSON()
		if err != nil {
			return err
		}

		err = bi.Add(
			context.Background(),
			esutil.BulkIndexerItem{
				Action:     "index",
				DocumentID: strconv.FormatInt(t.ID, 10),
				Body:       bytes.NewReader(data),
				OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
					if err != nil {
						e.log.Error().Err(err).Str("id", item.DocumentID).Msg("failed to index transaction")
					} else {
						e.log.Error().Str("id", item.DocumentID).Str("type", res.Error.Type).Msg(res.Error.Reason)
					}
				},
			},
		)
		if err != nil {
			return err
		}
	}

	if err := bi.Close(context.Background()); err != nil {
		return err
	}

	biStats := bi.Stats()
	if biStats.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d transactions", biStats.NumFailed, biStats.NumFlushed+biStats.NumFailed)
	}

	e.log.Info().Uint64("indexed", biStats.NumFlushed).Msg("export complete")
	return nil
}

func esError(res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("elasticsearch returned %s: %s", res.Status(), string(body))
}
