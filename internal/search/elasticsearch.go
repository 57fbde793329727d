package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/foodbank/services/donations/config"
	"example.com/foodbank/services/donations/internal/models"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexDistribution indexes a committed distribution for report search.
// Indexing happens after the allocation transaction commits; a failure here
// leaves the row flagged for the worker to reconcile, never rolls back stock.
func (c *ElasticClient) IndexDistribution(ctx context.Context, distribution *models.Distribution, institutionName string) error {
	log.Info().Uint("distribution_id", distribution.ID).Msg("indexing distribution")

	items := make([]map[string]interface{}, 0, len(distribution.Items))
	for _, item := range distribution.Items {
		items = append(items, map[string]interface{}{
			"descricao":  item.Descricao,
			"quantidade": item.Quantidade.String(),
			"unidade":    item.Unidade,
			"validade":   item.Validade,
		})
	}

	doc := map[string]interface{}{
		"id":             distribution.ID,
		"id_instituicao": distribution.InstitutionID,
		"instituicao":    institutionName,
		"data_saida":     distribution.Date,
		"observacoes":    distribution.Notes,
		"itens":          items,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal distribution document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: strconv.FormatUint(uint64(distribution.ID), 10),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Uint("distribution_id", distribution.ID).Msg("distribution indexed successfully")
	return nil
}
