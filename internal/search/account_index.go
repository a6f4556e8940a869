package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"account-service/internal/client"
	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/util"
)

// AccountDocument is the indexed projection of an account. Credentials
// and encrypted fields never reach the index.
type AccountDocument struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	Country       string    `json:"country"`
	City          string    `json:"city"`
	Profession    string    `json:"profession"`
	CreatedAt     time.Time `json:"created_at"`
}

// ErrIndexUnavailable means the index was never connected, which
// happens in development when Elasticsearch is down.
var ErrIndexUnavailable = errors.New("search index unavailable")

// Indexer maintains the account search index.
type Indexer interface {
	IndexAccount(ctx context.Context, account *models.Account) error
	SearchAccounts(ctx context.Context, query string, page, limit int) ([]AccountDocument, int64, error)
}

type AccountIndex struct {
	es    *client.ESClient
	index string
}

func NewAccountIndex(cfg *config.Config, es *client.ESClient) *AccountIndex {
	return &AccountIndex{
		es:    es,
		index: cfg.Elasticsearch.AccountIndex,
	}
}

// IndexAccount upserts the account's search document.
func (a *AccountIndex) IndexAccount(ctx context.Context, account *models.Account) error {
	if a.es == nil {
		return ErrIndexUnavailable
	}

	doc := AccountDocument{
		ID:            account.ID.String(),
		Email:         account.Email,
		FullName:      account.FullName(),
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		Role:          string(account.Role),
		EmailVerified: account.EmailVerified,
		Country:       account.Country,
		City:          account.City,
		Profession:    account.Profession,
		CreatedAt:     account.CreatedAt,
	}

	res, err := a.es.IndexDocument(ctx, a.index, doc.ID, doc)
	if err != nil {
		util.Error("Failed to index account",
			zap.String("account_id", doc.ID),
			zap.Error(err))
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index account %s: %s", doc.ID, res.Status())
	}

	util.Debug("Account indexed", zap.String("account_id", doc.ID))
	return nil
}

type searchResult struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source AccountDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchAccounts runs a multi-field match over the index. Page numbers
// start at 1.
func (a *AccountIndex) SearchAccounts(ctx context.Context, query string, page, limit int) ([]AccountDocument, int64, error) {
	if a.es == nil {
		return nil, 0, ErrIndexUnavailable
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	body := map[string]interface{}{
		"from": (page - 1) * limit,
		"size": limit,
		"sort": []map[string]interface{}{
			{"created_at": map[string]string{"order": "desc"}},
		},
	}

	if query == "" {
		body["query"] = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	} else {
		body["query"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"email", "full_name", "first_name", "last_name", "country", "city", "profession"},
			},
		}
	}

	res, err := a.es.Search(ctx, a.index, body)
	if err != nil {
		return nil, 0, err
	}

	var result searchResult
	if err := a.es.ParseResponse(res, &result); err != nil {
		return nil, 0, err
	}

	docs := make([]AccountDocument, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	return docs, result.Hits.Total.Value, nil
}
