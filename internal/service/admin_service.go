package service

import (
	"context"
	"errors"

	"account-service/internal/models"
	"account-service/internal/repository/scylla"
	"account-service/internal/search"
	"account-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPageLimit = 10

// AdminService exposes the privileged account listing and search.
type AdminService struct {
	accounts scylla.AccountRepository
	indexer  search.Indexer
}

func NewAdminService(accounts scylla.AccountRepository, indexer search.Indexer) *AdminService {
	return &AdminService{
		accounts: accounts,
		indexer:  indexer,
	}
}

// ListAccounts returns a page of accounts, newest first. Admin only.
// Ordering comes from the search index; when the index is unavailable
// the listing falls back to the storage scan order.
func (s *AdminService) ListAccounts(ctx context.Context, actor models.Role, page, limit int) ([]*models.Account, error) {
	if !CanListAccounts(actor) {
		return nil, ErrNotAuthorized
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}

	if s.indexer != nil {
		accounts, err := s.listFromIndex(ctx, page, limit)
		if err == nil {
			return accounts, nil
		}
		util.Warn("Account index listing failed, falling back to storage order",
			zap.Error(err))
	}

	return s.accounts.ListAccounts(ctx, page, limit)
}

func (s *AdminService) listFromIndex(ctx context.Context, page, limit int) ([]*models.Account, error) {
	docs, _, err := s.indexer.SearchAccounts(ctx, "", page, limit)
	if err != nil {
		return nil, err
	}

	accounts := make([]*models.Account, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			continue
		}
		account, err := s.accounts.GetAccountByID(ctx, id)
		if err != nil {
			// Stale index entries are skipped, not surfaced
			if errors.Is(err, scylla.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// SearchAccounts queries the search index. Admin only.
func (s *AdminService) SearchAccounts(ctx context.Context, actor models.Role, query string, page, limit int) ([]search.AccountDocument, int64, error) {
	if !CanListAccounts(actor) {
		return nil, 0, ErrNotAuthorized
	}

	if limit < 1 {
		limit = defaultPageLimit
	}

	return s.indexer.SearchAccounts(ctx, query, page, limit)
}
