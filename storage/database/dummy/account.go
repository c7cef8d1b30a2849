package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

func (repo *accountRepository) query() []account.Account {
	accts := make([]account.Account, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		accts = append(accts, *a)
	}
	return accts
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, email string, excluded ...account.Account) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.query() {
		if acct.Email == email && !isExcluded(acct, excluded) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// uniqueness is re-checked under the write lock so concurrent
	// registrations cannot both pass a prior read-check
	for _, a := range repo.db.table {
		if a.Email == acct.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}

	acct.ID = uuid.New().String()
	repo.db.table[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if acct, ok := repo.db.table[filter.ID]; ok {
			return *acct, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	for _, acct := range repo.query() {
		if acct.Email == filter.Email {
			return acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accts := repo.query()

	if filter != nil {
		if filter.Search != "" {
			var filtered []account.Account
			search := strings.ToLower(filter.Search)
			for _, a := range accts {
				if strings.Contains(strings.ToLower(a.FirstName), search) ||
					strings.Contains(strings.ToLower(a.LastName), search) ||
					strings.Contains(strings.ToLower(a.Email), search) {
					filtered = append(filtered, a)
				}
			}
			accts = filtered
		}
		if len(filter.Roles) > 0 {
			var filtered []account.Account
			for _, a := range accts {
				for _, r := range filter.Roles {
					if a.Role == r {
						filtered = append(filtered, a)
						break
					}
				}
			}
			accts = filtered
		}
		if filter.IsActive != nil {
			var filtered []account.Account
			for _, a := range accts {
				if a.IsActive != nil && *a.IsActive == *filter.IsActive {
					filtered = append(filtered, a)
				}
			}
			accts = filtered
		}
		if !filter.CreatedFrom.IsZero() {
			var filtered []account.Account
			from := filter.CreatedFrom.UTC()
			for _, a := range accts {
				if !a.CreatedAt.Before(from) {
					filtered = append(filtered, a)
				}
			}
			accts = filtered
		}
		if !filter.CreatedTo.IsZero() {
			var filtered []account.Account
			to := filter.CreatedTo.UTC()
			for _, a := range accts {
				if !a.CreatedAt.After(to) {
					filtered = append(filtered, a)
				}
			}
			accts = filtered
		}
	}

	sortAccounts(accts, ordering)
	return accts, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[acct.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	// only save set fields
	if acct.PasswordHash != nil {
		orig.PasswordHash = acct.PasswordHash
	}
	if acct.IsActive != nil {
		orig.IsActive = acct.IsActive
	}
	if !acct.LastLogin.IsZero() {
		orig.LastLogin = acct.LastLogin
	}
	if acct.Role != "" {
		orig.Role = acct.Role
	}
	orig.FirstName = acct.FirstName
	orig.LastName = acct.LastName
	orig.Email = acct.Email
	orig.Photo = acct.Photo
	orig.UpdatedAt = acct.UpdatedAt

	return *orig, nil
}

func (repo *accountRepository) DeleteAccountsByID(_ context.Context, ids []string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}

func isExcluded(acct account.Account, excluded []account.Account) bool {
	for _, e := range excluded {
		if e.ID == acct.ID {
			return true
		}
	}
	return false
}

func sortAccounts(accts []account.Account, ordering []core.DBOrdering) {
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(accts, func(a, b int) bool {
			var less bool
			switch ord.Field {
			case "email":
				less = accts[a].Email < accts[b].Email
			case "first_name":
				less = accts[a].FirstName < accts[b].FirstName
			case "last_name":
				less = accts[a].LastName < accts[b].LastName
			case "created_at":
				less = accts[a].CreatedAt.Before(accts[b].CreatedAt)
			default:
				return false
			}
			if !ord.Ascending {
				return !less
			}
			return less
		})
	}
}
