package connect

import (
	"context"
	"errors"
)

// AccountResolver maps an identity profile's email to an existing local
// account, or signals "none found".
type AccountResolver struct {
	Store UserStore
}

func NewAccountResolver(store UserStore) *AccountResolver {
	return &AccountResolver{Store: store}
}

// Resolve looks up the account by email within the tenant.
// (nil, nil) significa "no existe" (resultado esperado, no error);
// cualquier otro error es un fallo de store y se propaga.
func (r *AccountResolver) Resolve(ctx context.Context, tenantID, email string) (*LocalAccount, error) {
	acct, err := r.Store.FindByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}
