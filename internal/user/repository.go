package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/internhub/portal/internal/apiclient"
)

// MyInfoPath is the backend endpoint describing the token's owner
const MyInfoPath = "/accounts/myInfo"

// ErrMalformedAccount is returned when the backend answers with an unusable record
var ErrMalformedAccount = errors.New("malformed account record")

// Repository reads account data from the portal backend
type Repository struct {
	transport *apiclient.Transport
}

// NewRepository creates a new account repository
func NewRepository(transport *apiclient.Transport) *Repository {
	return &Repository{transport: transport}
}

// Me fetches the account owning accessToken
func (r *Repository) Me(ctx context.Context, accessToken string) (*Account, error) {
	resp, err := r.transport.Do(ctx, apiclient.NewRequest("GET", MyInfoPath), accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account info: %w", err)
	}

	var account Account
	if err := resp.Decode(&account); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAccount, err)
	}

	if account.Username == "" && account.AccountID == "" {
		return nil, ErrMalformedAccount
	}

	return &account, nil
}
