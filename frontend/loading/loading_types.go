package loading

import (
	"context"

	"dockout/infrastructure/sap"
)

// TokenFetcher reads the loading sequence of a VEP token.
type TokenFetcher interface {
	FetchTokenDetails(ctx context.Context, token string) (*sap.TokenDetails, error)
}

type PageData struct {
	VepToken string
	Error    string
}
