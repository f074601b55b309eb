package coingecko

import "github.com/shopspring/decimal"

// simplePriceResponse represents the response from /simple/price endpoint.
// Example response:
//
//	{
//	  "ethereum": {
//	    "usd": 3456.78,
//	    "eur": 3190.12
//	  }
//	}
type simplePriceResponse map[string]map[string]decimal.Decimal

// historyResponse represents the response from /coins/{id}/history endpoint.
// Example response:
//
//	{
//	  "id": "ethereum",
//	  "symbol": "eth",
//	  "market_data": {
//	    "current_price": {"usd": 2281.59, "eur": 2078.01}
//	  }
//	}
//
// market_data is absent for dates before the coin was listed.
type historyResponse struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	MarketData *struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

// coinListEntry is one element of the /coins/list response.
// Example response:
//
//	[{"id": "ethereum", "symbol": "eth", "name": "Ethereum"}]
type coinListEntry map[string]any

// coinGeckoError represents an error response from the CoinGecko API.
// The public and pro APIs use different shapes.
type coinGeckoError struct {
	Error  string `json:"error"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}
