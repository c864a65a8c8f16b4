package core

import "time"

// Category identifies an upstream data kind sharing a pacing budget.
type Category string

const (
	CategoryKline        Category = "kline"
	CategoryTokenDetails Category = "tokenDetails"
	CategoryTransactions Category = "transactions"
	CategoryHolders      Category = "holders"
	CategoryRisk         Category = "risk"
	CategorySearch       Category = "search"
)

// Categories lists the pre-registered categories in display order.
var Categories = []Category{
	CategoryKline,
	CategoryTokenDetails,
	CategoryTransactions,
	CategoryHolders,
	CategoryRisk,
	CategorySearch,
}

// TokenRef addresses a token on a specific chain.
type TokenRef struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
}

// TokenSummary is a single search hit.
type TokenSummary struct {
	Token           string  `json:"token"`
	Chain           string  `json:"chain"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	LogoURL         string  `json:"logo_url"`
	CurrentPriceUSD float64 `json:"current_price_usd"`
	PriceChange24h  float64 `json:"price_change_24h"`
	TxVolumeU24h    float64 `json:"tx_volume_u_24h"`
	Holders         int64   `json:"holders"`
	MarketCap       string  `json:"market_cap"`
	RiskScore       float64 `json:"risk_score"`
}

// SearchResult is the normalized outcome of a keyword search.
type SearchResult struct {
	Tokens  []TokenSummary `json:"tokens"`
	Keyword string         `json:"keyword"`
	Chain   string         `json:"chain"`
	Message string         `json:"message,omitempty"`
}

// TokenDetails is the normalized token detail record.
type TokenDetails struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Logo           string  `json:"logo"`
	Chain          string  `json:"chain"`
	Price          float64 `json:"price"`
	PriceChange    float64 `json:"priceChange"`
	PriceChange24h float64 `json:"priceChange24h"`
	Volume24h      float64 `json:"volume24h"`
	MarketCap      float64 `json:"marketCap"`
	TotalSupply    float64 `json:"totalSupply"`
	Holders        int64   `json:"holders"`
	Website        string  `json:"website"`
	Twitter        string  `json:"twitter"`
	Telegram       string  `json:"telegram"`
	CreatedAt      int64   `json:"created_at"`
	RiskScore      float64 `json:"risk_score"`
	RiskLevel      float64 `json:"risk_level"`
	LaunchAt       int64   `json:"launch_at"`
	BuyTx          float64 `json:"buy_tx"`
	SellTx         float64 `json:"sell_tx"`
	LockedPercent  float64 `json:"locked_percent"`
	BurnAmount     float64 `json:"burn_amount"`
}

// HolderEntry is one row of a holder ranking.
type HolderEntry struct {
	Address    string `json:"address"`
	Quantity   string `json:"quantity"`
	Percent    string `json:"percent"`
	IsContract bool   `json:"is_contract"`
	Mark       string `json:"mark,omitempty"`
}

// TransactionEntry is one swap seen from the perspective of the tracked token.
type TransactionEntry struct {
	TxHash          string  `json:"tx_hash"`
	Timestamp       int64   `json:"timestamp"`
	FromAddr        string  `json:"from_addr"`
	ToAddr          string  `json:"to_addr"`
	IsBuy           bool    `json:"is_buy"`
	TokenAmount     float64 `json:"token_amount"`
	TokenSymbol     string  `json:"token_symbol"`
	EthAmount       float64 `json:"eth_amount"`
	MainTokenSymbol string  `json:"main_token_symbol"`
	USDAmount       float64 `json:"usd_amount"`
	BlockNumber     int64   `json:"block_number"`
	AMM             string  `json:"amm"`
	Chain           string  `json:"chain"`
}

// RiskReport carries upstream contract-risk fields verbatim; empty when unknown.
type RiskReport map[string]any

// KlinePoint is one OHLCV candle; Timestamp is unix milliseconds.
type KlinePoint struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// KlineSeries is a candle series with provenance flags.
type KlineSeries struct {
	Points []KlinePoint `json:"klines"`
	IsMock bool         `json:"is_mock_data,omitempty"`
	Stale  bool         `json:"is_stale,omitempty"`
	Error  string       `json:"error_info,omitempty"`
}

// Overview bundles the token page data sets fetched together.
type Overview struct {
	Token        TokenRef           `json:"token"`
	Details      *TokenDetails      `json:"details,omitempty"`
	Holders      []HolderEntry      `json:"holders"`
	Transactions []TransactionEntry `json:"transactions"`
	Risk         RiskReport         `json:"risk"`
	Errors       map[string]string  `json:"errors,omitempty"`
	FetchedAt    time.Time          `json:"fetched_at"`
}
