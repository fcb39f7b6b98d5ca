package checklist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

// PairRequest keys one requirement-set lookup for a single seller×buyer
// combination.
type PairRequest struct {
	SellerType         deal.PersonType     `json:"seller_type"`
	SellerMaritalState deal.MaritalState   `json:"seller_marital_state"`
	SellerRegime       deal.PropertyRegime `json:"seller_regime"`
	BuyerType          deal.PersonType     `json:"buyer_type"`
	BuyerMaritalState  deal.MaritalState   `json:"buyer_marital_state"`
	BuyerRegime        deal.PropertyRegime `json:"buyer_regime"`
	Financing          bool                `json:"financing"`
	PropertyState      string              `json:"property_state"`
	PropertyType       string              `json:"property_type"`
	DeedCount          int                 `json:"deed_count"`
}

// PairChecklist is one catalog response. Immutable once fetched.
type PairChecklist struct {
	Sellers       types.ChecklistCategory `json:"vendedores"`
	Buyers        types.ChecklistCategory `json:"compradores"`
	Property      types.ChecklistCategory `json:"imovel"`
	Complexity    types.Complexity        `json:"complexidade"`
	EstimatedDays int                     `json:"prazo_estimado_dias"`
}

// CatalogProvider fetches the requirement set for one pair.
type CatalogProvider interface {
	FetchPair(ctx context.Context, req PairRequest) (*PairChecklist, error)
}

type httpCatalogProvider struct {
	log     *logger.Logger
	client  *http.Client
	baseURL string
}

func NewHTTPCatalogProvider(baseLog *logger.Logger, cfg config.CatalogConfig) (CatalogProvider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing catalog base URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpCatalogProvider{
		log:     baseLog.With("service", "CatalogProvider"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}, nil
}

func (p *httpCatalogProvider) FetchPair(ctx context.Context, req PairRequest) (*PairChecklist, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode pair request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/checklists", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request: unexpected status %d", resp.StatusCode)
	}

	var out PairChecklist
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return &out, nil
}
