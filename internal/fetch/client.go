package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"

	"stockyard/browser/internal/config"
	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/domain/action"
)

// ChildQuery addresses one page of one node's child listing.
type ChildQuery struct {
	Level  domain.Level
	Coords domain.Coordinates
	Page   int
	Sort   domain.SortState
}

// Result is one normalized child listing.
type Result struct {
	Records []domain.Record
	Page    domain.PageInfo
}

// Client speaks to the inventory service: child listings for the tree,
// full-listing walks for filtering and export, and item mutations.
type Client interface {
	FetchChildren(ctx context.Context, query ChildQuery) (*Result, error)
	FetchAllChildren(ctx context.Context, query ChildQuery) (*Result, error)
	Submit(ctx context.Context, act action.Action) error
}

type serviceClient struct {
	rl         ratelimit.Limiter
	config     config.ServiceConfig
	schema     domain.Schema
	httpClient *resty.Client
	supplier   EndpointSupplier

	// Cooldown after the service rejects on quota
	cooldownMutex sync.RWMutex
	pausedUntil   time.Time
	cooldownDelay time.Duration
}

func NewClient(cfg config.ServiceConfig, schema domain.Schema, supplier EndpointSupplier) Client {
	// Retries stay off: a failed fetch marks its node errored and the user
	// retries explicitly.
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "stockyard-browser/1.0").
		SetHeader("Accept", "application/json")

	cooldown := cfg.QuotaCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	return &serviceClient{
		rl:            ratelimit.New(cfg.MaxRequestsPerSecond),
		config:        cfg,
		schema:        schema,
		httpClient:    httpClient,
		supplier:      supplier,
		cooldownDelay: cooldown,
	}
}

func (c *serviceClient) FetchChildren(ctx context.Context, query ChildQuery) (*Result, error) {
	ls := c.schema.ForLevel(query.Level)
	if ls.Route == "" {
		return nil, fmt.Errorf("no route declared for level %q", query.Level)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}

	requestURL := c.childURL(ls, query, page)

	body, requestID, err := c.fetchJSON(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	records, pageInfo, err := decodeEnvelope(ls, body)
	if err != nil {
		reason := ReasonDecode
		var svc *serviceErr
		if errors.As(err, &svc) {
			reason = ReasonService
		}
		return nil, &Error{Reason: reason, URL: requestURL, RequestID: requestID, Err: err}
	}

	if pageInfo.Page == 0 {
		pageInfo.Page = page
	}

	log.Debugf("Fetched %d %s, page %d of %d", len(records), ls.Plural, pageInfo.Page, pageInfo.TotalPages())

	return &Result{Records: records, Page: pageInfo}, nil
}

// FetchAllChildren walks every page of one listing and returns the combined
// rows in page order. Filter application and export need the whole listing,
// not just the page on screen.
func (c *serviceClient) FetchAllChildren(ctx context.Context, query ChildQuery) (*Result, error) {
	firstQuery := query
	firstQuery.Page = 1

	first, err := c.FetchChildren(ctx, firstQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totalPages := first.Page.TotalPages()
	if totalPages <= 1 {
		return first, nil
	}

	pages := make([][]domain.Record, totalPages+1)
	pages[1] = first.Records

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxWorkers)

	for pageNum := 2; pageNum <= totalPages; pageNum++ {
		g.Go(func() error {
			pageQuery := query
			pageQuery.Page = pageNum

			result, err := c.FetchChildren(gctx, pageQuery)
			if err != nil {
				return fmt.Errorf("failed to fetch page %d: %w", pageNum, err)
			}
			pages[pageNum] = result.Records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := make([]domain.Record, 0, first.Page.TotalCount)
	for _, pageRecords := range pages[1:] {
		combined = append(combined, pageRecords...)
	}

	return &Result{
		Records: combined,
		Page: domain.PageInfo{
			Page:       1,
			PerPage:    first.Page.PerPage,
			TotalCount: first.Page.TotalCount,
		},
	}, nil
}

// Submit posts one mutation. A 200 whose body carries an error field still
// counts as failure.
func (c *serviceClient) Submit(ctx context.Context, act action.Action) error {
	if err := act.Validate(); err != nil {
		return fmt.Errorf("invalid %s action: %w", act.ActionName(), err)
	}

	body, err := act.Body()
	if err != nil {
		return fmt.Errorf("failed to encode %s action: %w", act.ActionName(), err)
	}

	if c.isPaused() {
		return fmt.Errorf("%w for %v more", ErrCooldown, c.remainingCooldown().Round(time.Second))
	}

	c.rl.Take()

	requestID := uuid.NewString()
	requestURL := c.supplier.Get() + act.Route()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(requestURL)

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return &Error{Reason: ReasonNetwork, URL: requestURL, RequestID: requestID, Err: err}
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		c.pauseRequests()
	}
	if resp.IsError() {
		return &Error{Reason: ReasonHTTP, URL: requestURL, Status: resp.StatusCode(), RequestID: requestID}
	}

	respBody := resp.String()
	if respBody != "" {
		var envelope struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal([]byte(respBody), &envelope); jsonErr == nil && envelope.Error != "" {
			return &Error{Reason: ReasonService, URL: requestURL, RequestID: requestID, Err: serviceError(envelope.Error)}
		}
	}

	log.Debugf("Applied %s", act.ActionName())
	return nil
}

func (c *serviceClient) childURL(ls domain.LevelSchema, query ChildQuery, page int) string {
	params := url.Values{}

	coords := query.Coords
	switch query.Level {
	case domain.LevelSubcategory:
		params.Set("category", coords.Category)
	case domain.LevelCommonName:
		params.Set("category", coords.Category)
		params.Set("subcategory", coords.Subcategory)
	case domain.LevelItem:
		params.Set("category", coords.Category)
		params.Set("subcategory", coords.Subcategory)
		params.Set("common_name", coords.CommonName)
		if coords.ContractNumber != "" {
			params.Set("contract_number", coords.ContractNumber)
		}
	}

	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(c.config.PerPage))
	if sort := query.Sort.Param(); sort != "" {
		params.Set("sort", sort)
	}

	return c.supplier.Get() + ls.Route + "?" + params.Encode()
}

func (c *serviceClient) fetchJSON(ctx context.Context, requestURL string) ([]byte, string, error) {
	if c.isPaused() {
		remaining := c.remainingCooldown().Round(time.Second)
		log.Debugf("🚫 Request blocked by cooldown, %v remaining", remaining)
		return nil, "", fmt.Errorf("%w for %v more", ErrCooldown, remaining)
	}

	c.rl.Take()

	requestID := uuid.NewString()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		Get(requestURL)

	if err != nil {
		if ctx.Err() != nil {
			return nil, requestID, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, requestID, &Error{Reason: ReasonNetwork, URL: requestURL, RequestID: requestID, Err: err}
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		c.pauseRequests()
		return nil, requestID, &Error{Reason: ReasonHTTP, URL: requestURL, Status: resp.StatusCode(), RequestID: requestID}
	}

	if resp.IsError() {
		return nil, requestID, &Error{Reason: ReasonHTTP, URL: requestURL, Status: resp.StatusCode(), RequestID: requestID}
	}

	return []byte(resp.String()), requestID, nil
}

func (c *serviceClient) isPaused() bool {
	c.cooldownMutex.RLock()
	now := time.Now()
	paused := now.Before(c.pausedUntil)
	wasTriggered := !c.pausedUntil.IsZero()
	c.cooldownMutex.RUnlock()

	if !paused && wasTriggered {
		c.cooldownMutex.Lock()
		if !c.pausedUntil.IsZero() && now.After(c.pausedUntil) {
			c.pausedUntil = time.Time{}
			log.Infof("✅ Quota cooldown elapsed, requests re-enabled")
		}
		c.cooldownMutex.Unlock()
	}

	return paused
}

func (c *serviceClient) pauseRequests() {
	c.cooldownMutex.Lock()
	defer c.cooldownMutex.Unlock()

	c.pausedUntil = time.Now().Add(c.cooldownDelay)
	log.Warnf("🚫 Quota rejected by service, pausing requests until %s", c.pausedUntil.Format("15:04:05"))
}

func (c *serviceClient) remainingCooldown() time.Duration {
	c.cooldownMutex.RLock()
	defer c.cooldownMutex.RUnlock()

	remaining := time.Until(c.pausedUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}
