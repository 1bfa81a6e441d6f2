package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type toolService struct {
	store repository.Store
	opts  options
}

func NewToolService(store repository.Store, opts ...Option) ToolService {
	return &toolService{store: store, opts: buildOptions(opts)}
}

func (s *toolService) AddListing(ctx context.Context, owner string, tool *domain.Tool) (created *domain.Tool, err error) {
	const method = "ToolService.AddListing"
	logger.EnterMethod(method, "owner", owner)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	if tool == nil {
		return nil, domain.NewValidationError("tool is required")
	}
	listing := *tool
	listing.ID = 0
	listing.Version = 0
	listing.OwnerUsername = owner
	listing.Title = strings.TrimSpace(listing.Title)
	listing.ToolType = strings.TrimSpace(listing.ToolType)
	listing.CreatedAt = s.opts.now()
	listing.Available = true
	if listing.Condition == "" {
		listing.Condition = domain.ToolConditionGood
	}
	if err := listing.Validate(); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if _, err := repos.Users().GetByUsername(ctx, owner); err != nil {
			return err
		}
		return repos.Tools().Create(ctx, &listing)
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Tool listed", "tool_id", listing.ID, "owner", owner, "title", listing.Title)
	return &listing, nil
}

func (s *toolService) GetTool(ctx context.Context, id int64) (tool *domain.Tool, err error) {
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		tool, err = repos.Tools().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tool, nil
}

// Search filters listings and returns one page of them together with the total match count.
// page is 1-based.
func (s *toolService) Search(ctx context.Context, filter domain.ToolFilter, page, pageSize int) (tools []domain.Tool, total int, err error) {
	const method = "ToolService.Search"
	logger.EnterMethod(method, "tool_type", filter.ToolType, "neighborhood", filter.Neighborhood, "query", filter.Query, "page", page)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if filter.MaxDailyRate != nil && filter.MaxDailyRate.IsNegative() {
		return nil, 0, domain.NewValidationError("max daily rate must not be negative")
	}

	var all []domain.Tool
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		all, err = repos.Tools().FindWhere(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	total = len(all)
	from := (page - 1) * pageSize
	if from >= total {
		return []domain.Tool{}, total, nil
	}
	to := from + pageSize
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

func (s *toolService) Facets(ctx context.Context) (*domain.ToolFacets, error) {
	var all []domain.Tool
	err := s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		all, err = repos.Tools().FindWhere(ctx, domain.ToolFilter{})
		return err
	})
	if err != nil {
		return nil, err
	}
	types := map[string]struct{}{}
	hoods := map[string]struct{}{}
	for _, t := range all {
		if t.ToolType != "" {
			types[t.ToolType] = struct{}{}
		}
		if t.Neighborhood != "" {
			hoods[t.Neighborhood] = struct{}{}
		}
	}
	return &domain.ToolFacets{
		ToolTypes:     sortedKeys(types),
		Neighborhoods: sortedKeys(hoods),
	}, nil
}

func (s *toolService) ListByOwner(ctx context.Context, owner string) (tools []domain.Tool, err error) {
	if owner == "" {
		return nil, domain.NewValidationError("owner is required")
	}
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		tools, err = repos.Tools().FindWhere(ctx, domain.ToolFilter{OwnerUsername: owner})
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools, nil
}

// SetAvailability flips the owner's manual availability flag.
func (s *toolService) SetAvailability(ctx context.Context, owner string, toolID int64, available bool) (tool *domain.Tool, err error) {
	const method = "ToolService.SetAvailability"
	logger.EnterMethod(method, "owner", owner, "tool_id", toolID, "available", available)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		current, err := repos.Tools().GetForUpdate(ctx, toolID)
		if err != nil {
			return err
		}
		if current.OwnerUsername != owner {
			return domain.NewUnauthorizedError("%s does not own tool %d", owner, toolID)
		}
		tool, err = repos.Tools().UpdateFields(ctx, toolID, domain.ToolPatch{
			Available:       &available,
			ExpectedVersion: current.Version,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Tool availability changed", "tool_id", toolID, "available", available)
	return tool, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
