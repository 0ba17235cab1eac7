package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/internal/models"
	"github.com/noah-isme/husma-donation-api/internal/repository"
	appErrors "github.com/noah-isme/husma-donation-api/pkg/errors"
	"github.com/noah-isme/husma-donation-api/pkg/validation"
)

const dateLayout = "2006-01-02"

type childRepository interface {
	Create(ctx context.Context, child *models.Child) error
	Update(ctx context.Context, child *models.Child) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Child, error)
	List(ctx context.Context, filter models.ChildFilter) ([]models.Child, error)
	ListIssues(ctx context.Context, childID int64) ([]models.Issue, error)
	RecordIssue(ctx context.Context, issue *models.Issue, allowNegative bool) (bool, error)
	CreateWithIssue(ctx context.Context, child *models.Child, issue *models.Issue, allowNegative bool) (bool, error)
}

// ChildService manages beneficiaries and records supplement hand-outs.
type ChildService struct {
	repo          childRepository
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	allowNegative bool
	now           func() time.Time
}

// NewChildService constructs the child service.
func NewChildService(repo childRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, allowNegative bool) *ChildService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChildService{
		repo:          repo,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		allowNegative: allowNegative,
		now:           time.Now,
	}
}

// List returns children matching the name fragment.
func (s *ChildService) List(ctx context.Context, filter models.ChildFilter) ([]models.Child, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	children, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}
	return children, nil
}

// Get returns a child by ID.
func (s *ChildService) Get(ctx context.Context, id int64) (*models.Child, error) {
	child, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	return child, nil
}

// Create registers a child and, when asked, issues the first supplement today.
// The child and that first issue are stored together or not at all.
func (s *ChildService) Create(ctx context.Context, req models.ChildRequest) (*models.Child, error) {
	child, err := s.buildChild(req)
	if err != nil {
		return nil, err
	}
	child.CreatedAt = s.now().UTC()

	if !req.IssueToday {
		if err := s.repo.Create(ctx, child); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create child")
		}
		s.logger.Info("child registered", zap.Int64("child_id", child.ID), zap.String("milk_type", string(child.MilkType)))
		s.cache.InvalidateAnalytics(ctx)
		return child, nil
	}

	issue := &models.Issue{MilkType: child.MilkType, Quantity: 1, Date: s.today()}
	stockUpdated, err := s.repo.CreateWithIssue(ctx, child, issue, s.allowNegative)
	if err != nil {
		return nil, issueError(err, issue.MilkType)
	}
	s.logger.Info("child registered", zap.Int64("child_id", child.ID), zap.String("milk_type", string(child.MilkType)))
	s.issued(ctx, issue, stockUpdated)
	return child, nil
}

// Update replaces the editable fields of a child.
func (s *ChildService) Update(ctx context.Context, id int64, req models.ChildRequest) (*models.Child, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	child, err := s.buildChild(req)
	if err != nil {
		return nil, err
	}
	child.ID = id
	child.LastIssue = existing.LastIssue
	child.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, child); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update child")
	}
	return child, nil
}

// Delete removes a child and every issue recorded for it.
func (s *ChildService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete child")
	}
	s.logger.Info("child deleted", zap.Int64("child_id", id))
	s.cache.InvalidateAnalytics(ctx)
	return nil
}

// Issues lists a child's hand-outs, newest first.
func (s *ChildService) Issues(ctx context.Context, childID int64) ([]models.Issue, error) {
	if _, err := s.Get(ctx, childID); err != nil {
		return nil, err
	}
	issues, err := s.repo.ListIssues(ctx, childID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list issues")
	}
	return issues, nil
}

// IssueMilk records one unit handed to the child. The child's last issue date
// becomes the issue date even when it is older than a previous one.
func (s *ChildService) IssueMilk(ctx context.Context, childID int64, req models.IssueRequest) (*models.IssueResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must use YYYY-MM-DD")
	}
	child, err := s.Get(ctx, childID)
	if err != nil {
		return nil, err
	}

	issue := &models.Issue{ChildID: child.ID, MilkType: child.MilkType, Quantity: 1}
	if req.MilkType != "" {
		if !req.MilkType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown supplement type")
		}
		issue.MilkType = req.MilkType
	}
	if req.Date != "" {
		if issue.Date, err = time.Parse(dateLayout, req.Date); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must use YYYY-MM-DD")
		}
	} else {
		issue.Date = s.today()
	}

	stockUpdated, err := s.repo.RecordIssue(ctx, issue, s.allowNegative)
	if err != nil {
		return nil, issueError(err, issue.MilkType)
	}
	s.issued(ctx, issue, stockUpdated)
	return &models.IssueResult{Issue: *issue, StockUpdated: stockUpdated}, nil
}

func (s *ChildService) issued(ctx context.Context, issue *models.Issue, stockUpdated bool) {
	if !stockUpdated {
		s.logger.Warn("issue recorded without a matching product", zap.Int64("child_id", issue.ChildID), zap.String("milk_type", string(issue.MilkType)))
	}
	s.metrics.RecordIssue()
	s.logger.Info("supplement issued",
		zap.Int64("child_id", issue.ChildID), zap.Int64("issue_id", issue.ID), zap.String("date", issue.Date.Format(dateLayout)))
	s.cache.InvalidateAnalytics(ctx)
}

func (s *ChildService) today() time.Time {
	today, _ := time.Parse(dateLayout, s.now().UTC().Format(dateLayout))
	return today
}

func issueError(err error, milkType models.SupplementType) error {
	if errors.Is(err, repository.ErrInsufficientStock) {
		return appErrors.Wrap(err, appErrors.ErrInsufficientStock.Code, appErrors.ErrInsufficientStock.Status,
			string(milkType)+" is out of stock")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record issue")
}

func (s *ChildService) buildChild(req models.ChildRequest) (*models.Child, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Guardian = strings.TrimSpace(req.Guardian)
	req.Phone = validation.NormalizePhone(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, childMessage(err))
	}
	if !req.MilkType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown supplement type")
	}
	child := &models.Child{Name: req.Name, Guardian: req.Guardian, Phone: req.Phone, MilkType: req.MilkType}
	if req.Birthday != "" {
		birthday, err := time.Parse(dateLayout, req.Birthday)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "birthday must use YYYY-MM-DD")
		}
		if birthday.After(s.now()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "birthday cannot be in the future")
		}
		child.Birthday = &birthday
	}
	return child, nil
}

func childMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid child details"
	}
	switch fe := fieldErrs[0]; fe.Field() {
	case "Phone":
		if fe.Tag() == "lkphone" {
			_, reason := validation.ValidatePhone(fe.Value().(string))
			return reason
		}
		return "phone is required"
	case "Birthday":
		return "birthday must use YYYY-MM-DD"
	case "MilkType":
		return "milk type is required"
	default:
		if fe.Tag() == "required" {
			return strings.ToLower(fe.Field()) + " is required"
		}
		return strings.ToLower(fe.Field()) + " is invalid"
	}
}
