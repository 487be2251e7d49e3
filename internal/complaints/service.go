package complaints

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/google/uuid"
)

type transactor interface {
	Transact(ctx context.Context, collections []enums.Collection, fn func(tx *repository.Tx) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event notifications.Event)
}

// Service drives complaint status changes and comments.
type Service interface {
	Transition(ctx context.Context, id string, input TransitionInput) (*TransitionResult, error)
	AddComment(ctx context.Context, id string, input CommentInput) (docstore.Record, error)
}

// TransitionResult is the complaint after a transition request.
type TransitionResult struct {
	Complaint docstore.Record
	From      enums.ComplaintStatus
	To        enums.ComplaintStatus
	Changed   bool
}

// ServiceParams wires the complaint service.
type ServiceParams struct {
	Repo      transactor
	Publisher eventPublisher
	Logger    *logger.Logger
	Now       func() time.Time
	NewID     func() string
}

type service struct {
	repo      transactor
	publisher eventPublisher
	logg      *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewService validates params and returns a Service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	newID := params.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       now,
		newID:     newID,
	}, nil
}

var lockedCollections = []enums.Collection{enums.CollectionComplaints, enums.CollectionTenants}

func (s *service) Transition(ctx context.Context, id string, input TransitionInput) (*TransitionResult, error) {
	if strings.TrimSpace(input.Status) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}

	var (
		result      TransitionResult
		tenantUser  string
		complaintID = strings.TrimSpace(id)
	)
	err := s.repo.Transact(ctx, lockedCollections, func(tx *repository.Tx) error {
		current, err := tx.Get(enums.CollectionComplaints, complaintID)
		if err != nil {
			return err
		}
		tenantUser = originatingUser(tx, current)
		if err := authorize(input.Actor, current, tenantUser); err != nil {
			return err
		}
		if input.Actor.Role == enums.RoleTenant && strings.TrimSpace(input.Status) != enums.ComplaintStatusReopen.String() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "tenants can only reopen a complaint")
		}

		base := mergeFields(current, input.Fields)
		next, from, to, changed, err := Apply(base, input, s.now(), s.newID)
		if err != nil {
			return err
		}
		result = TransitionResult{Complaint: next, From: from, To: to, Changed: changed}
		if !changed && len(input.Fields) == 0 {
			return nil
		}
		saved, err := tx.Replace(enums.CollectionComplaints, next)
		if err != nil {
			return err
		}
		result.Complaint = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.publish(ctx, notifications.NewEvent(enums.NotificationComplaintStatusChanged, result.Complaint.HostelID(), map[string]any{
			"complaintId":  result.Complaint.ID(),
			"title":        result.Complaint.String("title"),
			"from":         result.From.String(),
			"to":           result.To.String(),
			"tenantUserId": tenantUser,
		}), input.Actor)
	}
	return &result, nil
}

func (s *service) AddComment(ctx context.Context, id string, input CommentInput) (docstore.Record, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}

	var (
		comment    map[string]any
		complaint  docstore.Record
		tenantUser string
	)
	err := s.repo.Transact(ctx, lockedCollections, func(tx *repository.Tx) error {
		current, err := tx.Get(enums.CollectionComplaints, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		tenantUser = originatingUser(tx, current)
		if err := authorize(input.Actor, current, tenantUser); err != nil {
			return err
		}

		comment = newComment(s.newID(), input.Actor, body, false, s.now())
		current["comments"] = append(Comments(current), comment)
		saved, err := tx.Replace(enums.CollectionComplaints, current)
		if err != nil {
			return err
		}
		complaint = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notifications.NewEvent(enums.NotificationComplaintCommentAdded, complaint.HostelID(), map[string]any{
		"complaintId":  complaint.ID(),
		"title":        complaint.String("title"),
		"authorRole":   input.Actor.Role.String(),
		"authorName":   input.Actor.Name,
		"tenantUserId": tenantUser,
	}), input.Actor)
	return docstore.Record(comment), nil
}

func (s *service) publish(ctx context.Context, event notifications.Event, actor Actor) {
	if s.publisher == nil {
		return
	}
	event.ActorID = actor.ID
	s.publisher.Publish(ctx, event)
}

// mergeFields overlays a generic patch on a copy of rec. The id and
// createdAt are kept.
func mergeFields(rec, fields docstore.Record) docstore.Record {
	if len(fields) == 0 {
		return rec
	}
	out := rec.Clone()
	for field, value := range fields {
		if field == "id" || field == "createdAt" {
			continue
		}
		out[field] = value
	}
	return out
}

// originatingUser resolves the user account of the tenant who raised the
// complaint through the tenant's userId reference.
func originatingUser(tx *repository.Tx, complaint docstore.Record) string {
	if userID := complaint.String("userId"); userID != "" {
		return userID
	}
	tenantID := complaint.String("tenantId")
	if tenantID == "" {
		return ""
	}
	tenant, err := tx.Get(enums.CollectionTenants, tenantID)
	if err != nil {
		return ""
	}
	return tenant.String("userId")
}

func authorize(actor Actor, complaint docstore.Record, tenantUser string) error {
	if actor.Role == enums.RoleMasterAdmin {
		return nil
	}
	if actor.HostelID == "" || actor.HostelID != complaint.HostelID() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	if actor.Role == enums.RoleTenant && (tenantUser == "" || tenantUser != actor.ID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "complaint belongs to another tenant")
	}
	return nil
}
