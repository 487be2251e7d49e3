package provisioning

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
)

type transactor interface {
	Transact(ctx context.Context, collections []enums.Collection, fn func(tx *repository.Tx) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event notifications.Event)
}

// ApprovalService processes pending hostel requests.
type ApprovalService interface {
	Approve(ctx context.Context, id string, input ApproveInput) (*ApprovalResult, error)
	Reject(ctx context.Context, id string, input RejectInput) (docstore.Record, error)
}

// ApproveInput carries reviewer overrides.
type ApproveInput struct {
	ActorID  string
	Domain   string
	PlanType string
	Notes    string
}

// RejectInput carries the reviewer's reason.
type RejectInput struct {
	ActorID string
	Notes   string
}

// ApprovalResult bundles the records created by an approval with the one-time
// admin credentials.
type ApprovalResult struct {
	Request     docstore.Record `json:"request"`
	Hostel      docstore.Record `json:"hostel"`
	Admin       docstore.Record `json:"admin"`
	Credentials *Credentials    `json:"credentials"`
}

// ApprovalParams wire the approval service.
type ApprovalParams struct {
	Repo        transactor
	Provisioner *Provisioner
	Publisher   eventPublisher
	Logger      *logger.Logger
	Now         func() time.Time
}

type approvalService struct {
	repo      transactor
	prov      *Provisioner
	publisher eventPublisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewApprovalService validates params.
func NewApprovalService(params ApprovalParams) (ApprovalService, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Provisioner == nil {
		return nil, fmt.Errorf("provisioner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &approvalService{
		repo:      params.Repo,
		prov:      params.Provisioner,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       now,
	}, nil
}

var approvalCollections = []enums.Collection{
	enums.CollectionHostelRequests,
	enums.CollectionHostels,
	enums.CollectionUsers,
}

func (s *approvalService) Approve(ctx context.Context, id string, input ApproveInput) (*ApprovalResult, error) {
	var result ApprovalResult
	err := s.repo.Transact(ctx, approvalCollections, func(tx *repository.Tx) error {
		req, err := tx.Get(enums.CollectionHostelRequests, id)
		if err != nil {
			return err
		}
		if err := requirePending(req, enums.HostelRequestStatusApproved); err != nil {
			return err
		}

		hostelName := strings.TrimSpace(req.String("hostelName"))
		if hostelName == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "hostel request has no hostelName")
		}
		adminName := strings.TrimSpace(req.String("name"))
		if adminName == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "hostel request has no contact name")
		}

		now := s.now()
		cfg := s.prov.Config()
		domain := firstNonEmpty(input.Domain, req.String("domain"))
		if domain == "" {
			domain = DeriveDomain(hostelName, cfg.DomainSuffix)
		}
		planType := firstNonEmpty(input.PlanType, req.String("planType"), enums.PlanTypeFreeTrial)

		hostel, err := tx.Insert(enums.CollectionHostels, docstore.Record{
			"name":            hostelName,
			"address":         req.String("address"),
			"domain":          normalizeDomain(domain),
			"planType":        planType,
			"planStatus":      enums.PlanStatusTrial.String(),
			"trialExpiryDate": docstore.FormatTime(now.Add(cfg.TrialLength())),
			"status":          enums.HostelStatusActive.String(),
			"adminName":       adminName,
			"adminPhone":      req.String("phone"),
			"contactEmail":    req.String("email"),
			"totalRooms":      0,
			"occupiedRooms":   0,
		})
		if err != nil {
			return err
		}

		admin, creds, err := s.prov.CreateAccount(ctx, tx, AccountInput{
			Name:   adminName,
			Phone:  req.String("phone"),
			Role:   enums.RoleAdmin,
			Hostel: hostel,
		})
		if err != nil {
			return err
		}

		hostel["adminEmail"] = creds.Email
		hostel["adminUserId"] = admin.ID()
		if hostel, err = tx.Replace(enums.CollectionHostels, hostel); err != nil {
			return err
		}

		stamp := docstore.FormatTime(now)
		req["status"] = enums.HostelRequestStatusApproved.String()
		req["processedAt"] = stamp
		req["reviewedBy"] = input.ActorID
		req["hostelId"] = hostel.ID()
		req["adminUserId"] = admin.ID()
		req["adminEmail"] = creds.Email
		req["credentialsIssuedAt"] = stamp
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			req["notes"] = notes
		}
		if req, err = tx.Replace(enums.CollectionHostelRequests, req); err != nil {
			return err
		}

		result = ApprovalResult{Request: req, Hostel: hostel, Admin: admin, Credentials: creds}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithHostelID(ctx, result.Hostel.ID()), "hostel request approved")
	if s.publisher != nil {
		event := notifications.NewEvent(enums.NotificationHostelActivated, result.Hostel.ID(), map[string]any{
			"hostelId": result.Hostel.ID(),
			"name":     result.Hostel.String("name"),
		})
		event.ActorID = input.ActorID
		s.publisher.Publish(ctx, event)
	}
	return &result, nil
}

func (s *approvalService) Reject(ctx context.Context, id string, input RejectInput) (docstore.Record, error) {
	var rejected docstore.Record
	err := s.repo.Transact(ctx, []enums.Collection{enums.CollectionHostelRequests}, func(tx *repository.Tx) error {
		req, err := tx.Get(enums.CollectionHostelRequests, id)
		if err != nil {
			return err
		}
		if err := requirePending(req, enums.HostelRequestStatusRejected); err != nil {
			return err
		}
		req["status"] = enums.HostelRequestStatusRejected.String()
		req["processedAt"] = docstore.FormatTime(s.now())
		req["reviewedBy"] = input.ActorID
		req["notes"] = strings.TrimSpace(input.Notes)
		rejected, err = tx.Replace(enums.CollectionHostelRequests, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func requirePending(req docstore.Record, to enums.HostelRequestStatus) error {
	status := req.String("status")
	if status == "" || status == enums.HostelRequestStatusPending.String() {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "hostel request is already %s", status).
		WithDetails(map[string]any{"from": status, "to": to.String()})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
