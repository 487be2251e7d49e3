package entities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/complaints"
	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/internal/provisioning"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/internal/users"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

type store interface {
	List(ctx context.Context, c enums.Collection, filter repository.Filter) ([]docstore.Record, error)
	Get(ctx context.Context, c enums.Collection, id string) (docstore.Record, error)
	Delete(ctx context.Context, c enums.Collection, id string, opts repository.DeleteOptions) error
	Transact(ctx context.Context, collections []enums.Collection, fn func(tx *repository.Tx) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event notifications.Event)
}

type memberProvisioner interface {
	ProvisionTenant(ctx context.Context, tx *repository.Tx, tenant docstore.Record) (docstore.Record, *provisioning.Credentials, error)
	ProvisionStaff(ctx context.Context, tx *repository.Tx, staff docstore.Record) (docstore.Record, *provisioning.Credentials, error)
}

// Service runs generic collection CRUD with the per-collection side effects.
type Service interface {
	List(ctx context.Context, p Principal, c enums.Collection, where map[string]string) ([]docstore.Record, error)
	Get(ctx context.Context, p Principal, c enums.Collection, id string) (docstore.Record, error)
	Create(ctx context.Context, p Principal, c enums.Collection, input docstore.Record) (*CreateResult, error)
	Update(ctx context.Context, p Principal, c enums.Collection, id string, patch docstore.Record) (docstore.Record, error)
	Delete(ctx context.Context, p Principal, c enums.Collection, id string, opts repository.DeleteOptions) error
	PaymentSummary(ctx context.Context, p Principal, hostelID string, period PaymentPeriod) (*PaymentSummary, error)
}

// CreateResult carries the created record and, for provisioned members, the
// one-time credentials of the companion account.
type CreateResult struct {
	Record      docstore.Record
	Credentials *provisioning.Credentials
}

type ServiceParams struct {
	Repo        store
	Provisioner memberProvisioner
	Complaints  complaints.Service
	Publisher   eventPublisher
	Password    config.PasswordConfig
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        store
	provisioner memberProvisioner
	complaints  complaints.Service
	publisher   eventPublisher
	password    config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Provisioner == nil {
		return nil, fmt.Errorf("provisioner required")
	}
	if params.Complaints == nil {
		return nil, fmt.Errorf("complaint service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		provisioner: params.Provisioner,
		complaints:  params.Complaints,
		publisher:   params.Publisher,
		password:    params.Password,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) List(ctx context.Context, p Principal, c enums.Collection, where map[string]string) ([]docstore.Record, error) {
	if err := authorize(p, c, opRead); err != nil {
		return nil, err
	}
	filter := repository.Filter{Where: map[string]string{}}
	for field, value := range where {
		filter.Where[field] = value
	}
	if hostelID := partition(p); hostelID != "" {
		if c == enums.CollectionHostels {
			filter.Where["id"] = hostelID
		} else if scoped(c) {
			filter.HostelID = hostelID
		}
	}
	records, err := s.repo.List(ctx, c, filter)
	if err != nil {
		return nil, err
	}
	if c == enums.CollectionUsers {
		return users.PublicList(records), nil
	}
	return records, nil
}

func (s *service) Get(ctx context.Context, p Principal, c enums.Collection, id string) (docstore.Record, error) {
	if err := authorize(p, c, opRead); err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if !visible(p, c, rec) {
		return nil, notFound(c, id)
	}
	return present(c, rec), nil
}

func (s *service) Create(ctx context.Context, p Principal, c enums.Collection, input docstore.Record) (*CreateResult, error) {
	if err := authorize(p, c, opCreate); err != nil {
		return nil, err
	}
	rec := input.Clone()
	if rec == nil {
		rec = docstore.Record{}
	}
	if err := s.prepareCreate(p, c, rec); err != nil {
		return nil, err
	}

	var (
		created docstore.Record
		creds   *provisioning.Credentials
	)
	switch c {
	case enums.CollectionTenants, enums.CollectionStaff:
		err := s.repo.Transact(ctx, []enums.Collection{enums.CollectionHostels, c, enums.CollectionUsers}, func(tx *repository.Tx) error {
			var err error
			if c == enums.CollectionTenants {
				created, creds, err = s.provisioner.ProvisionTenant(ctx, tx, rec)
			} else {
				created, creds, err = s.provisioner.ProvisionStaff(ctx, tx, rec)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	case enums.CollectionComplaints:
		err := s.repo.Transact(ctx, []enums.Collection{enums.CollectionComplaints, enums.CollectionTenants}, func(tx *repository.Tx) error {
			linkComplaintTenant(tx, p, rec)
			var err error
			created, err = tx.Insert(c, rec)
			return err
		})
		if err != nil {
			return nil, err
		}
	default:
		err := s.repo.Transact(ctx, []enums.Collection{c}, func(tx *repository.Tx) error {
			var err error
			created, err = tx.Insert(c, rec)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"collection": c.String(), "record_id": created.ID()})
	s.logg.Info(logCtx, "record created")
	s.publishCreated(ctx, p, c, created)
	return &CreateResult{Record: present(c, created), Credentials: creds}, nil
}

func (s *service) Update(ctx context.Context, p Principal, c enums.Collection, id string, patch docstore.Record) (docstore.Record, error) {
	if err := authorize(p, c, opUpdate); err != nil {
		return nil, err
	}
	rest := patch.Clone()
	if rest == nil {
		rest = docstore.Record{}
	}
	if hostelID := partition(p); hostelID != "" {
		delete(rest, "hostelId")
	}

	var status string
	if c == enums.CollectionComplaints {
		var err error
		rest, status, err = complaints.SplitPatch(rest)
		if err != nil {
			return nil, err
		}
	}
	if err := s.preparePatch(p, c, rest); err != nil {
		return nil, err
	}

	if status != "" {
		result, err := s.complaints.Transition(ctx, id, complaints.TransitionInput{
			Status: status,
			Actor:  actorOf(p),
			Fields: rest,
		})
		if err != nil {
			return nil, err
		}
		return present(c, result.Complaint), nil
	}

	var before, after docstore.Record
	err := s.repo.Transact(ctx, []enums.Collection{c}, func(tx *repository.Tx) error {
		current, err := tx.Get(c, id)
		if err != nil {
			return err
		}
		if !visible(p, c, current) {
			return notFound(c, id)
		}
		before = current
		if len(rest) == 0 {
			after = current
			return nil
		}
		after, err = tx.Update(c, id, rest)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, p, c, before, after)
	return present(c, after), nil
}

func (s *service) Delete(ctx context.Context, p Principal, c enums.Collection, id string, opts repository.DeleteOptions) error {
	if err := authorize(p, c, opDelete); err != nil {
		return err
	}
	if opts.AdminOverride && !p.has(enums.RoleMasterAdmin, enums.RoleAdmin) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can override delete protection")
	}
	rec, err := s.repo.Get(ctx, c, id)
	if err != nil {
		return err
	}
	if !visible(p, c, rec) {
		return notFound(c, id)
	}
	if err := s.repo.Delete(ctx, c, id, opts); err != nil {
		return err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"collection": c.String(), "record_id": id, "override": opts.AdminOverride})
	s.logg.Info(logCtx, "record deleted")
	return nil
}

func (s *service) PaymentSummary(ctx context.Context, p Principal, hostelID string, period PaymentPeriod) (*PaymentSummary, error) {
	if err := authorize(p, enums.CollectionPayments, opRead); err != nil {
		return nil, err
	}
	if !p.has(staffWriters...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment summaries are limited to hostel staff")
	}
	if period.Month < 0 || period.Month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if scope := partition(p); scope != "" {
		hostelID = scope
	}
	payments, err := s.repo.List(ctx, enums.CollectionPayments, repository.Filter{HostelID: strings.TrimSpace(hostelID)})
	if err != nil {
		return nil, err
	}
	return summarize(hostelID, period, payments), nil
}

// prepareCreate forces the partition and applies the collection defaults.
func (s *service) prepareCreate(p Principal, c enums.Collection, rec docstore.Record) error {
	if scoped(c) {
		if hostelID := partition(p); hostelID != "" {
			rec["hostelId"] = hostelID
		} else if c.IsHostelScoped() && rec.HostelID() == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "hostelId is required")
		}
	}
	if err := normalizeAmounts(c, rec); err != nil {
		return err
	}

	switch c {
	case enums.CollectionUsers:
		if err := s.checkUserRole(p, rec); err != nil {
			return err
		}
		if rec.String("email") == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
		}
		rec["email"] = strings.ToLower(strings.TrimSpace(rec.String("email")))
		if _, ok := rec["failedLoginAttempts"]; !ok {
			rec["failedLoginAttempts"] = 0
		}
		if _, ok := rec["isLocked"]; !ok {
			rec["isLocked"] = false
		}
		if rec.String("status") == "" {
			rec["status"] = "active"
		}
		return users.HashPasswordField(rec, s.password)
	case enums.CollectionComplaints:
		if strings.TrimSpace(rec.String("title")) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
		}
		return complaints.Prepare(rec)
	case enums.CollectionPayments:
		if _, ok := rec["amount"]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
		}
		return defaultStatus(rec, enums.PaymentStatusPending.String(), func(v string) bool {
			return enums.PaymentStatus(v).IsValid()
		})
	case enums.CollectionHostelRequests:
		for _, field := range []string{"hostelName", "name", "email"} {
			if strings.TrimSpace(rec.String(field)) == "" {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", field)
			}
		}
		rec["email"] = strings.ToLower(strings.TrimSpace(rec.String("email")))
		rec["status"] = enums.HostelRequestStatusPending.String()
		for _, field := range []string{"processedAt", "reviewedBy", "hostelId", "adminUserId", "adminEmail", "credentialsIssuedAt"} {
			delete(rec, field)
		}
	case enums.CollectionHostels:
		if strings.TrimSpace(rec.String("name")) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		return defaultStatus(rec, enums.HostelStatusActive.String(), func(v string) bool {
			return enums.HostelStatus(v).IsValid()
		})
	case enums.CollectionCheckoutRequests, enums.CollectionSupportTickets:
		if rec.String("status") == "" {
			rec["status"] = "pending"
		}
		if p.Role == enums.RoleTenant && rec.String("userId") == "" {
			rec["userId"] = p.UserID
		}
	}
	return nil
}

func (s *service) preparePatch(p Principal, c enums.Collection, patch docstore.Record) error {
	if err := normalizeAmounts(c, patch); err != nil {
		return err
	}
	switch c {
	case enums.CollectionUsers:
		if _, ok := patch["role"]; ok {
			if err := s.checkUserRole(p, patch); err != nil {
				return err
			}
		}
		if _, ok := patch["email"]; ok {
			patch["email"] = strings.ToLower(strings.TrimSpace(patch.String("email")))
		}
		return users.HashPasswordField(patch, s.password)
	case enums.CollectionPayments:
		if raw := patch.String("status"); raw != "" && !enums.PaymentStatus(raw).IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", raw)
		}
	case enums.CollectionHostels:
		if raw := patch.String("status"); raw != "" && !enums.HostelStatus(raw).IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid hostel status %q", raw)
		}
	case enums.CollectionHostelRequests:
		if _, ok := patch["status"]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "hostel requests change status through approve or reject")
		}
	}
	return nil
}

func (s *service) checkUserRole(p Principal, rec docstore.Record) error {
	role, err := enums.ParseRole(rec.String("role"))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	rec["role"] = role.String()
	if role == enums.RoleMasterAdmin && !p.isMaster() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only master admins can grant master_admin")
	}
	return nil
}

func defaultStatus(rec docstore.Record, def string, valid func(string) bool) error {
	raw := strings.TrimSpace(rec.String("status"))
	if raw == "" {
		rec["status"] = def
		return nil
	}
	if !valid(raw) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", raw)
	}
	rec["status"] = raw
	return nil
}

// linkComplaintTenant ties a tenant-raised complaint to the caller and to
// their tenant record.
func linkComplaintTenant(tx *repository.Tx, p Principal, rec docstore.Record) {
	if p.Role != enums.RoleTenant {
		return
	}
	rec["userId"] = p.UserID
	tenant, ok := tx.Find(enums.CollectionTenants, func(t docstore.Record) bool {
		return t.String("userId") == p.UserID && t.HostelID() == rec.HostelID()
	})
	if !ok {
		return
	}
	if rec.String("tenantId") == "" {
		rec["tenantId"] = tenant.ID()
	}
	if rec.String("tenantName") == "" {
		rec["tenantName"] = tenant.String("name")
	}
	if rec.String("roomNumber") == "" && tenant.String("roomNumber") != "" {
		rec["roomNumber"] = tenant.String("roomNumber")
	}
}

func present(c enums.Collection, rec docstore.Record) docstore.Record {
	if c == enums.CollectionUsers {
		return users.Public(rec)
	}
	return rec
}

func actorOf(p Principal) complaints.Actor {
	return complaints.Actor{ID: p.UserID, Name: p.Name, Role: p.Role, HostelID: p.HostelID}
}

func notFound(c enums.Collection, id string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s record '%s' not found", c, id)
}
