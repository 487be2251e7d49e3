package provisioning

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/security"
)

const (
	maxEmailSuffix        = 1000
	defaultPasswordLength = 12
)

// Credentials are returned once to the caller that triggered provisioning.
// They are never stored or logged.
type Credentials struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AccountInput describes the companion user to create.
type AccountInput struct {
	Name   string
	Phone  string
	Role   enums.Role
	Hostel docstore.Record
}

// ProvisionerParams configure a Provisioner.
type ProvisionerParams struct {
	Config   config.ProvisioningConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
}

// Provisioner creates login accounts inside repository transactions.
type Provisioner struct {
	cfg      config.ProvisioningConfig
	password config.PasswordConfig
	logg     *logger.Logger
}

// NewProvisioner validates params.
func NewProvisioner(params ProvisionerParams) (*Provisioner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.PasswordLength <= 0 {
		cfg.PasswordLength = defaultPasswordLength
	}
	return &Provisioner{cfg: cfg, password: params.Password, logg: params.Logger}, nil
}

// Config exposes the provisioning settings.
func (p *Provisioner) Config() config.ProvisioningConfig {
	return p.cfg
}

// CreateAccount inserts a user with a generated login and temporary password.
// The transaction must hold the users collection.
func (p *Provisioner) CreateAccount(ctx context.Context, tx *repository.Tx, input AccountInput) (docstore.Record, *Credentials, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required to provision an account")
	}
	if !input.Role.IsValid() {
		return nil, nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", input.Role)
	}

	domain := HostelDomain(input.Hostel, p.cfg.DomainSuffix)
	email, err := uniqueEmail(tx, LocalPart(input.Name), domain)
	if err != nil {
		return nil, nil, err
	}

	password, err := security.GenerateTempPassword(p.cfg.PasswordLength)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(password, p.password)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := tx.Insert(enums.CollectionUsers, docstore.Record{
		"name":                strings.TrimSpace(input.Name),
		"email":               email,
		"phone":               input.Phone,
		"role":                input.Role.String(),
		"password":            hash,
		"hostelId":            input.Hostel.ID(),
		"hostelName":          input.Hostel.String("name"),
		"status":              "active",
		"failedLoginAttempts": 0,
		"isLocked":            false,
		"mustChangePassword":  true,
	})
	if err != nil {
		return nil, nil, err
	}

	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"user_id":   user.ID(),
		"email":     email,
		"role":      input.Role.String(),
		"hostel_id": input.Hostel.ID(),
	}), "account credentials issued")

	delete(user, "password")
	return user, &Credentials{UserID: user.ID(), Email: email, Password: password, Role: input.Role.String()}, nil
}

// ProvisionTenant inserts tenant and, unless it already links a user, a
// companion tenant account. The transaction must hold hostels, tenants and users.
func (p *Provisioner) ProvisionTenant(ctx context.Context, tx *repository.Tx, tenant docstore.Record) (docstore.Record, *Credentials, error) {
	return p.provisionMember(ctx, tx, enums.CollectionTenants, tenant, enums.RoleTenant)
}

// ProvisionStaff inserts a staff member with a receptionist or staff account.
func (p *Provisioner) ProvisionStaff(ctx context.Context, tx *repository.Tx, staff docstore.Record) (docstore.Record, *Credentials, error) {
	role := enums.RoleStaff
	if strings.EqualFold(strings.TrimSpace(staff.String("role")), enums.RoleReceptionist.String()) {
		role = enums.RoleReceptionist
	}
	return p.provisionMember(ctx, tx, enums.CollectionStaff, staff, role)
}

func (p *Provisioner) provisionMember(ctx context.Context, tx *repository.Tx, c enums.Collection, member docstore.Record, role enums.Role) (docstore.Record, *Credentials, error) {
	hostelID := member.HostelID()
	if hostelID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "hostelId is required")
	}
	hostel, err := tx.Get(enums.CollectionHostels, hostelID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil, pkgerrors.Newf(pkgerrors.CodeValidation, "hostel '%s' does not exist", hostelID)
		}
		return nil, nil, err
	}

	// uniqueness of the member itself is checked before any account exists
	if err := tx.CheckUnique(c, member); err != nil {
		return nil, nil, err
	}

	var creds *Credentials
	if linked := member.String("userId"); linked != "" {
		if _, err := tx.Get(enums.CollectionUsers, linked); err != nil {
			return nil, nil, pkgerrors.Newf(pkgerrors.CodeValidation, "user '%s' does not exist", linked)
		}
	} else {
		user, issued, err := p.CreateAccount(ctx, tx, AccountInput{
			Name:   member.String("name"),
			Phone:  member.String("phone"),
			Role:   role,
			Hostel: hostel,
		})
		if err != nil {
			return nil, nil, err
		}
		member = member.Clone()
		member["userId"] = user.ID()
		creds = issued
	}

	created, err := tx.Insert(c, member)
	if err != nil {
		return nil, nil, err
	}
	return created, creds, nil
}

func uniqueEmail(tx *repository.Tx, local, domain string) (string, error) {
	for n := 0; n < maxEmailSuffix; n++ {
		candidate := local + "@" + domain
		if n > 0 {
			candidate = fmt.Sprintf("%s%d@%s", local, n, domain)
		}
		_, taken := tx.Find(enums.CollectionUsers, func(rec docstore.Record) bool {
			return strings.EqualFold(rec.String("email"), candidate)
		})
		if !taken {
			return candidate, nil
		}
	}
	return "", pkgerrors.Newf(pkgerrors.CodeConflict, "no free login email for %s@%s", local, domain)
}
