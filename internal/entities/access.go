package entities

import (
	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
)

// Principal is the caller of an entity operation. The zero value is anonymous.
type Principal struct {
	UserID   string
	Name     string
	Role     enums.Role
	HostelID string
}

func (p Principal) anonymous() bool { return p.UserID == "" }

func (p Principal) isMaster() bool { return p.Role == enums.RoleMasterAdmin }

func (p Principal) has(roles ...enums.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type operation int

const (
	opRead operation = iota
	opCreate
	opUpdate
	opDelete
)

var (
	staffWriters = []enums.Role{enums.RoleMasterAdmin, enums.RoleAdmin, enums.RoleReceptionist}
	userAdmins   = []enums.Role{enums.RoleMasterAdmin, enums.RoleAdmin}
)

// authorize applies the role write table. Reads only require a login, except
// for users and hostel requests.
func authorize(p Principal, c enums.Collection, op operation) error {
	if c == enums.CollectionHostelRequests && op == opCreate {
		return nil
	}
	if p.anonymous() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !p.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}

	var allowed []enums.Role
	switch {
	case op == opRead:
		switch c {
		case enums.CollectionUsers:
			allowed = userAdmins
		case enums.CollectionHostelRequests:
			allowed = []enums.Role{enums.RoleMasterAdmin}
		default:
			return nil
		}
	case c == enums.CollectionHostels, c == enums.CollectionHostelRequests:
		allowed = []enums.Role{enums.RoleMasterAdmin}
	case c == enums.CollectionUsers:
		allowed = userAdmins
	case op == opCreate && (c == enums.CollectionComplaints || c == enums.CollectionCheckoutRequests || c == enums.CollectionSupportTickets):
		return nil
	default:
		allowed = staffWriters
	}
	if p.has(allowed...) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot modify %s", p.Role, c)
}

// partition returns the hostel a principal is confined to, empty for master_admin.
func partition(p Principal) string {
	if p.isMaster() {
		return ""
	}
	return p.HostelID
}

// visible reports whether rec of collection c lies inside the principal's hostel.
func visible(p Principal, c enums.Collection, rec docstore.Record) bool {
	hostelID := partition(p)
	if hostelID == "" {
		return true
	}
	if c == enums.CollectionHostels {
		return rec.ID() == hostelID
	}
	return rec.HostelID() == hostelID
}

// scoped reports whether records of c carry a hostelId the principal is bound to.
func scoped(c enums.Collection) bool {
	return c.IsHostelScoped() || c == enums.CollectionUsers
}
