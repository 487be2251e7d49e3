package repository

import (
	"strings"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
)

func guardDelete(tx *Tx, c enums.Collection, rec docstore.Record, opts DeleteOptions) error {
	switch c {
	case enums.CollectionRooms:
		return guardRoomDelete(tx, rec)
	case enums.CollectionComplaints:
		if !opts.AdminOverride {
			return pkgerrors.New(pkgerrors.CodeConflict, "complaints can only be removed through an administrative override")
		}
	}
	return nil
}

func guardRoomDelete(tx *Tx, room docstore.Record) error {
	refs := RoomOccupants(tx.List(enums.CollectionTenants, Filter{HostelID: room.HostelID()}), room)
	if len(refs) == 0 {
		return nil
	}

	names := make([]string, 0, len(refs))
	details := make([]map[string]any, 0, len(refs))
	for _, tenant := range refs {
		name := tenant.String("name")
		if name == "" {
			name = tenant.ID()
		}
		names = append(names, name)
		details = append(details, map[string]any{"id": tenant.ID(), "name": tenant.String("name")})
	}
	return pkgerrors.Newf(pkgerrors.CodeConflict,
		"room '%s' cannot be deleted while assigned to tenant(s): %s",
		room.String("roomNumber"), strings.Join(names, ", "),
	).WithDetails(map[string]any{"references": details})
}

// RoomOccupants returns the tenants pointing at room by number or by id.
func RoomOccupants(tenants []docstore.Record, room docstore.Record) []docstore.Record {
	number := strings.TrimSpace(room.String("roomNumber"))
	var out []docstore.Record
	for _, tenant := range tenants {
		if tenant.HostelID() != room.HostelID() {
			continue
		}
		if room.ID() != "" && tenant.String("roomId") == room.ID() {
			out = append(out, tenant)
			continue
		}
		if number == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(tenant.String("room")), number) ||
			strings.EqualFold(strings.TrimSpace(tenant.String("roomNumber")), number) {
			out = append(out, tenant)
		}
	}
	return out
}
