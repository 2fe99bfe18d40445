package earthengine

import (
	"github.com/airbusgeo/ee-ingester/common"
)

const (
	roleOwner  = "roles/owner"
	roleWriter = "roles/editor"
	roleReader = "roles/viewer"

	allUsers = "allUsers"
)

func policyToACL(p policy) common.ACL {
	acl := common.ACL{}
	for _, b := range p.Bindings {
		switch b.Role {
		case roleOwner:
			acl.Owners = append(acl.Owners, b.Members...)
		case roleWriter:
			acl.Writers = append(acl.Writers, b.Members...)
		case roleReader:
			for _, m := range b.Members {
				if m == allUsers {
					acl.AllUsersCanRead = true
				} else {
					acl.Readers = append(acl.Readers, m)
				}
			}
		}
	}
	return acl
}

func aclToPolicy(acl common.ACL) policy {
	p := policy{}
	readers := append([]string{}, acl.Readers...)
	if acl.AllUsersCanRead {
		readers = append(readers, allUsers)
	}
	for _, b := range []struct {
		role    string
		members []string
	}{{roleOwner, acl.Owners}, {roleWriter, acl.Writers}, {roleReader, readers}} {
		if len(b.members) > 0 {
			p.Bindings = append(p.Bindings, binding{Role: b.role, Members: b.members})
		}
	}
	return p
}
