package valueobject

type Role string

const (
	RoleClient  Role = "client"
	RolePartner Role = "partner"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RolePartner, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
