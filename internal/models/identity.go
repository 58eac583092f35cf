package models

// Role is the account kind carried in the bearer credential.
type Role string

const (
	RoleGuest   Role = "guest"
	RoleUser    Role = "user"
	RoleCompany Role = "company"
	RoleShop    Role = "shop"
	RoleAdmin   Role = "admin"
)

// Identity is the authenticated user as decoded from the credential.
type Identity struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	CollegeID string `json:"college,omitempty"`
	FullName  string `json:"fullName,omitempty"`
}

// Valid reports whether the identity can key a realtime connection.
func (i *Identity) Valid() bool {
	return i != nil && i.ID != ""
}
