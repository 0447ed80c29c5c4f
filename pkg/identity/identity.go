// Package identity carries the authenticated session identity.
package identity

// Role distinguishes the two Safe Stay account types.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
)

// Identity is the signed-in user as the auth collaborator reports it.
// It is read-only to the chat core: created at login, discarded at logout.
type Identity struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
	NationalID    string `json:"nationalID,omitempty"`
	ApartmentName string `json:"apartmentName"`
}

// IsLandlord reports whether the session user manages the apartment.
func (id Identity) IsLandlord() bool {
	return id.Role == RoleLandlord
}

// Room returns the presence scope for the stream session.
func (id Identity) Room() string {
	return id.ApartmentName
}
