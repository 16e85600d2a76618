package domain

// Actor is the attribution attached to every mutating call.
// It is accepted as given; nothing in the core authenticates it.
type Actor struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// UserID returns the actor id or "unknown"
func (a Actor) UserID() string {
	if a.ID == "" {
		return "unknown"
	}
	return a.ID
}

// Label returns the most human readable name available for the actor
func (a Actor) Label() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.FullName != "":
		return a.FullName
	case a.Email != "":
		return a.Email
	}
	return "Unknown User"
}

// IsZero reports whether no attribution was supplied
func (a Actor) IsZero() bool {
	return a == Actor{}
}
