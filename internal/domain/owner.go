package domain

// Owner is the minimal user record tickets are bound to. Read-only here.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
