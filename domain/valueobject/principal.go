package valueobject

// Principal is the authenticated caller attached to a request.
// UserID is empty when the principal was built from embedded token claims.
type Principal struct {
	UserID  string      `json:"id,omitempty"`
	Email   string      `json:"email"`
	Name    string      `json:"name"`
	Picture string      `json:"picture,omitempty"`
	Source  SubjectKind `json:"source"`
}
