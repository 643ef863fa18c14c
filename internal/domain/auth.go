package domain

// Identity is the verified caller bound to a request.
type Identity struct {
	UserID  int64
	Email   string
	Name    string
	TokenID string
}
