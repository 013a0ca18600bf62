package vic

// Company is an entry of GET /companies/. Ticker is the identity key and the
// value ideas reference through CompanyID.
type Company struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
}

// CompanyID returns the identity key of a company.
func CompanyID(c Company) string { return c.Ticker }

// User is an entry of GET /users/.
type User struct {
	Username string `json:"username"`
	UserLink string `json:"user_link"`
}

// UserID returns the identity key of a user.
func UserID(u User) string { return u.Username }
