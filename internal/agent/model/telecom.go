package model

// User mirrors the account-data backend's user resource (fields the router reads).
type User struct {
	ID               int     `json:"id"`
	CustomerID       string  `json:"customer_id"`
	PhoneNumber      string  `json:"phone_number"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email,omitempty"`
	CurrentPackageID string  `json:"current_package_id"`
	PaymentStatus    string  `json:"payment_status,omitempty"`
	Balance          float64 `json:"balance,omitempty"`
	City             string  `json:"city,omitempty"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Package struct {
	PackageID    string   `json:"package_id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	DataLimitGB  float64  `json:"data_limit_gb"`
	VoiceMinutes int      `json:"voice_minutes"`
	SMSCount     int      `json:"sms_count"`
	Features     []string `json:"features,omitempty"`
	IsActive     bool     `json:"is_active"`
}

// TicketRequest is the body of a support ticket creation.
type TicketRequest struct {
	TicketID    string `json:"ticket_id"`
	UserID      int    `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IssueType   string `json:"issue_type"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}
