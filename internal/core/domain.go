package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Date is a calendar date. The time of day is always midnight UTC.
	Date struct {
		time.Time
	}

	// User belongs to at most one group. GroupID is nil for users that
	// have not joined a group yet.
	User struct {
		ID         int64  `json:"id"`
		ExternalID string `json:"externalId"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		GroupID    *int64 `json:"groupId,omitempty"`
	}

	// Group is a trip or family. Membership is a back-reference from User.
	Group struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Goal is a shared savings target owned by exactly one group.
	Goal struct {
		ID      int64           `json:"id"`
		Name    string          `json:"name"`
		Target  decimal.Decimal `json:"targetAmount"`
		Current decimal.Decimal `json:"currentAmount"`
		GroupID int64           `json:"groupId"`
	}

	// Transaction is a single ledger record. Amount is signed: negative
	// for expenses, positive for contributions.
	Transaction struct {
		ID          int64           `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		UserID      int64           `json:"userId"`
	}
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ProgressPercentage returns how far along the goal is, in percent.
// A zero target yields 0 rather than a division fault.
func (g Goal) ProgressPercentage() decimal.Decimal {
	if g.Target.IsZero() {
		return decimal.Zero
	}
	return g.Current.Div(g.Target).Mul(decimal.NewFromInt(100))
}

func (g Goal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return NewValidationError("name", "empty goal name")
	}
	if !g.Target.IsPositive() {
		return NewValidationError("targetAmount", "target must be positive")
	}
	if g.Current.IsNegative() {
		return NewValidationError("currentAmount", "current amount cannot be negative")
	}
	return nil
}

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Name)) == 0 {
		return NewValidationError("name", "empty user name")
	}
	return nil
}

func (g Group) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return NewValidationError("name", "empty group name")
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Amount.IsZero() {
		return NewValidationError("amount", "missing or zero amount")
	}
	if t.UserID == 0 {
		return NewValidationError("userId", "missing owning user")
	}
	if len(t.Description) > 200 {
		return NewValidationError("description", "description too long (max 200 characters)")
	}
	return nil
}
