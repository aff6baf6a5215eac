package models

import "time"

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Pago"
	PaymentPending PaymentStatus = "Pendente"
	PaymentOverdue PaymentStatus = "Atrasado"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPaid, PaymentPending, PaymentOverdue:
		return true
	}
	return false
}

// Subscription is the monthly access period of a regular user.
type Subscription struct {
	StartDate     time.Time     `json:"startDate"`
	EndDate       time.Time     `json:"endDate"`
	MonthlyValue  float64       `json:"monthlyValue"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

type User struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	CPF            string        `json:"cpf"`
	YearOfBirth    int           `json:"yearOfBirth"`
	CredentialHash string        `json:"-"`
	IsAdmin        bool          `json:"isAdmin"`
	IsBlocked      bool          `json:"isBlocked"`
	Subscription   *Subscription `json:"subscription,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Session describes who is currently signed in.
type Session struct {
	Admin      bool   `json:"admin"`
	ActiveUser string `json:"activeUser,omitempty"`
}
