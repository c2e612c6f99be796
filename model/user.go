package model

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	cpfPattern   = regexp.MustCompile(`^[0-9]{11}$`)
	statePattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// User is a bank customer. PasswordHash is never serialised.
type User struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CPF          string    `json:"cpf"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	BirthDate    string    `json:"birth_date,omitempty"`
	ZipCode      string    `json:"zip_code,omitempty"`
	Street       string    `json:"street,omitempty"`
	Number       string    `json:"number,omitempty"`
	Complement   string    `json:"complement,omitempty"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserWithAccounts is the registration response.
type UserWithAccounts struct {
	User     User      `json:"user"`
	Accounts []Account `json:"accounts"`
}

// Replay is the result of rebuilding an account's balances from its history.
type Replay struct {
	AccountID  string   `json:"account_id"`
	Computed   Balances `json:"computed"`
	Stored     Balances `json:"stored"`
	Entries    int      `json:"entries"`
	Consistent bool     `json:"consistent"`
}

// NewUser is the registration input. CPF may be sent with punctuation; it is
// stored as 11 digits.
type NewUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	CPF          string `json:"cpf"`
	Password     string `json:"password"`
	Phone        string `json:"phone,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
}

// Normalize trims every field, lower-cases the email and strips CPF
// punctuation.
func (n *NewUser) Normalize() {
	n.Name = strings.TrimSpace(n.Name)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	n.CPF = strings.NewReplacer(".", "", "-", "", " ", "").Replace(n.CPF)
	n.Phone = strings.TrimSpace(n.Phone)
	n.BirthDate = strings.TrimSpace(n.BirthDate)
	n.ZipCode = strings.TrimSpace(n.ZipCode)
	n.State = strings.ToUpper(strings.TrimSpace(n.State))
}

func (n NewUser) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&n.Email, validation.Required, validation.Match(emailPattern).Error("must be a valid email address")),
		validation.Field(&n.CPF, validation.Required, validation.Match(cpfPattern).Error("must have 11 digits")),
		validation.Field(&n.Password, validation.Required, validation.Length(MinPasswordLength, 72)),
		validation.Field(&n.BirthDate, validation.When(n.BirthDate != "", validation.Date("2006-01-02"))),
		validation.Field(&n.State, validation.When(n.State != "", validation.Match(statePattern).Error("must be a two letter code"))),
	)
}

// ToUser copies the profile fields. The password hash is set by the caller.
func (n NewUser) ToUser() *User {
	return &User{
		Name:         n.Name,
		Email:        n.Email,
		CPF:          n.CPF,
		Phone:        n.Phone,
		BirthDate:    n.BirthDate,
		ZipCode:      n.ZipCode,
		Street:       n.Street,
		Number:       n.Number,
		Complement:   n.Complement,
		Neighborhood: n.Neighborhood,
		City:         n.City,
		State:        n.State,
	}
}
