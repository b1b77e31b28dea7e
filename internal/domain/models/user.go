package models

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User покупатель или администратор; учётные данные хранятся во внешнем сервисе
type User struct {
	ID           string `json:"id" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Email        string `json:"email" bson:"email"`
	Phone        string `json:"phone,omitempty" bson:"phone,omitempty"`
	Role         string `json:"role" bson:"role"`
	AuthProvider string `json:"authProvider" bson:"authProvider"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
