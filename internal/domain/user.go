package domain

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
	RoleStaff    UserRole = "staff"

	// RoleGateway is the payment gateway acting through its callback.
	RoleGateway UserRole = "payment_gateway"
)

// Actor is the caller of a command, resolved by the transport from the access token.
// Locale travels with it so notification text never depends on ambient state.
type Actor struct {
	ID     int64
	Role   UserRole
	Locale string
}

func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }
func (a Actor) IsCustomer() bool { return a.Role == RoleCustomer }
func (a Actor) IsGateway() bool  { return a.Role == RoleGateway }

// GatewayActor is the actor used for payment gateway callbacks.
func GatewayActor() Actor { return Actor{Role: RoleGateway} }
