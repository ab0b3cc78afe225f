package member

import "time"

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"

	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusDeleted  = "DELETED"
)

// Member is both the club member directory entry and, for staff, the login
// identity. Debt is in whole pesos and only moves through sale creation,
// reversal and the debt-payment operation. The credit limit is advisory.
type Member struct {
	ID                  int        `db:"id" json:"id"`
	RUT                 string     `db:"rut" json:"rut"`
	FullName            string     `db:"full_name" json:"full_name"`
	Role                string     `db:"role" json:"role"`
	Type                string     `db:"type" json:"type"`
	Status              string     `db:"status" json:"status"`
	CurrentDebt         int64      `db:"current_debt" json:"current_debt"`
	CreditLimit         int64      `db:"credit_limit" json:"credit_limit"`
	MembershipExpiresAt *time.Time `db:"membership_expires_at" json:"membership_expires_at,omitempty"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// MembershipStatus derives ACTIVE/EXPIRED from the expiry instant; it is
// never stored.
func (m *Member) MembershipStatus(now time.Time) string {
	if m.MembershipExpiresAt == nil || m.MembershipExpiresAt.Before(now) {
		return "EXPIRED"
	}
	return "ACTIVE"
}

type CreateMemberRequest struct {
	RUT      string `json:"rut" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=ADMIN USER"`
	Type     string `json:"type" binding:"omitempty,oneof=CLIENTE SOCIO FUNDADOR"`
	Password string `json:"password"`
}

type UpdateMemberRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Role        string `json:"role" binding:"omitempty,oneof=ADMIN USER"`
	Type        string `json:"type" binding:"omitempty,oneof=CLIENTE SOCIO FUNDADOR"`
	CreditLimit int64  `json:"credit_limit" binding:"gte=0"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	RUT      string `json:"rut" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type PayDebtRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Method string `json:"method" binding:"required,oneof=CASH DEBIT TRANSFER"`
}

type PayMembershipRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Months int    `json:"months" binding:"required,gte=1"`
	Method string `json:"method" binding:"required,oneof=CASH DEBIT TRANSFER"`
}

// MemberWithMembership is the members-page projection.
type MemberWithMembership struct {
	Member
	Membership string `json:"membership_status"`
}
