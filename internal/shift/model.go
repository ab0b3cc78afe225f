package shift

import "time"

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Shift is one cash drawer period. A single shift is OPEN at any time;
// expenses_total is a cached running sum, everything else is derived from
// sales at read time.
type Shift struct {
	ID            int        `db:"id" json:"id"`
	StaffID       *int       `db:"staff_id" json:"staff_id,omitempty"`
	StaffName     string     `db:"staff_name" json:"staff_name"`
	InitialCash   int64      `db:"initial_cash" json:"initial_cash"`
	ExpensesTotal int64      `db:"expenses_total" json:"expenses_total"`
	DeclaredCash  *int64     `db:"declared_cash" json:"declared_cash,omitempty"`
	Difference    *int64     `db:"difference" json:"difference,omitempty"`
	Status        string     `db:"status" json:"status"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	ClosedBy      *int       `db:"closed_by" json:"closed_by,omitempty"`
	OpenedAt      time.Time  `db:"opened_at" json:"opened_at"`
	ClosedAt      *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

type Expense struct {
	ID          int       `db:"id" json:"id"`
	ShiftID     int       `db:"shift_id" json:"shift_id"`
	Description string    `db:"description" json:"description"`
	Amount      int64     `db:"amount" json:"amount"`
	CreatedBy   *int      `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Totals is the live drawer state, recomputed from the ledger on every read
// so a crash can never leave a stale cash figure.
type Totals struct {
	SalesCash     int64 `json:"sales_cash"`
	SalesDebit    int64 `json:"sales_debit"`
	SalesTransfer int64 `json:"sales_transfer"`
	Expenses      int64 `json:"expenses"`
	SystemCash    int64 `json:"system_cash"`
}

type DebtorLine struct {
	UserName string `db:"user_name" json:"user_name"`
	Total    int64  `db:"total" json:"total"`
}

type MembershipLine struct {
	UserName string `db:"user_name" json:"user_name"`
	Months   int    `db:"months" json:"months"`
	Amount   int64  `db:"amount" json:"amount"`
}

// CloseReport is the reconciliation summary produced when a shift closes.
// Difference is informational; a short drawer still closes.
type CloseReport struct {
	Shift        Shift            `json:"shift"`
	Totals       Totals           `json:"totals"`
	DeclaredCash int64            `json:"declared_cash"`
	Difference   int64            `json:"difference"`
	Debtors      []DebtorLine     `json:"debtors"`
	Memberships  []MembershipLine `json:"memberships"`
	NewMembers   []string         `json:"new_members"`
}

type OpenShiftRequest struct {
	InitialCash int64  `json:"initial_cash" binding:"gte=0"`
	StaffName   string `json:"staff_name" binding:"required"`
}

type AddExpenseRequest struct {
	Description string `json:"description" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
}

type CloseShiftRequest struct {
	DeclaredCash int64  `json:"declared_cash" binding:"gte=0"`
	Notes        string `json:"notes"`
}

// CurrentShiftResponse is the open-shift payload with live totals attached.
type CurrentShiftResponse struct {
	Shift  Shift  `json:"shift"`
	Totals Totals `json:"totals"`
}
