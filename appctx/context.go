package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> utils).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyToken         = ContextKey("Token")
	ContextKeyBranch        = ContextKey("Branch")
	ContextKeyUsername      = ContextKey("Username")
	ContextKeyUserId        = ContextKey("UserId")
	ContextKeyUserRole      = ContextKey("UserRole")
	ContextKeyCorrelationId = ContextKey("CorrelationId")
)

// Branch identifies the installation a request runs under. Every row written
// locally is owned by BranchId; sync uses it to recognise its own writes.
type Branch struct {
	BranchId         string `json:"branch_id"`
	CompanyId        string `json:"company_id"`
	CompanyStateCode string `json:"company_state_code"`
	InvoicePrefix    string `json:"invoice_prefix"`
	LoanPrefix       string `json:"loan_prefix"`
}

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func GetBool(ctx context.Context, key ContextKey) (bool, bool) {
	v, ok := ctx.Value(key).(bool)
	return v, ok
}

func GetInt(ctx context.Context, key ContextKey) (int, bool) {
	v, ok := ctx.Value(key).(int)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

func WithBranch(ctx context.Context, b Branch) context.Context {
	return context.WithValue(ctx, ContextKeyBranch, b)
}

func GetBranch(ctx context.Context) (Branch, bool) {
	v, ok := ctx.Value(ContextKeyBranch).(Branch)
	return v, ok
}

// BranchId returns the branch id carried by ctx, or "" when none is set.
func BranchId(ctx context.Context) string {
	b, _ := GetBranch(ctx)
	return b.BranchId
}
