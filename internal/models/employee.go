package models

// Employee is an assignment target. Its lifecycle is managed by the employee
// profile subsystem; the campaign core only reads id, tenant and active.
type Employee struct {
	ID       int64  `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Active   bool   `db:"active" json:"active"`
}
