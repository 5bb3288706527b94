package domain

import "time"

// TechnicianStatus enumerates approval states for service providers.
// StatusAdmin is granted out-of-band and never reached through the
// registration flow.
type TechnicianStatus string

const (
	TechnicianStatusPending  TechnicianStatus = "pending"
	TechnicianStatusApproved TechnicianStatus = "approved"
	TechnicianStatusAdmin    TechnicianStatus = "admin"
)

// Technician models a registered service provider. ChatID is the unique
// Telegram channel identity.
type Technician struct {
	ID        int64
	ChatID    int64
	Name      string
	Phone     string
	Skills    string
	Status    TechnicianStatus
	CreatedAt time.Time
}

// Approved reports whether the technician may receive assignments.
func (t *Technician) Approved() bool {
	return t.Status == TechnicianStatusApproved
}
