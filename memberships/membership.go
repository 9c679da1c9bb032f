// Package memberships links users to the companies they may work in.
//
// A (user, company) pair owns at most one row for its whole life: unlinking
// soft-deletes it and linking again restores the same row, so the row id is stable.
package memberships

import "time"

type Membership struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	CompanyID int64      `json:"companyId"`
	CreatedBy int64      `json:"createdBy"`
	Admin     bool       `json:"admin"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (m *Membership) Active() bool {
	return m.DeletedAt == nil
}

// Choice is a company the user can select for their session.
type Choice struct {
	CompanyID   int64  `json:"companyId"`
	CompanyName string `json:"companyName"`
	Admin       bool   `json:"admin"`
}
