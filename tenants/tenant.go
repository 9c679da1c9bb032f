package tenants

import (
	"strings"
	"time"
)

// DocumentType identifies the registry a company document belongs to.
type DocumentType string

const (
	DocumentCNPJ DocumentType = "cnpj"
	DocumentCPF  DocumentType = "cpf"
	DocumentVAT  DocumentType = "vat"
)

// Company is a tenant: the unit of data isolation for business records.
// (DocumentType, Document) is unique among companies.
type Company struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	DocumentType DocumentType `json:"documentType"`
	Document     string       `json:"document"`
	Version      int64        `json:"version"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	DeletedAt    *time.Time   `json:"deletedAt,omitempty"`
}

func (c *Company) Deleted() bool {
	return c.DeletedAt != nil
}

// NormaliseDocument strips punctuation and whitespace so "12.345/0001-90" and
// "123450001 90" collide.
func NormaliseDocument(document string) string {
	var sb strings.Builder
	for _, r := range document {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			sb.WriteRune(r)
		}
	}
	return strings.ToUpper(sb.String())
}
