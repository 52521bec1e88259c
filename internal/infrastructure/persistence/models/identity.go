package models

import (
	"time"

	"github.com/fiscaldesk/backend/internal/domain/identity"
)

// UserModel is the persistence model for users
type UserModel struct {
	OrgAggregateModel
	Username     string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email        string     `gorm:"type:varchar(200)"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	DisplayName  string     `gorm:"type:varchar(200)"`
	Role         string     `gorm:"type:varchar(20);not null"`
	IBAN         string     `gorm:"type:varchar(64)"`
	TaxID        string     `gorm:"type:varchar(50)"`
	LastLoginAt  *time.Time
}

// TableName specifies the table name
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		DisplayName:  m.DisplayName,
		Role:         identity.UserRole(m.Role),
		IBAN:         m.IBAN,
		TaxID:        m.TaxID,
		LastLoginAt:  m.LastLoginAt,
	}
	m.PopulateOrgAggregateRoot(&u.OrgAggregateRoot)
	return u
}

// UserModelFromDomain converts the domain aggregate to its persistence model
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Role:         string(u.Role),
		IBAN:         u.IBAN,
		TaxID:        u.TaxID,
		LastLoginAt:  u.LastLoginAt,
	}
	m.FromDomainOrgAggregateRoot(u.OrgAggregateRoot)
	return m
}

// OrganizationModel is the persistence model for organizations
type OrganizationModel struct {
	AggregateModel
	Name      string `gorm:"type:varchar(200);not null"`
	LegalName string `gorm:"type:varchar(200)"`
	TaxID     string `gorm:"type:varchar(50)"`
	Address   string `gorm:"type:text"`
}

// TableName specifies the table name
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *OrganizationModel) ToDomain() *identity.Organization {
	o := &identity.Organization{
		Name:      m.Name,
		LegalName: m.LegalName,
		TaxID:     m.TaxID,
		Address:   m.Address,
	}
	m.PopulateAggregateRoot(&o.BaseAggregateRoot)
	return o
}

// OrganizationModelFromDomain converts the domain aggregate to its persistence model
func OrganizationModelFromDomain(o *identity.Organization) *OrganizationModel {
	m := &OrganizationModel{
		Name:      o.Name,
		LegalName: o.LegalName,
		TaxID:     o.TaxID,
		Address:   o.Address,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	return m
}
