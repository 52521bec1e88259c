package models

import (
	"github.com/fiscaldesk/backend/internal/domain/partner"
)

// CustomerModel is the persistence model for customers
type CustomerModel struct {
	OrgAggregateModel
	Name          string `gorm:"type:varchar(200);not null;index"`
	TaxID         string `gorm:"type:varchar(50);not null"`
	FiscalAddress string `gorm:"type:text;not null"`
	Email         string `gorm:"type:varchar(200)"`
	Phone         string `gorm:"type:varchar(50)"`
}

// TableName specifies the table name
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *CustomerModel) ToDomain() *partner.Customer {
	c := &partner.Customer{
		Name:          m.Name,
		TaxID:         m.TaxID,
		FiscalAddress: m.FiscalAddress,
		Email:         m.Email,
		Phone:         m.Phone,
	}
	m.PopulateOrgAggregateRoot(&c.OrgAggregateRoot)
	return c
}

// CustomerModelFromDomain converts the domain aggregate to its persistence model
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{
		Name:          c.Name,
		TaxID:         c.TaxID,
		FiscalAddress: c.FiscalAddress,
		Email:         c.Email,
		Phone:         c.Phone,
	}
	m.FromDomainOrgAggregateRoot(c.OrgAggregateRoot)
	return m
}
