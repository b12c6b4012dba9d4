package memory

import (
	"context"
	"fmt"
	"time"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/masters"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "password"

// SeedDemo loads the same reference data and demo tenants as the SQL seeds.
func (s *Store) SeedDemo(ctx context.Context) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	for _, f := range []auth.Feature{
		{Key: "payroll", Name: "Payroll", Description: "Monthly payroll calculation"},
		{Key: "payslips", Name: "Payslips", Description: "Payslip distribution to staff"},
		{Key: "daily_metrics", Name: "Daily metrics", Description: "Daily sales and labour metrics"},
		{Key: "staff_management", Name: "Staff management", Description: "Staff records and grades"},
		{Key: "transportation_costs", Name: "Transportation costs", Description: "Commuting allowance tracking"},
		{Key: masters.Feature, Name: "Store masters", Description: "Store master records"},
	} {
		s.AddFeature(f)
	}

	const (
		acme   = "01J0ACME000000000000000000"
		globex = "01J0GLOBEX0000000000000000"
	)
	now := time.Now().UTC()
	s.AddCompany(auth.Company{ID: acme, Name: "Acme Foods", CreatedAt: now})
	s.AddCompany(auth.Company{ID: globex, Name: "Globex Retail", CreatedAt: now})

	for _, u := range []auth.User{
		{ID: "01J0USER0ADMIN000000000000", Email: "admin@acme.test", DisplayName: "System administrator",
			Roles: []auth.Role{auth.RoleSuperAdmin}},
		{ID: "01J0USER0ACMEADMIN00000000", TenantID: acme, Email: "owner@acme.test", DisplayName: "Acme owner",
			Roles: []auth.Role{auth.RoleCompanyAdmin}},
		{ID: "01J0USER0ACMESTAFF00000000", TenantID: acme, Email: "staff@acme.test", DisplayName: "Acme staff",
			Roles: []auth.Role{auth.RoleStaff}},
		{ID: "01J0USER0GLOBEXADMIN000000", TenantID: globex, Email: "owner@globex.test", DisplayName: "Globex owner",
			Roles: []auth.Role{auth.RoleCompanyAdmin}},
	} {
		u.PasswordHash = hash
		u.Status = auth.UserStatusActive
		u.CreatedAt, u.UpdatedAt = now, now
		s.AddUser(u)
	}

	for tenantID, keys := range map[string][]string{
		acme:   {"payroll", "payslips", masters.Feature},
		globex: {"payslips", masters.Feature},
	} {
		for _, key := range keys {
			if err := s.SetEnabled(ctx, tenantID, key, true); err != nil {
				return fmt.Errorf("enable %s for %s: %w", key, tenantID, err)
			}
		}
	}

	stores := s.Stores()
	for _, st := range []masters.Store{
		{ID: "01J0STORE0ACME0SHIBUYA0000", CompanyID: acme, Name: "Shibuya", Address: "1-1 Shibuya"},
		{ID: "01J0STORE0GLOBEX0UMEDA0000", CompanyID: globex, Name: "Umeda", Address: "2-2 Umeda"},
	} {
		st.CreatedAt, st.UpdatedAt = now, now
		if _, err := stores.Insert(ctx, st); err != nil {
			return fmt.Errorf("seed store %s: %w", st.Name, err)
		}
	}
	return nil
}
