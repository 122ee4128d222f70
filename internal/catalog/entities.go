package catalog

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"stockroom/m/domain"
	"stockroom/m/internal/tabular"
)

type (
	BrandStore    = Store[domain.Brand]
	CategoryStore = Store[domain.Category]
	SupplierStore = Store[domain.Supplier]
)

const describedSelect = `id, name, COALESCE(description, '') AS description, COALESCE(created_at, '') AS created_at`

func requireName(name *string) error {
	*name = strings.TrimSpace(*name)
	if *name == "" {
		return domain.Invalid("name is required")
	}
	return nil
}

func NewBrands(db *sqlx.DB) *BrandStore {
	return NewStore(db, Schema[domain.Brand]{
		Label:      "Brand",
		Table:      "brands",
		Key:        "name",
		KeyAliases: []string{"name", "brand", "brand_name"},
		Columns:    []string{"name", "description"},
		Select:     describedSelect,
		Header:     []string{"id", "name", "description", "created_at"},
		New:        func() domain.Brand { return domain.Brand{} },
		Named:      func(name string) domain.Brand { return domain.Brand{Name: name} },
		Validate:   func(b *domain.Brand) error { return requireName(&b.Name) },
		Apply: func(row tabular.Row, b *domain.Brand) error {
			b.Name = row.Get("name", "brand", "brand_name")
			if row.Has("description") {
				b.Description = row.Get("description")
			}
			return nil
		},
		Record: func(b domain.Brand) []string {
			return []string{tabular.FormatInt(b.ID), b.Name, b.Description, b.CreatedAt}
		},
	})
}

func NewCategories(db *sqlx.DB) *CategoryStore {
	return NewStore(db, Schema[domain.Category]{
		Label:      "Category",
		Table:      "categories",
		Key:        "name",
		KeyAliases: []string{"name", "category", "category_name"},
		Columns:    []string{"name", "description"},
		Select:     describedSelect,
		Header:     []string{"id", "name", "description", "created_at"},
		New:        func() domain.Category { return domain.Category{} },
		Named:      func(name string) domain.Category { return domain.Category{Name: name} },
		Validate:   func(c *domain.Category) error { return requireName(&c.Name) },
		Apply: func(row tabular.Row, c *domain.Category) error {
			c.Name = row.Get("name", "category", "category_name")
			if row.Has("description") {
				c.Description = row.Get("description")
			}
			return nil
		},
		Record: func(c domain.Category) []string {
			return []string{tabular.FormatInt(c.ID), c.Name, c.Description, c.CreatedAt}
		},
	})
}

func NewSuppliers(db *sqlx.DB) *SupplierStore {
	return NewStore(db, Schema[domain.Supplier]{
		Label:      "Supplier",
		Table:      "suppliers",
		Key:        "name",
		KeyAliases: []string{"name", "supplier", "supplier_name"},
		Columns:    []string{"name", "contact_person", "email", "phone", "address"},
		Select: `id, name, COALESCE(contact_person, '') AS contact_person, COALESCE(email, '') AS email,
			COALESCE(phone, '') AS phone, COALESCE(address, '') AS address, COALESCE(created_at, '') AS created_at`,
		Header:   []string{"id", "name", "contact_person", "email", "phone", "address", "created_at"},
		New:      func() domain.Supplier { return domain.Supplier{} },
		Named:    func(name string) domain.Supplier { return domain.Supplier{Name: name} },
		Validate: func(s *domain.Supplier) error { return requireName(&s.Name) },
		Apply: func(row tabular.Row, s *domain.Supplier) error {
			s.Name = row.Get("name", "supplier", "supplier_name")
			if row.Has("contact_person", "contact") {
				s.ContactPerson = row.Get("contact_person", "contact")
			}
			if row.Has("email") {
				s.Email = row.Get("email")
			}
			if row.Has("phone") {
				s.Phone = row.Get("phone")
			}
			if row.Has("address") {
				s.Address = row.Get("address")
			}
			return nil
		},
		Record: func(s domain.Supplier) []string {
			return []string{tabular.FormatInt(s.ID), s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.CreatedAt}
		},
	})
}
