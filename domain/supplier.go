package domain

type Supplier struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	ContactPerson string `db:"contact_person" json:"contact_person"`
	Email         string `db:"email" json:"email"`
	Phone         string `db:"phone" json:"phone"`
	Address       string `db:"address" json:"address"`
	CreatedAt     string `db:"created_at" json:"created_at,omitempty"`
}
