package model

type Contact struct {
	ID          int64  `db:"id" json:"id"`
	WorkspaceID string `db:"workspace_id" json:"workspace_id"`
	Email       string `db:"email" json:"email"`
	Phone       string `db:"phone" json:"phone"`
	ProfileURL  string `db:"profile_url" json:"profile_url"`
	FirstName   string `db:"first_name" json:"first_name"`
	LastName    string `db:"last_name" json:"last_name"`
	Company     string `db:"company" json:"company"`
}

// Recipient returns the contact attribute a channel delivers to, or "" when
// the contact is missing the required field.
func (c *Contact) Recipient(ch Channel) string {
	switch ch.RecipientField() {
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "profile_url":
		return c.ProfileURL
	}
	return ""
}
