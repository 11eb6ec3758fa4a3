package engine

import (
	"strings"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

// Personalize substitutes contact fields into {placeholder} tokens.
func Personalize(template string, c *model.Contact) string {
	if c == nil {
		return template
	}
	msg := template
	msg = strings.ReplaceAll(msg, "{first_name}", c.FirstName)
	msg = strings.ReplaceAll(msg, "{last_name}", c.LastName)
	msg = strings.ReplaceAll(msg, "{company}", c.Company)
	msg = strings.ReplaceAll(msg, "{email}", c.Email)
	return msg
}
