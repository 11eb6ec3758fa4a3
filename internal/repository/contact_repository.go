package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/model"
)

type ContactRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Contact, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]model.Contact, error)
	RemoveFromCampaign(ctx context.Context, campaignID, contactID int64) error
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, workspace_id, email, phone, profile_url, first_name, last_name, company`

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	var c model.Contact
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.WorkspaceID, &c.Email, &c.Phone, &c.ProfileURL, &c.FirstName, &c.LastName, &c.Company,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewContactNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]model.Contact, error) {
	query := `
        SELECT c.id, c.workspace_id, c.email, c.phone, c.profile_url, c.first_name, c.last_name, c.company
        FROM contacts c
        JOIN campaign_contacts cc ON cc.contact_id = c.id
        WHERE cc.campaign_id = $1
        ORDER BY c.id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Email, &c.Phone, &c.ProfileURL, &c.FirstName, &c.LastName, &c.Company); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) RemoveFromCampaign(ctx context.Context, campaignID, contactID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM campaign_contacts WHERE campaign_id=$1 AND contact_id=$2`,
		campaignID, contactID,
	)
	return err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
