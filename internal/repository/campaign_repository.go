package repository

import (
	"context"
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID int64, status model.CampaignStatus) error
	ListActive(ctx context.Context) ([]*model.Campaign, error)
	ListTemplates(ctx context.Context, campaignID int64) ([]model.StepTemplate, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, workspace_id, name, status, deployed_by_user, search_query, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &c.Status, &c.DeployedByUser,
		&c.SearchQuery, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (workspace_id, name, status, deployed_by_user, search_query, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		c.WorkspaceID, c.Name, c.Status, c.DeployedByUser, c.SearchQuery, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int64, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status='active' ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) ListTemplates(ctx context.Context, campaignID int64) ([]model.StepTemplate, error) {
	query := `
        SELECT id, campaign_id, step_index, channel, subject, content, day_offset
        FROM step_templates
        WHERE campaign_id=$1
        ORDER BY step_index
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []model.StepTemplate{}
	for rows.Next() {
		var t model.StepTemplate
		if err := rows.Scan(&t.ID, &t.CampaignID, &t.StepIndex, &t.Channel, &t.Subject, &t.Content, &t.DayOffset); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
