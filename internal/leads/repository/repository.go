package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// leadColumns are written on every upsert. The natural key columns must
// stay in this list and are excluded from the update set.
var leadColumns = []string{
	"first_name", "last_name", "full_name", "email", "phone", "message",
	"city", "state", "county", "street_address", "zip_code",
	"property_id", "page_url", "wants_tour", "is_cash_buyer",
	"budget_min", "budget_max", "beds", "baths", "property_type",
	"timeframe", "contact_pref", "ms_on_page", "honeypot", "source",
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"gclid", "fbclid", "referrer", "user_agent", "ip",
	"tags", "score", "assigned_agent",
}

var naturalKeyColumns = map[string]bool{"email": true, "message": true, "property_id": true}

var upsertLeadQuery = buildUpsertQuery()

const crmStateColumns = `COALESCE(crm_provider, ''), COALESCE(crm_lead_id, ''), COALESCE(crm_status, ''), COALESCE(crm_error, '')`

const getCRMStateQuery = `SELECT ` + crmStateColumns + ` FROM leads WHERE id = $1`

const markCRMCreatedQuery = `
	UPDATE leads
	SET crm_provider = $2, crm_lead_id = $3, crm_status = 'created', crm_error = NULL, updated_at = now()
	WHERE id = $1`

// A failure never downgrades a row that already has a CRM id.
const markCRMFailedQuery = `
	UPDATE leads
	SET crm_provider = $2, crm_status = 'failed', crm_error = $3, updated_at = now()
	WHERE id = $1 AND crm_lead_id IS NULL`

const saveFollowupsQuery = `UPDATE leads SET followup_state = $2, updated_at = now() WHERE id = $1`

const leadSelectColumns = `
	id, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(full_name, ''), email,
	COALESCE(phone, ''), message, COALESCE(city, ''), COALESCE(state, ''), COALESCE(county, ''),
	property_id, COALESCE(page_url, ''), COALESCE(wants_tour, false), budget_max,
	COALESCE(timeframe, ''), COALESCE(source, ''), COALESCE(utm_source, ''), COALESCE(utm_medium, ''),
	COALESCE(utm_campaign, ''), COALESCE(referrer, ''), tags, score, assigned_agent`

const getLeadByIDQuery = `SELECT ` + leadSelectColumns + ` FROM leads WHERE id = $1`

// Timestamps share one fixed-width ISO format, so a byte-wise compare is a
// time compare.
const listDueFollowupsQuery = `
	SELECT ` + leadSelectColumns + `, followup_state
	FROM leads
	WHERE followup_state IS NOT NULL
		AND jsonb_array_length(COALESCE(followup_state->'scheduled', '[]'::jsonb)) > 0
		AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(followup_state->'scheduled') AS entry
			WHERE (entry->>'at') COLLATE "C" <= $1
		)
	ORDER BY created_at ASC
	LIMIT $2`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts the lead or updates the row sharing its natural key, and
// returns the row's CRM state so callers can skip a second CRM push.
func (r *Repository) Upsert(ctx context.Context, lead domain.Lead) (UpsertResult, error) {
	var (
		result UpsertResult
		status string
	)
	err := r.pool.QueryRow(ctx, upsertLeadQuery, upsertArgs(lead)...).Scan(
		&result.ID,
		&result.Inserted,
		&result.CRM.Provider,
		&result.CRM.LeadID,
		&status,
		&result.CRM.Error,
	)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert lead: %w", err)
	}
	result.CRM.Status = domain.CRMStatus(status)
	return result, nil
}

func (r *Repository) GetCRMState(ctx context.Context, id uuid.UUID) (domain.CRMState, error) {
	var (
		state  domain.CRMState
		status string
	)
	err := r.pool.QueryRow(ctx, getCRMStateQuery, id).Scan(&state.Provider, &state.LeadID, &status, &state.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CRMState{}, ErrNotFound
	}
	if err != nil {
		return domain.CRMState{}, err
	}
	state.Status = domain.CRMStatus(status)
	return state, nil
}

func (r *Repository) MarkCRMCreated(ctx context.Context, id uuid.UUID, provider, crmLeadID string) error {
	tag, err := r.pool.Exec(ctx, markCRMCreatedQuery, id, provider, crmLeadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkCRMFailed(ctx context.Context, id uuid.UUID, provider, message string) error {
	_, err := r.pool.Exec(ctx, markCRMFailedQuery, id, provider, message)
	return err
}

func (r *Repository) SaveFollowups(ctx context.Context, id uuid.UUID, schedule domain.FollowupSchedule) error {
	tag, err := r.pool.Exec(ctx, saveFollowupsQuery, id, schedule)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, getLeadByIDQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// ListDueFollowups returns leads with at least one scheduled reminder at or
// before dueBy, an ISO-8601 millisecond UTC timestamp.
func (r *Repository) ListDueFollowups(ctx context.Context, dueBy string, limit int) ([]FollowupRow, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, listDueFollowupsQuery, dueBy, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]FollowupRow, 0)
	for rows.Next() {
		var rawSchedule []byte
		lead, err := scanLead(rows, &rawSchedule)
		if err != nil {
			return nil, err
		}
		var schedule domain.FollowupSchedule
		if err := json.Unmarshal(rawSchedule, &schedule); err != nil {
			return nil, fmt.Errorf("decode followup_state for lead %s: %w", lead.ID, err)
		}
		items = append(items, FollowupRow{Lead: lead, Schedule: schedule})
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

func scanLead(row pgx.Row, extra ...any) (domain.Lead, error) {
	var (
		lead     domain.Lead
		rawAgent []byte
	)
	dest := []any{
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.FullName, &lead.Email,
		&lead.Phone, &lead.Message, &lead.City, &lead.State, &lead.County,
		&lead.PropertyID, &lead.PageURL, &lead.WantsTour, &lead.BudgetMax,
		&lead.Timeframe, &lead.Source, &lead.UTMSource, &lead.UTMMedium,
		&lead.UTMCampaign, &lead.Referrer, &lead.Tags, &lead.Score, &rawAgent,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Lead{}, err
	}
	if len(rawAgent) > 0 {
		var agent domain.AssignedAgent
		if err := json.Unmarshal(rawAgent, &agent); err != nil {
			return domain.Lead{}, fmt.Errorf("decode assigned_agent: %w", err)
		}
		lead.AssignedAgent = &agent
	}
	return lead, nil
}

func buildUpsertQuery() string {
	placeholders := make([]string, len(leadColumns))
	updates := make([]string, 0, len(leadColumns))
	for i, col := range leadColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if naturalKeyColumns[col] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	updates = append(updates, "updated_at = now()")

	return fmt.Sprintf(`
	INSERT INTO leads (%s)
	VALUES (%s)
	ON CONFLICT (email, message, property_id) DO UPDATE SET %s
	RETURNING id, (xmax = 0) AS inserted, %s`,
		strings.Join(leadColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
		crmStateColumns,
	)
}

// upsertArgs must stay aligned with leadColumns.
func upsertArgs(lead domain.Lead) []any {
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		nullable(lead.FirstName), nullable(lead.LastName), nullable(lead.FullName),
		lead.Email, nullable(lead.Phone), lead.Message,
		nullable(lead.City), nullable(lead.State), nullable(lead.County),
		nullable(lead.StreetAddress), nullable(lead.ZipCode),
		lead.PropertyID, nullable(lead.PageURL), lead.WantsTour, lead.IsCashBuyer,
		lead.BudgetMin, lead.BudgetMax, nullable(lead.Beds), nullable(lead.Baths), nullable(lead.PropertyType),
		nullable(lead.Timeframe), nullable(lead.ContactPreference), msOnPage(lead.TimeOnPageMS),
		nullable(lead.Company), nullable(lead.Source),
		nullable(lead.UTMSource), nullable(lead.UTMMedium), nullable(lead.UTMCampaign),
		nullable(lead.UTMTerm), nullable(lead.UTMContent),
		nullable(lead.Gclid), nullable(lead.Fbclid), nullable(lead.Referrer),
		nullable(lead.UserAgent), nullable(lead.IP),
		tags, lead.Score, lead.AssignedAgent,
	}
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func msOnPage(value *float64) *int64 {
	if value == nil {
		return nil
	}
	ms := int64(math.Round(*value))
	return &ms
}
