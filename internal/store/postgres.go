package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY,
	company           TEXT NOT NULL,
	street            TEXT NOT NULL DEFAULT '',
	postal_code       TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	secondary_phone   TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	industry          TEXT NOT NULL DEFAULT '',
	notes             TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'new',
	pool_status       TEXT NOT NULL DEFAULT 'in_pool',
	assigned_to_name  TEXT NOT NULL DEFAULT '',
	assigned_to_email TEXT NOT NULL DEFAULT '',
	calendar_link     TEXT NOT NULL DEFAULT '',
	area_id           TEXT,
	division          TEXT NOT NULL DEFAULT '',
	previous_employee TEXT NOT NULL DEFAULT '',
	archive_category  TEXT,
	source            TEXT NOT NULL DEFAULT '',
	lat               DOUBLE PRECISION,
	lon               DOUBLE PRECISION,
	verified          BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS employees (
	email         TEXT PRIMARY KEY,
	full_name     TEXT NOT NULL,
	division      TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'staff',
	status        TEXT NOT NULL DEFAULT 'active',
	calendar_link TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS areas (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	city    TEXT NOT NULL DEFAULT '',
	north   DOUBLE PRECISION NOT NULL,
	south   DOUBLE PRECISION NOT NULL,
	east    DOUBLE PRECISION NOT NULL,
	west    DOUBLE PRECISION NOT NULL,
	streets JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	street       TEXT NOT NULL,
	house_number TEXT NOT NULL DEFAULT '',
	postal_code  TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	lat          DOUBLE PRECISION NOT NULL,
	lon          DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (street, house_number, postal_code, city)
);

CREATE INDEX IF NOT EXISTS idx_leads_pool ON leads(division, pool_status);
CREATE INDEX IF NOT EXISTS idx_leads_assignee ON leads(assigned_to_email);
CREATE INDEX IF NOT EXISTS idx_geocode_lookup ON geocode_cache(street, house_number, city);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgInsertLead = `INSERT INTO leads (` + leadColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	prepared := prepareLead(lead)
	if _, err := s.pool.Exec(ctx, pgInsertLead, leadArgs(prepared)...); err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &prepared, nil
}

func (s *PostgresStore) BulkCreateLeads(ctx context.Context, leads []model.Lead) (int, error) {
	for i, lead := range leads {
		if _, err := s.pool.Exec(ctx, pgInsertLead, leadArgs(prepareLead(lead))...); err != nil {
			return i, eris.Wrapf(err, "postgres: bulk insert lead %q", lead.Company)
		}
	}
	return len(leads), nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Division != "" {
		query += ` AND division = ` + arg(filter.Division)
	}
	if filter.PoolStatus != "" {
		query += ` AND pool_status = ` + arg(string(filter.PoolStatus))
	}
	if filter.AssignedToEmail != "" {
		query += ` AND assigned_to_email = ` + arg(filter.AssignedToEmail)
	}
	if filter.City != "" {
		query += ` AND lower(city) = lower(` + arg(filter.City) + `)`
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanPgLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func scanPgLead(rows pgx.Rows) (*model.Lead, error) {
	var (
		l            model.Lead
		areaID       *string
		archive      *string
		lat, lon     *float64
		status, pool string
	)
	if err := rows.Scan(
		&l.ID, &l.Company, &l.Street, &l.PostalCode, &l.City, &l.Phone, &l.SecondaryPhone,
		&l.Email, &l.Website, &l.Industry, &l.Notes, &status, &pool,
		&l.AssignedToName, &l.AssignedToEmail, &l.CalendarLink, &areaID, &l.Division,
		&l.PreviousEmployee, &archive, &l.Source, &lat, &lon, &l.Verified,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}
	l.Status = model.LeadStatus(status)
	l.PoolStatus = model.PoolStatus(pool)
	l.AreaID = areaID
	if archive != nil {
		cat := model.ArchiveCategory(*archive)
		l.ArchiveCategory = &cat
	}
	if lat != nil && lon != nil {
		l.Coordinates = &model.Coordinates{Lat: *lat, Lon: *lon}
	}
	return &l, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, id string, patch LeadPatch) error {
	sets, args := patchClauses(patch, "?")
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := renumber(`UPDATE leads SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: lead %s not found", id)
	}
	return nil
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: lead %s not found", id)
	}
	return nil
}

// AssignLead performs the conditional pool→assigned transition; the
// pool_status predicate makes concurrent assignment of one lead impossible.
func (s *PostgresStore) AssignLead(ctx context.Context, leadID string, emp model.Employee) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads
		 SET pool_status = $1, assigned_to_name = $2, assigned_to_email = $3, calendar_link = $4, updated_at = now()
		 WHERE id = $5 AND pool_status = $6`,
		string(model.PoolStatusAssigned), emp.FullName, emp.Email, emp.CalendarLink,
		leadID, string(model.PoolStatusInPool),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: assign lead %s", leadID)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error) {
	query := `SELECT email, full_name, division, role, status, calendar_link FROM employees WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Division != "" {
		query += ` AND division = ` + arg(filter.Division)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Role != "" {
		query += ` AND role = ` + arg(string(filter.Role))
	}
	query += ` ORDER BY email`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list employees")
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		var e model.Employee
		var role, status string
		if err := rows.Scan(&e.Email, &e.FullName, &e.Division, &role, &status, &e.CalendarLink); err != nil {
			return nil, eris.Wrap(err, "postgres: scan employee")
		}
		e.Role = model.EmployeeRole(role)
		e.Status = model.EmployeeStatus(status)
		employees = append(employees, e)
	}
	return employees, eris.Wrap(rows.Err(), "postgres: iterate employees")
}

func (s *PostgresStore) UpsertEmployee(ctx context.Context, emp model.Employee) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO employees (email, full_name, division, role, status, calendar_link)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			division = EXCLUDED.division,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			calendar_link = EXCLUDED.calendar_link`,
		emp.Email, emp.FullName, emp.Division, string(emp.Role), string(emp.Status), emp.CalendarLink,
	)
	return eris.Wrapf(err, "postgres: upsert employee %s", emp.Email)
}

func (s *PostgresStore) ListAreas(ctx context.Context) ([]model.Area, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, city, north, south, east, west, streets FROM areas ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list areas")
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.ID, &a.Name, &a.City,
			&a.Bounds.North, &a.Bounds.South, &a.Bounds.East, &a.Bounds.West, &a.Streets); err != nil {
			return nil, eris.Wrap(err, "postgres: scan area")
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "postgres: iterate areas")
}

func (s *PostgresStore) CreateArea(ctx context.Context, area model.Area) (*model.Area, error) {
	if area.ID == "" {
		area.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO areas (id, name, city, north, south, east, west, streets)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		area.ID, area.Name, area.City,
		area.Bounds.North, area.Bounds.South, area.Bounds.East, area.Bounds.West, area.Streets,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert area")
	}
	return &area, nil
}

func (s *PostgresStore) GetGeocodeEntry(ctx context.Context, street, houseNumber, city string) (*model.GeocodeCacheEntry, error) {
	var e model.GeocodeCacheEntry
	err := s.pool.QueryRow(ctx,
		`SELECT street, house_number, postal_code, city, lat, lon
		 FROM geocode_cache WHERE street = $1 AND house_number = $2 AND city = $3 LIMIT 1`,
		street, houseNumber, city,
	).Scan(&e.Street, &e.HouseNumber, &e.PostalCode, &e.City, &e.Lat, &e.Lon)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get geocode entry")
	}
	return &e, nil
}

func (s *PostgresStore) UpsertGeocodeEntry(ctx context.Context, entry model.GeocodeCacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO geocode_cache (street, house_number, postal_code, city, lat, lon)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (street, house_number, postal_code, city) DO UPDATE SET
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon`,
		entry.Street, entry.HouseNumber, entry.PostalCode, entry.City, entry.Lat, entry.Lon,
	)
	return eris.Wrap(err, "postgres: upsert geocode entry")
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// renumber converts ?-style placeholders to $1..$n in order.
func renumber(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
