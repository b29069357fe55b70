package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	lat               REAL,
	lon               REAL,
	verified          INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
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
	north   REAL NOT NULL,
	south   REAL NOT NULL,
	east    REAL NOT NULL,
	west    REAL NOT NULL,
	streets TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	street       TEXT NOT NULL,
	house_number TEXT NOT NULL DEFAULT '',
	postal_code  TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	lat          REAL NOT NULL,
	lon          REAL NOT NULL,
	PRIMARY KEY (street, house_number, postal_code, city)
);

CREATE INDEX IF NOT EXISTS idx_leads_pool ON leads(division, pool_status);
CREATE INDEX IF NOT EXISTS idx_leads_assignee ON leads(assigned_to_email);
CREATE INDEX IF NOT EXISTS idx_geocode_lookup ON geocode_cache(street, house_number, city);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `id, company, street, postal_code, city, phone, secondary_phone, email,
	website, industry, notes, status, pool_status, assigned_to_name, assigned_to_email,
	calendar_link, area_id, division, previous_employee, archive_category, source,
	lat, lon, verified, created_at, updated_at`

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	prepared := prepareLead(lead)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		leadArgs(prepared)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &prepared, nil
}

func (s *SQLiteStore) BulkCreateLeads(ctx context.Context, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk insert")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, lead := range leads {
		if _, err := stmt.ExecContext(ctx, leadArgs(prepareLead(lead))...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk insert lead %q", lead.Company)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return len(leads), nil
}

// prepareLead fills in identity and timestamps for a new row.
func prepareLead(lead model.Lead) model.Lead {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	return lead
}

func leadArgs(l model.Lead) []any {
	var lat, lon any
	if l.Coordinates != nil {
		lat, lon = l.Coordinates.Lat, l.Coordinates.Lon
	}
	var archive any
	if l.ArchiveCategory != nil {
		archive = string(*l.ArchiveCategory)
	}
	var areaID any
	if l.AreaID != nil {
		areaID = *l.AreaID
	}
	return []any{
		l.ID, l.Company, l.Street, l.PostalCode, l.City, l.Phone, l.SecondaryPhone, l.Email,
		l.Website, l.Industry, l.Notes, string(l.Status), string(l.PoolStatus),
		l.AssignedToName, l.AssignedToEmail, l.CalendarLink, areaID, l.Division,
		l.PreviousEmployee, archive, l.Source, lat, lon, l.Verified, l.CreatedAt, l.UpdatedAt,
	}
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Division != "" {
		query += ` AND division = ?`
		args = append(args, filter.Division)
	}
	if filter.PoolStatus != "" {
		query += ` AND pool_status = ?`
		args = append(args, string(filter.PoolStatus))
	}
	if filter.AssignedToEmail != "" {
		query += ` AND assigned_to_email = ?`
		args = append(args, filter.AssignedToEmail)
	}
	if filter.City != "" {
		query += ` AND city = ? COLLATE NOCASE`
		args = append(args, filter.City)
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func scanLead(rows *sql.Rows) (*model.Lead, error) {
	var (
		l            model.Lead
		areaID       sql.NullString
		archive      sql.NullString
		lat, lon     sql.NullFloat64
		status, pool string
	)
	if err := rows.Scan(
		&l.ID, &l.Company, &l.Street, &l.PostalCode, &l.City, &l.Phone, &l.SecondaryPhone,
		&l.Email, &l.Website, &l.Industry, &l.Notes, &status, &pool,
		&l.AssignedToName, &l.AssignedToEmail, &l.CalendarLink, &areaID, &l.Division,
		&l.PreviousEmployee, &archive, &l.Source, &lat, &lon, &l.Verified,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}
	l.Status = model.LeadStatus(status)
	l.PoolStatus = model.PoolStatus(pool)
	if areaID.Valid {
		l.AreaID = &areaID.String
	}
	if archive.Valid {
		cat := model.ArchiveCategory(archive.String)
		l.ArchiveCategory = &cat
	}
	if lat.Valid && lon.Valid {
		l.Coordinates = &model.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}
	return &l, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, id string, patch LeadPatch) error {
	sets, args := patchClauses(patch, "?")
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	return checkAffected(res, id)
}

// patchClauses renders a LeadPatch into SET fragments. placeholder is "?" for
// SQLite; the Postgres driver renumbers afterwards.
func patchClauses(patch LeadPatch, placeholder string) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = "+placeholder)
		args = append(args, v)
	}

	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.PoolStatus != nil {
		add("pool_status", string(*patch.PoolStatus))
	}
	if patch.AssignedToName != nil {
		add("assigned_to_name", *patch.AssignedToName)
	}
	if patch.AssignedToEmail != nil {
		add("assigned_to_email", *patch.AssignedToEmail)
	}
	if patch.CalendarLink != nil {
		add("calendar_link", *patch.CalendarLink)
	}
	if patch.AreaID != nil {
		add("area_id", *patch.AreaID)
	}
	if patch.PreviousEmployee != nil {
		add("previous_employee", *patch.PreviousEmployee)
	}
	if patch.ArchiveCategory != nil {
		add("archive_category", string(*patch.ArchiveCategory))
	}
	if patch.Coordinates != nil {
		add("lat", patch.Coordinates.Lat)
		add("lon", patch.Coordinates.Lon)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Verified != nil {
		add("verified", *patch.Verified)
	}
	return sets, args
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %s", id)
	}
	return checkAffected(res, id)
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: lead %s not found", id)
	}
	return nil
}

// AssignLead performs the conditional pool→assigned transition. The WHERE
// clause on pool_status is the whole concurrency guarantee: if another
// distributor took the lead first, zero rows match and we report false.
func (s *SQLiteStore) AssignLead(ctx context.Context, leadID string, emp model.Employee) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads
		 SET pool_status = ?, assigned_to_name = ?, assigned_to_email = ?, calendar_link = ?, updated_at = ?
		 WHERE id = ? AND pool_status = ?`,
		string(model.PoolStatusAssigned), emp.FullName, emp.Email, emp.CalendarLink,
		time.Now().UTC(), leadID, string(model.PoolStatusInPool),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: assign lead %s", leadID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error) {
	query := `SELECT email, full_name, division, role, status, calendar_link FROM employees WHERE 1=1`
	var args []any

	if filter.Division != "" {
		query += ` AND division = ?`
		args = append(args, filter.Division)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Role != "" {
		query += ` AND role = ?`
		args = append(args, string(filter.Role))
	}
	query += ` ORDER BY email`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list employees")
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		var e model.Employee
		var role, status string
		if err := rows.Scan(&e.Email, &e.FullName, &e.Division, &role, &status, &e.CalendarLink); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan employee")
		}
		e.Role = model.EmployeeRole(role)
		e.Status = model.EmployeeStatus(status)
		employees = append(employees, e)
	}
	return employees, eris.Wrap(rows.Err(), "sqlite: iterate employees")
}

func (s *SQLiteStore) UpsertEmployee(ctx context.Context, emp model.Employee) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (email, full_name, division, role, status, calendar_link)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
			full_name = excluded.full_name,
			division = excluded.division,
			role = excluded.role,
			status = excluded.status,
			calendar_link = excluded.calendar_link`,
		emp.Email, emp.FullName, emp.Division, string(emp.Role), string(emp.Status), emp.CalendarLink,
	)
	return eris.Wrapf(err, "sqlite: upsert employee %s", emp.Email)
}

func (s *SQLiteStore) ListAreas(ctx context.Context) ([]model.Area, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, city, north, south, east, west, streets FROM areas ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list areas")
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		var a model.Area
		var streets string
		if err := rows.Scan(&a.ID, &a.Name, &a.City,
			&a.Bounds.North, &a.Bounds.South, &a.Bounds.East, &a.Bounds.West, &streets); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan area")
		}
		if err := json.Unmarshal([]byte(streets), &a.Streets); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode streets for area %s", a.ID)
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "sqlite: iterate areas")
}

func (s *SQLiteStore) CreateArea(ctx context.Context, area model.Area) (*model.Area, error) {
	if area.ID == "" {
		area.ID = uuid.New().String()
	}
	streets, err := json.Marshal(area.Streets)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: encode streets")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO areas (id, name, city, north, south, east, west, streets) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		area.ID, area.Name, area.City,
		area.Bounds.North, area.Bounds.South, area.Bounds.East, area.Bounds.West, string(streets),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert area")
	}
	return &area, nil
}

func (s *SQLiteStore) GetGeocodeEntry(ctx context.Context, street, houseNumber, city string) (*model.GeocodeCacheEntry, error) {
	var e model.GeocodeCacheEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT street, house_number, postal_code, city, lat, lon
		 FROM geocode_cache WHERE street = ? AND house_number = ? AND city = ? LIMIT 1`,
		street, houseNumber, city,
	).Scan(&e.Street, &e.HouseNumber, &e.PostalCode, &e.City, &e.Lat, &e.Lon)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get geocode entry")
	}
	return &e, nil
}

func (s *SQLiteStore) UpsertGeocodeEntry(ctx context.Context, entry model.GeocodeCacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (street, house_number, postal_code, city, lat, lon)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (street, house_number, postal_code, city) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon`,
		entry.Street, entry.HouseNumber, entry.PostalCode, entry.City, entry.Lat, entry.Lon,
	)
	return eris.Wrap(err, "sqlite: upsert geocode entry")
}
