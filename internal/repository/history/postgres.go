package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/google/uuid"
)

const defaultListLimit = 50

// Record is one completed ride as kept in the journal
type Record struct {
	ID             uuid.UUID      `json:"id"`
	SessionID      uuid.UUID      `json:"session_id"`
	BikeID         string         `json:"bike_id"`
	BikeName       string         `json:"bike_name"`
	DistanceKM     float64        `json:"distance_km"`
	DrivenDistance string         `json:"driven_distance"`
	FinalLatitude  float64        `json:"final_latitude"`
	FinalLongitude float64        `json:"final_longitude"`
	Equipment      bike.Equipment `json:"equipment"`
	Notes          string         `json:"notes"`
	StartedAt      time.Time      `json:"started_at"`
	EndedAt        time.Time      `json:"ended_at"`
}

// NewRecord builds a journal entry for a ride the server accepted.
// drivenDistance is the value submitted to the server.
func NewRecord(s *ride.Session, drivenDistance string, final bike.Location, endedAt time.Time) Record {
	return Record{
		ID:             uuid.New(),
		SessionID:      s.ID,
		BikeID:         s.Bike.ID.String(),
		BikeName:       s.Bike.Name,
		DistanceKM:     s.TotalDistance,
		DrivenDistance: drivenDistance,
		FinalLatitude:  final.Latitude,
		FinalLongitude: final.Longitude,
		Equipment:      s.Bike.Capabilities,
		Notes:          s.Bike.Notes,
		StartedAt:      s.InUseSince(),
		EndedAt:        endedAt,
	}
}

// Repository is the completed-ride journal
type Repository interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
}

// PostgresRepository stores the journal in PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a journal on top of db
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const schema = `CREATE TABLE IF NOT EXISTS ride_history (
	id              UUID PRIMARY KEY,
	session_id      UUID NOT NULL,
	bike_id         TEXT NOT NULL,
	bike_name       TEXT NOT NULL DEFAULT '',
	distance_km     DOUBLE PRECISION NOT NULL,
	driven_distance TEXT NOT NULL,
	final_latitude  DOUBLE PRECISION NOT NULL,
	final_longitude DOUBLE PRECISION NOT NULL,
	equipment       JSONB NOT NULL,
	notes           TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL,
	ended_at        TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the journal table when it does not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ride_history: %w", err)
	}
	return nil
}

// Record inserts one completed ride
func (r *PostgresRepository) Record(ctx context.Context, rec Record) error {
	equipment, err := json.Marshal(rec.Equipment)
	if err != nil {
		return fmt.Errorf("failed to encode equipment: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ride_history (
			id, session_id, bike_id, bike_name, distance_km, driven_distance,
			final_latitude, final_longitude, equipment, notes, started_at, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID.String(), rec.SessionID.String(), rec.BikeID, rec.BikeName,
		rec.DistanceKM, rec.DrivenDistance, rec.FinalLatitude, rec.FinalLongitude,
		string(equipment), rec.Notes, rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ride %s: %w", rec.SessionID, err)
	}
	return nil
}

// List returns the most recent rides, newest first
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, bike_id, bike_name, distance_km, driven_distance,
			final_latitude, final_longitude, equipment, notes, started_at, ended_at
		FROM ride_history
		ORDER BY ended_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec       Record
			equipment []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.BikeID, &rec.BikeName, &rec.DistanceKM,
			&rec.DrivenDistance, &rec.FinalLatitude, &rec.FinalLongitude,
			&equipment, &rec.Notes, &rec.StartedAt, &rec.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		if len(equipment) > 0 {
			if err := json.Unmarshal(equipment, &rec.Equipment); err != nil {
				return nil, fmt.Errorf("failed to decode equipment: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	return records, nil
}
