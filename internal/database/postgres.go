package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	// Set connection pool settings
	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	// Initialize tables
	if err = InitPostgresTables(); err != nil {
		return err
	}

	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		// Users table: parents, therapists, and managers share one table with a role column
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			role VARCHAR(20) NOT NULL CHECK (role IN ('parent', 'therapist', 'manager')),
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Children table (patients); therapist_id set when a patient request is accepted
		`CREATE TABLE IF NOT EXISTS children (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			parent_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			therapist_id UUID REFERENCES users(id) ON DELETE SET NULL,
			name VARCHAR(255) NOT NULL,
			date_of_birth DATE
		)`,

		// Tasks assigned to children by therapists
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			child_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
			session_id UUID,
			assigned_by UUID REFERENCES users(id) ON DELETE SET NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			instructions TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			priority INTEGER NOT NULL DEFAULT 0,
			due_date TIMESTAMP,
			recurrence VARCHAR(20),
			completion_notes TEXT,
			completed_at TIMESTAMP
		)`,

		// Therapy sessions with clinical documentation fields
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			child_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
			therapist_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			scheduled_at TIMESTAMP NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 45,
			session_type VARCHAR(50) NOT NULL DEFAULT 'INDIVIDUAL',
			status VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
			rate NUMERIC(10,2) NOT NULL DEFAULT 0,
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			attendance_status VARCHAR(20),
			overall_progress TEXT,
			patient_engagement VARCHAR(50),
			risk_assessment VARCHAR(50),
			focus_areas TEXT,
			session_notes TEXT,
			next_session_goals TEXT
		)`,

		// Availability slots: fixed 45-minute units, one row per slot
		`CREATE TABLE IF NOT EXISTS availability_slots (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			therapist_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			slot_date DATE NOT NULL,
			start_time VARCHAR(5) NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 45,
			is_booked BOOLEAN NOT NULL DEFAULT FALSE,
			is_free BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE(therapist_id, slot_date, start_time)
		)`,

		// Patient requests: parent asks a therapist to take on a child
		`CREATE TABLE IF NOT EXISTS patient_requests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			parent_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			child_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
			therapist_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			message TEXT
		)`,

		// Therapist applications reviewed by managers
		`CREATE TABLE IF NOT EXISTS therapist_applications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(50) NOT NULL,
			license_number VARCHAR(255) NOT NULL,
			license_authority VARCHAR(255),
			years_of_experience INTEGER NOT NULL DEFAULT 0,
			highest_qualification VARCHAR(255),
			institution VARCHAR(255),
			specializations VARCHAR(255),
			license_document_url TEXT,
			degree_document_url TEXT,
			reference_name VARCHAR(255),
			reference_phone VARCHAR(50),
			reference_relation VARCHAR(100),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			reviewed_at TIMESTAMP,
			reviewed_by UUID REFERENCES users(id) ON DELETE SET NULL,
			rejection_reason TEXT
		)`,

		// Therapist profiles (public-facing, separate from credentials)
		`CREATE TABLE IF NOT EXISTS therapist_profiles (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			bio TEXT,
			specialization VARCHAR(255),
			languages VARCHAR(255),
			hourly_rate NUMERIC(10,2) NOT NULL DEFAULT 0,
			image_url TEXT,
			is_complete BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// Conversations between a parent and a therapist about a child.
		// Message bodies live in MongoDB; this table holds the membership record.
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			parent_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			therapist_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			child_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
			last_message_at TIMESTAMP,
			UNIQUE(parent_id, therapist_id, child_id)
		)`,

		// Contact us table
		`CREATE TABLE IF NOT EXISTS contact_us (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			subject VARCHAR(255),
			category VARCHAR(50),
			message TEXT NOT NULL,
			ip_address VARCHAR(255)
		)`,

		// Create indexes for better performance
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
		`CREATE INDEX IF NOT EXISTS idx_children_parent_id ON children(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_children_therapist_id ON children(therapist_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_child_id ON tasks(child_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_session_id ON tasks(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_child_id ON sessions(child_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_therapist_id ON sessions(therapist_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_scheduled_at ON sessions(scheduled_at)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_therapist_date ON availability_slots(therapist_id, slot_date)`,
		`CREATE INDEX IF NOT EXISTS idx_patient_requests_therapist ON patient_requests(therapist_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON therapist_applications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_email ON therapist_applications(email)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_parent ON conversations(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_therapist ON conversations(therapist_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contact_us_created_at ON contact_us(created_at)`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
