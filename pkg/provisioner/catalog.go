// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

// StepKind classifies schema-construction steps for reporting.
type StepKind string

const (
	KindTable   StepKind = "table"
	KindDefault StepKind = "default"
	KindIndex   StepKind = "index"
)

// Step is one independent schema-construction statement. Steps are run in
// catalog order with referential-integrity checks disabled, so tables may
// reference tables created later.
type Step struct {
	Name string
	Kind StepKind
	SQL  string
}

// Catalog returns the ordered construction plan for a fresh tenant
// database: table definitions first, then default rows, then secondary
// indexes. Every step here is tolerant of individual failure; the admin
// user is created separately and strictly.
func Catalog() []Step {
	steps := make([]Step, 0, len(tableSteps)+len(defaultSteps)+len(indexSteps))
	steps = append(steps, tableSteps...)
	steps = append(steps, defaultSteps...)
	steps = append(steps, indexSteps...)
	return steps
}

// TableCount is the number of table-definition steps in the catalog.
func TableCount() int {
	return len(tableSteps)
}

var tableSteps = []Step{
	{"users", KindTable, `CREATE TABLE users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		phone TEXT,
		role TEXT NOT NULL DEFAULT 'staff',
		password_hash TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"roles", KindTable, `CREATE TABLE roles (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT
	)`},
	{"role_permissions", KindTable, `CREATE TABLE role_permissions (
		role_id BIGINT NOT NULL REFERENCES roles(id),
		permission TEXT NOT NULL,
		PRIMARY KEY (role_id, permission)
	)`},
	{"settings", KindTable, `CREATE TABLE settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"academic_years", KindTable, `CREATE TABLE academic_years (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		starts_on DATE NOT NULL,
		ends_on DATE NOT NULL,
		current BOOLEAN NOT NULL DEFAULT FALSE
	)`},
	{"classes", KindTable, `CREATE TABLE classes (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		academic_year_id BIGINT REFERENCES academic_years(id),
		numeric_level INT
	)`},
	{"sections", KindTable, `CREATE TABLE sections (
		id BIGSERIAL PRIMARY KEY,
		class_id BIGINT NOT NULL REFERENCES classes(id),
		name TEXT NOT NULL,
		capacity INT NOT NULL DEFAULT 40
	)`},
	{"subjects", KindTable, `CREATE TABLE subjects (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT UNIQUE
	)`},
	{"teachers", KindTable, `CREATE TABLE teachers (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT REFERENCES users(id),
		employee_no TEXT UNIQUE,
		qualification TEXT,
		joined_on DATE
	)`},
	{"class_subjects", KindTable, `CREATE TABLE class_subjects (
		class_id BIGINT NOT NULL REFERENCES classes(id),
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		teacher_id BIGINT REFERENCES teachers(id),
		PRIMARY KEY (class_id, subject_id)
	)`},
	{"students", KindTable, `CREATE TABLE students (
		id BIGSERIAL PRIMARY KEY,
		admission_no TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT,
		dob DATE,
		gender TEXT,
		email TEXT,
		phone TEXT,
		address TEXT,
		photo_path TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"guardians", KindTable, `CREATE TABLE guardians (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		relation TEXT,
		email TEXT,
		phone TEXT NOT NULL,
		occupation TEXT
	)`},
	{"student_guardians", KindTable, `CREATE TABLE student_guardians (
		student_id BIGINT NOT NULL REFERENCES students(id),
		guardian_id BIGINT NOT NULL REFERENCES guardians(id),
		PRIMARY KEY (student_id, guardian_id)
	)`},
	{"enrollments", KindTable, `CREATE TABLE enrollments (
		id BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id),
		section_id BIGINT NOT NULL REFERENCES sections(id),
		academic_year_id BIGINT NOT NULL REFERENCES academic_years(id),
		roll_no INT,
		enrolled_on DATE NOT NULL DEFAULT CURRENT_DATE,
		UNIQUE (student_id, academic_year_id)
	)`},
	{"teacher_subjects", KindTable, `CREATE TABLE teacher_subjects (
		teacher_id BIGINT NOT NULL REFERENCES teachers(id),
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		PRIMARY KEY (teacher_id, subject_id)
	)`},
	{"attendance", KindTable, `CREATE TABLE attendance (
		id BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id),
		section_id BIGINT NOT NULL REFERENCES sections(id),
		taken_on DATE NOT NULL,
		status TEXT NOT NULL,
		remark TEXT,
		UNIQUE (student_id, taken_on)
	)`},
	{"exams", KindTable, `CREATE TABLE exams (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		academic_year_id BIGINT REFERENCES academic_years(id),
		starts_on DATE,
		ends_on DATE
	)`},
	{"exam_schedules", KindTable, `CREATE TABLE exam_schedules (
		id BIGSERIAL PRIMARY KEY,
		exam_id BIGINT NOT NULL REFERENCES exams(id),
		class_subject_class_id BIGINT,
		class_subject_subject_id BIGINT,
		held_on DATE,
		max_marks INT NOT NULL DEFAULT 100,
		pass_marks INT NOT NULL DEFAULT 35
	)`},
	{"exam_results", KindTable, `CREATE TABLE exam_results (
		id BIGSERIAL PRIMARY KEY,
		exam_id BIGINT NOT NULL REFERENCES exams(id),
		student_id BIGINT NOT NULL REFERENCES students(id),
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		marks NUMERIC(5,2),
		grade TEXT,
		UNIQUE (exam_id, student_id, subject_id)
	)`},
	{"grades", KindTable, `CREATE TABLE grades (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		min_percent NUMERIC(5,2) NOT NULL,
		max_percent NUMERIC(5,2) NOT NULL,
		grade_point NUMERIC(3,1)
	)`},
	{"homework", KindTable, `CREATE TABLE homework (
		id BIGSERIAL PRIMARY KEY,
		section_id BIGINT NOT NULL REFERENCES sections(id),
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		title TEXT NOT NULL,
		description TEXT,
		due_on DATE,
		created_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"homework_submissions", KindTable, `CREATE TABLE homework_submissions (
		id BIGSERIAL PRIMARY KEY,
		homework_id BIGINT NOT NULL REFERENCES homework(id),
		student_id BIGINT NOT NULL REFERENCES students(id),
		submitted_at TIMESTAMPTZ,
		remarks TEXT,
		UNIQUE (homework_id, student_id)
	)`},
	{"timetable", KindTable, `CREATE TABLE timetable (
		id BIGSERIAL PRIMARY KEY,
		section_id BIGINT NOT NULL REFERENCES sections(id),
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		teacher_id BIGINT REFERENCES teachers(id),
		weekday INT NOT NULL,
		starts_at TIME NOT NULL,
		ends_at TIME NOT NULL
	)`},
	{"fee_categories", KindTable, `CREATE TABLE fee_categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE
	)`},
	{"fee_structures", KindTable, `CREATE TABLE fee_structures (
		id BIGSERIAL PRIMARY KEY,
		class_id BIGINT NOT NULL REFERENCES classes(id),
		category_id BIGINT NOT NULL REFERENCES fee_categories(id),
		amount NUMERIC(12,2) NOT NULL,
		academic_year_id BIGINT REFERENCES academic_years(id)
	)`},
	{"fee_invoices", KindTable, `CREATE TABLE fee_invoices (
		id BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id),
		structure_id BIGINT REFERENCES fee_structures(id),
		amount NUMERIC(12,2) NOT NULL,
		due_on DATE,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"fee_payments", KindTable, `CREATE TABLE fee_payments (
		id BIGSERIAL PRIMARY KEY,
		invoice_id BIGINT NOT NULL REFERENCES fee_invoices(id),
		amount NUMERIC(12,2) NOT NULL,
		method TEXT,
		reference TEXT,
		paid_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		recorded_by BIGINT REFERENCES users(id)
	)`},
	{"subscription_usage", KindTable, `CREATE TABLE subscription_usage (
		id BIGSERIAL PRIMARY KEY,
		metric TEXT NOT NULL,
		used BIGINT NOT NULL DEFAULT 0,
		recorded_on DATE NOT NULL DEFAULT CURRENT_DATE,
		UNIQUE (metric, recorded_on)
	)`},
	{"billing_log", KindTable, `CREATE TABLE billing_log (
		id BIGSERIAL PRIMARY KEY,
		event TEXT NOT NULL,
		amount NUMERIC(12,2),
		details TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"file_uploads", KindTable, `CREATE TABLE file_uploads (
		id BIGSERIAL PRIMARY KEY,
		path TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		mime_type TEXT,
		uploaded_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"storage_quota", KindTable, `CREATE TABLE storage_quota (
		id BIGSERIAL PRIMARY KEY,
		used_bytes BIGINT NOT NULL DEFAULT 0,
		limit_bytes BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"performance_metrics", KindTable, `CREATE TABLE performance_metrics (
		id BIGSERIAL PRIMARY KEY,
		metric TEXT NOT NULL,
		value NUMERIC(14,4) NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"security_events", KindTable, `CREATE TABLE security_events (
		id BIGSERIAL PRIMARY KEY,
		event TEXT NOT NULL,
		actor_id BIGINT,
		ip TEXT,
		user_agent TEXT,
		details TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"password_resets", KindTable, `CREATE TABLE password_resets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		token TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE
	)`},
	{"backup_jobs", KindTable, `CREATE TABLE backup_jobs (
		id BIGSERIAL PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'running',
		location TEXT,
		size_bytes BIGINT
	)`},
	{"announcements", KindTable, `CREATE TABLE announcements (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT,
		audience TEXT NOT NULL DEFAULT 'all',
		publish_on DATE,
		created_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"messages", KindTable, `CREATE TABLE messages (
		id BIGSERIAL PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES users(id),
		recipient_id BIGINT NOT NULL REFERENCES users(id),
		subject TEXT,
		body TEXT NOT NULL,
		read_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"sms_log", KindTable, `CREATE TABLE sms_log (
		id BIGSERIAL PRIMARY KEY,
		recipient TEXT NOT NULL,
		body TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		provider_ref TEXT,
		sent_at TIMESTAMPTZ
	)`},
	{"email_log", KindTable, `CREATE TABLE email_log (
		id BIGSERIAL PRIMARY KEY,
		recipient TEXT NOT NULL,
		subject TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		provider_ref TEXT,
		sent_at TIMESTAMPTZ
	)`},
	{"api_keys", KindTable, `CREATE TABLE api_keys (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		scopes TEXT,
		created_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		revoked_at TIMESTAMPTZ
	)`},
	{"api_request_log", KindTable, `CREATE TABLE api_request_log (
		id BIGSERIAL PRIMARY KEY,
		api_key_id BIGINT REFERENCES api_keys(id),
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INT,
		duration_ms INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"maintenance_jobs", KindTable, `CREATE TABLE maintenance_jobs (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		scheduled_for TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT
	)`},
	{"user_sessions", KindTable, `CREATE TABLE user_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		token TEXT NOT NULL UNIQUE,
		ip TEXT,
		user_agent TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_activity TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
}

var defaultSteps = []Step{
	{"default roles", KindDefault, `INSERT INTO roles (name, description) VALUES
		('admin', 'School administrator'),
		('teacher', 'Teaching staff'),
		('accountant', 'Fee and billing management'),
		('librarian', 'Library management'),
		('student', 'Student portal access'),
		('guardian', 'Guardian portal access')`},
	{"admin permissions", KindDefault, `INSERT INTO role_permissions (role_id, permission)
		SELECT id, '*' FROM roles WHERE name = 'admin'`},
	{"teacher permissions", KindDefault, `INSERT INTO role_permissions (role_id, permission)
		SELECT id, p FROM roles, unnest(ARRAY['student.read', 'attendance.*', 'exam.*', 'homework.*']) AS p
		WHERE name = 'teacher'`},
	{"accountant permissions", KindDefault, `INSERT INTO role_permissions (role_id, permission)
		SELECT id, p FROM roles, unnest(ARRAY['student.read', 'fee.*']) AS p
		WHERE name = 'accountant'`},
	{"default settings", KindDefault, `INSERT INTO settings (key, value) VALUES
		('locale', 'en'),
		('timezone', 'UTC'),
		('attendance_mode', 'daily'),
		('grade_scheme', 'percentage'),
		('session_timeout_minutes', '30')`},
	{"default grades", KindDefault, `INSERT INTO grades (name, min_percent, max_percent, grade_point) VALUES
		('A+', 90, 100, 4.0),
		('A', 80, 89.99, 3.7),
		('B', 70, 79.99, 3.0),
		('C', 60, 69.99, 2.0),
		('D', 50, 59.99, 1.0),
		('F', 0, 49.99, 0.0)`},
}

var indexSteps = []Step{
	{"idx_students_name", KindIndex, `CREATE INDEX idx_students_name ON students (last_name, first_name)`},
	{"idx_enrollments_section", KindIndex, `CREATE INDEX idx_enrollments_section ON enrollments (section_id)`},
	{"idx_attendance_date", KindIndex, `CREATE INDEX idx_attendance_date ON attendance (taken_on)`},
	{"idx_exam_results_student", KindIndex, `CREATE INDEX idx_exam_results_student ON exam_results (student_id)`},
	{"idx_fee_invoices_student", KindIndex, `CREATE INDEX idx_fee_invoices_student ON fee_invoices (student_id, status)`},
	{"idx_fee_payments_invoice", KindIndex, `CREATE INDEX idx_fee_payments_invoice ON fee_payments (invoice_id)`},
	{"idx_messages_recipient", KindIndex, `CREATE INDEX idx_messages_recipient ON messages (recipient_id, read_at)`},
	{"idx_api_request_log_key", KindIndex, `CREATE INDEX idx_api_request_log_key ON api_request_log (api_key_id, created_at)`},
	{"idx_security_events_time", KindIndex, `CREATE INDEX idx_security_events_time ON security_events (created_at)`},
	{"idx_user_sessions_user", KindIndex, `CREATE INDEX idx_user_sessions_user ON user_sessions (user_id)`},
}
